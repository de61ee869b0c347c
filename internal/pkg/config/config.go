// Package config reads typed settings by dotted key.
package config

import (
	"io"
	"time"
)

// Config returns typed values by dotted key. Missing or unconvertible keys
// yield the zero value.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetMillisecond, GetSecond and GetMinute read an integer in the named unit.
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetArray accepts a YAML list or a comma separated string. Blank
	// elements are dropped.
	GetArray(key string) []string
}
