package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

var (
	// ErrInvalidLength indicates a non-positive code length.
	ErrInvalidLength = errors.New("otp: code length must be positive")
	// ErrPrefixTooLong indicates a prefix that leaves no room for random digits.
	ErrPrefixTooLong = errors.New("otp: prefix must be shorter than the code length")
)

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric generates prefix + random decimal digits.
type Numeric struct {
	length int
	prefix string
	rand   io.Reader
}

// NewNumeric validates length and prefix and returns a generator.
//
// The prefix counts toward length and must leave at least one random digit.
func NewNumeric(length int, prefix string) (*Numeric, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	if len(prefix) >= length {
		return nil, fmt.Errorf("%w: prefix %d, length %d", ErrPrefixTooLong, len(prefix), length)
	}

	return &Numeric{length: length, prefix: prefix, rand: rand.Reader}, nil
}

// Length returns the full code length, prefix included.
func (n *Numeric) Length() int {
	return n.length
}

// Generate returns a new code.
func (n *Numeric) Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(n.length)
	sb.WriteString(n.prefix)

	ten := big.NewInt(10)
	for sb.Len() < n.length {
		d, err := rand.Int(n.rand, ten)
		if err != nil {
			return "", fmt.Errorf("otp: random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}

	return sb.String(), nil
}
