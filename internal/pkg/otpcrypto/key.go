package otpcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const keyLen = 32

// GenerateKey returns a random 256-bit key, base64 encoded for config files.
func GenerateKey() (string, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("otpcrypto: key generation failed: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key), nil
}

// ParseKey decodes and checks a base64 key.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrKeyMissing
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyMalformed, err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrKeySize, len(key))
	}

	return key, nil
}
