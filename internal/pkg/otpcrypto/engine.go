package otpcrypto

import "errors"

// Engine encrypts and decrypts one-time codes.
type Engine interface {
	// Encrypt returns the base64 ciphertext for plaintext. The result is stable
	// for a given key.
	Encrypt(plaintext string) (string, error)
	// Decrypt reverses Encrypt.
	Decrypt(ciphertext string) (string, error)
}

var (
	// ErrKeyMissing indicates that no key was configured.
	ErrKeyMissing = errors.New("otpcrypto: key is missing")
	// ErrKeyMalformed indicates that the key is not valid base64.
	ErrKeyMalformed = errors.New("otpcrypto: key is not valid base64")
	// ErrKeySize indicates that the decoded key is not 256 bits.
	ErrKeySize = errors.New("otpcrypto: key must be 256 bits")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("otpcrypto: plaintext is empty")
	// ErrCiphertextEmpty indicates an empty ciphertext input.
	ErrCiphertextEmpty = errors.New("otpcrypto: ciphertext is empty")
	// ErrDecrypt indicates malformed or corrupt ciphertext.
	ErrDecrypt = errors.New("otpcrypto: decrypt failed")
)

// IsConfigurationError reports whether err comes from missing or invalid key
// material.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrKeyMissing) || errors.Is(err, ErrKeyMalformed) || errors.Is(err, ErrKeySize)
}
