package otpcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// AESCBC implements Engine with AES-256-CBC and a fixed zero IV.
type AESCBC struct {
	block cipher.Block
}

// NewAESCBC constructs an engine from a base64 encoded 256-bit key.
func NewAESCBC(encodedKey string) (*AESCBC, error) {
	key, err := ParseKey(encodedKey)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("otpcrypto: aes init failed: %w", err)
	}

	return &AESCBC{block: block}, nil
}

// Encrypt encrypts plaintext and returns it base64 encoded.
func (e *AESCBC) Encrypt(plaintext string) (string, error) {
	if e == nil || e.block == nil {
		return "", ErrKeyMissing
	}
	if plaintext == "" {
		return "", ErrPlaintextEmpty
	}

	src := pad([]byte(plaintext), aes.BlockSize)
	dst := make([]byte, len(src))
	cipher.NewCBCEncrypter(e.block, zeroIV()).CryptBlocks(dst, src)

	return base64.StdEncoding.EncodeToString(dst), nil
}

// Decrypt decodes and decrypts a value produced by Encrypt.
func (e *AESCBC) Decrypt(ciphertext string) (string, error) {
	if e == nil || e.block == nil {
		return "", ErrKeyMissing
	}
	if ciphertext == "" {
		return "", ErrCiphertextEmpty
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecrypt
	}

	dst := make([]byte, len(raw))
	cipher.NewCBCDecrypter(e.block, zeroIV()).CryptBlocks(dst, raw)

	plain, ok := unpad(dst, aes.BlockSize)
	if !ok {
		return "", ErrDecrypt
	}

	return string(plain), nil
}

func zeroIV() []byte {
	return make([]byte, aes.BlockSize)
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}

	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}

	return b[:len(b)-n], true
}
