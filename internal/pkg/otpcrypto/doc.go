// Package otpcrypto encrypts one-time codes at rest.
//
// The scheme is deterministic: AES-256-CBC with an all-zero IV and PKCS#7
// padding, so the same code under the same key always produces the same
// ciphertext. Stored ciphertext can therefore be compared against a freshly
// encrypted candidate without decrypting it. Identical codes leak equality to
// anyone who can read the store; callers that need semantic security must use
// a different scheme.
package otpcrypto
