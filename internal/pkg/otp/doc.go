// Package otp builds random numeric one-time codes.
//
// A code is an optional fixed prefix followed by decimal digits drawn from
// crypto/rand until the configured length is reached.
package otp
