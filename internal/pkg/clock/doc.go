// Package clock abstracts the wall clock.
//
// Code that reasons about expiry windows depends on Clocker so tests can pin
// "now" to a fixed instant.
package clock
