// Package hash provides keyed one-way digests.
//
// Digests are used where a stable, non-reversible stand-in for a sensitive
// value is needed, such as cache keys derived from an email address.
package hash
