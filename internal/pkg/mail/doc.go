// Package mail sends email through a pluggable provider.
//
// Callers depend on the Mail interface. SMTP, Amazon SES and a log-only
// driver are provided; New picks one from a driver name.
package mail
