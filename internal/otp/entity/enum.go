package entity

import "errors"

// ErrRecordNotActive is returned when a transition is attempted on a record
// that already reached a terminal status.
var ErrRecordNotActive = errors.New("otp: record is not active")

type RecordStatus int16

const (
	// RecordStatusUnknown mean status is not set.
	RecordStatusUnknown RecordStatus = 0

	// RecordStatusActive mean the record is the one eligible for validation.
	RecordStatusActive RecordStatus = 1

	// RecordStatusUsed mean the code was validated successfully.
	RecordStatusUsed RecordStatus = 2

	// RecordStatusExpired mean the record was superseded or outlived its window.
	RecordStatusExpired RecordStatus = 3

	// RecordStatusRevoked mean the record was explicitly revoked.
	RecordStatusRevoked RecordStatus = 4
)

func (rs RecordStatus) String() string {
	switch rs {
	case RecordStatusActive:
		return "ACTIVE"
	case RecordStatusUsed:
		return "USED"
	case RecordStatusExpired:
		return "EXPIRED"
	case RecordStatusRevoked:
		return "REVOKED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition is allowed.
func (rs RecordStatus) IsTerminal() bool {
	switch rs {
	case RecordStatusUsed, RecordStatusExpired, RecordStatusRevoked:
		return true
	default:
		return false
	}
}
