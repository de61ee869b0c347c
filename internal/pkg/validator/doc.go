// Package validator validates tagged structs and reports field errors keyed
// by snake_case field name.
package validator

// Validator validates a struct value.
type Validator interface {
	Validate(data any) error
}
