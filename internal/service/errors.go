package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrAlreadyInitialized is returned by a second Initialize in one session.
	ErrAlreadyInitialized = errors.New("registry already initialized")

	ErrFileMissing   = errors.New("no file selected")
	ErrFileTooLarge  = errors.New("file size limit exceeded")
	ErrNoConnection  = errors.New("no active connection")
	ErrNotReady      = errors.New("file storage is not ready")
	ErrSaverMissing  = errors.New("no save target")
	ErrRecordMissing = errors.New("no record selected")
)

type FieldError struct {
	Name   string
	Reason string
	Err    error
}

// ValidationError rejects an action before the store is touched.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "Validation error"
	}

	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s %s", fe.Name, fe.Reason))
	}
	return fmt.Sprintf("Validation error: %s", strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors)+1)
	errs = append(errs, ErrValidation)
	for _, fe := range e.Errors {
		if fe.Err != nil {
			errs = append(errs, fe.Err)
		}
	}
	return errs
}

// invalid builds a single-field validation error.
func invalid(name string, err error) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Name: name, Reason: err.Error(), Err: err}}}
}

// NewValidationErrorFromOzzo flattens ozzo field errors, sorted by field name.
func NewValidationErrorFromOzzo(errs validation.Errors) *ValidationError {
	ve := &ValidationError{
		Errors: make([]FieldError, 0, len(errs)),
	}
	if errs == nil {
		return ve
	}

	ve.parseValidationErrors(errs)
	sort.Slice(ve.Errors, func(i, j int) bool { return ve.Errors[i].Name < ve.Errors[j].Name })
	return ve
}

func (ve *ValidationError) parseValidationErrors(errs validation.Errors) {
	for field, fieldErr := range errs {
		var nested validation.Errors
		switch {
		case errors.As(fieldErr, &nested):
			ve.parseValidationErrors(nested)
		default:
			ve.Errors = append(ve.Errors, FieldError{
				Name:   field,
				Reason: fieldErr.Error(),
				Err:    fieldErr,
			})
		}
	}
}
