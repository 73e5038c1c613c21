// Package apperr defines the error codes shared by the API and its clients.
package apperr

import (
	"errors"
)

// Code identifies a class of failure. Clients branch on the code, never on
// the message text.
type Code string

const (
	CodeAuthenticationMissing Code = "AUTHENTICATION_MISSING"
	CodeAuthenticationInvalid Code = "AUTHENTICATION_INVALID"
	CodeAuthorizationDenied   Code = "AUTHORIZATION_DENIED"
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeConflict              Code = "CONFLICT"
	CodeStoreFailure          Code = "STORE_FAILURE"
)

// Messages surfaced to callers for the fixed failure modes.
const (
	MsgMissingToken        = "does not have token"
	MsgInvalidInviteCode   = "Invalid invite code"
	MsgInvalidCredentials  = "Invalid email and password combination"
	MsgEmailTaken          = "Unique constraint failed on the fields: (`email`)"
	MsgAdminKeyRequired    = "admin key required"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
	MsgUniqueSelectorShape = "exactly one of id or email must be provided"
)

// Error is an error with a stable code. Field names the offending input
// for validation failures.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions exposes the code in the GraphQL error payload.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": string(e.Code)}
	if e.Field != "" {
		ext["field"] = e.Field
	}
	return ext
}

// New returns an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Invalid returns a validation failure for the named input field.
func Invalid(field, message string) *Error {
	return &Error{Code: CodeValidationFailed, Field: field, Message: message}
}

// Wrap returns an Error carrying err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Store classifies an opaque data layer failure. The message passes the
// underlying error text through unchanged.
func Store(err error) *Error {
	return &Error{Code: CodeStoreFailure, Message: err.Error(), Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeStoreFailure when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreFailure
}

// FieldOf returns the offending field of the first *Error in err's chain.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Input field names used in validation failures.
const (
	FieldInviteCode = "inviteCode"
	FieldPassword   = "password"
	FieldWhere      = "where"
	FieldPage       = "page"
)

// FriendlyMessage maps a code, and for validation failures the field, to
// the text shown on the signup form.
func FriendlyMessage(code Code, field string) string {
	switch code {
	case CodeValidationFailed:
		switch field {
		case FieldInviteCode:
			return "Invalid Invite Code Please Try Another Code"
		case FieldPassword:
			return MsgPasswordTooLong
		}
		return "Please check the form and try again"
	case CodeConflict:
		return "That email has already been used"
	case CodeAuthenticationInvalid:
		return "Invalid email and password combination"
	default:
		return "An error has occurred please try again later"
	}
}
