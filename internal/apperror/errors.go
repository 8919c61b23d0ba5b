// Package apperror defines the tagged failures returned by the domain services
// and how the HTTP boundary renders them.
package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation       Kind = "validation"
	KindAuthentication   Kind = "authentication"
	KindAuthorization    Kind = "authorization"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindMethodNotAllowed Kind = "method_not_allowed"
	KindServer           Kind = "server"
)

// Stable error codes.
const (
	CodeRequired                = "required"
	CodeInvalid                 = "invalid"
	CodeInvalidEmail            = "invalid_email"
	CodeInvalidPhone            = "invalid_phone"
	CodeInvalidDigitCount       = "invalid_digit_count"
	CodeInvalidCountryCode      = "invalid_country_code"
	CodeInvalidCardNumber       = "invalid_card_number"
	CodeInvalidChoice           = "invalid_choice"
	CodeMaxLength               = "max_length"
	CodeMinLength               = "min_length"
	CodeMinValue                = "min_value"
	CodePasswordTooShort        = "password_too_short"
	CodePasswordEntirelyNumeric = "password_entirely_numeric"
	CodePasswordTooCommon       = "password_too_common"
	CodePasswordTooSimilar      = "password_too_similar"
	CodePasswordMismatch        = "password_mismatch"
	CodeInvalidPassword         = "invalid_password"
	CodeArrayUniqueness         = "invalid_array_element_uniqueness"
	CodeInvalidQuantity         = "invalid_quantity"
	CodeInvalidFilename         = "invalid_filename"
	CodeImageConflict           = "image_conflict"
	CodeInvalidTransition       = "invalid_transition"
	CodeEmptyEmail              = "empty_email"
	CodeEmptyPassword           = "empty_password"
	CodeParseError              = "parse_error"
	CodeDoesNotExist            = "does_not_exist"

	CodeNotAuthenticated = "not_authenticated"
	CodeTokenNotValid    = "token_not_valid"
	CodeNoActiveAccount  = "no_active_account"

	CodePermissionDenied = "permission_denied"
	CodeDisableStaff     = "disable_staff"

	CodeNotFound         = "not_found"
	CodeUnique           = "unique"
	CodeProtected        = "protected"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeServerError      = "error"
)

// FieldError is a single entry of the rendered errors list.
type FieldError struct {
	Code   string  `json:"code"`
	Detail string  `json:"detail"`
	Attr   *string `json:"attr"`
}

type Error struct {
	kind   Kind
	errors []FieldError
	cause  error
}

// New creates an error of the given kind with a single non-field entry.
func New(kind Kind, code, detail string) *Error {
	return &Error{kind: kind, errors: []FieldError{{Code: code, Detail: detail}}}
}

// Field creates a validation error bound to attr.
func Field(code, detail, attr string) *Error {
	return (&Error{kind: KindValidation}).Add(code, detail, attr)
}

// Validation creates an empty validation error to be filled with Add.
func Validation() *Error {
	return &Error{kind: KindValidation}
}

func Wrap(kind Kind, err error, code, detail string) *Error {
	e := New(kind, code, detail)
	e.cause = err
	return e
}

func NotFound() *Error {
	return New(KindNotFound, CodeNotFound, "Not found.")
}

func PermissionDenied() *Error {
	return New(KindAuthorization, CodePermissionDenied, "You do not have permission to perform this action.")
}

func NotAuthenticated() *Error {
	return New(KindAuthentication, CodeNotAuthenticated, "Authentication credentials were not provided.")
}

func Server(err error) *Error {
	return Wrap(KindServer, err, CodeServerError, "A server error occurred.")
}

// Add appends an entry. An empty attr renders as null.
func (e *Error) Add(code, detail, attr string) *Error {
	fe := FieldError{Code: code, Detail: detail}
	if attr != "" {
		a := attr
		fe.Attr = &a
	}
	e.errors = append(e.errors, fe)
	return e
}

// Merge appends the entries of other, prefixing their attrs.
func (e *Error) Merge(prefix string, other *Error) *Error {
	for _, fe := range other.errors {
		attr := prefix
		if fe.Attr != nil {
			if prefix != "" {
				attr = prefix + "." + *fe.Attr
			} else {
				attr = *fe.Attr
			}
		}
		e.Add(fe.Code, fe.Detail, attr)
	}
	return e
}

// OrNil returns nil when no entries were collected.
func (e *Error) OrNil() error {
	if e == nil || len(e.errors) == 0 {
		return nil
	}
	return e
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindServer
	}
	return e.kind
}

func (e *Error) Errors() []FieldError {
	if e == nil {
		return nil
	}
	return e.errors
}

// HasCode reports whether any entry carries code.
func (e *Error) HasCode(code string) bool {
	for _, fe := range e.Errors() {
		if fe.Code == code {
			return true
		}
	}
	return false
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.errors))
	for _, fe := range e.errors {
		if fe.Attr != nil {
			parts = append(parts, fmt.Sprintf("%s: %s (%s)", *fe.Attr, fe.Detail, fe.Code))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", fe.Detail, fe.Code))
		}
	}
	msg := fmt.Sprintf("%s: %s", e.kind, strings.Join(parts, "; "))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind() {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Type is the top-level "type" field of the rendered body.
func (e *Error) Type() string {
	switch e.Kind() {
	case KindValidation:
		return "validation_error"
	case KindServer:
		return "server_error"
	default:
		return "client_error"
	}
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	return As(err).HasCode(code)
}
