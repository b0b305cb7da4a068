package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for logging and HTTP mapping.
type Kind int

const (
	Unknown Kind = iota
	IO
	Config
	RPC
	Provider
	Database
	Serialization
	Dex
	API
	InvalidAddress
	UnknownDEX
	NotFound
	NotImplemented
)

var kindNames = map[Kind]string{
	Unknown:        "unknown",
	IO:             "io",
	Config:         "config",
	RPC:            "rpc",
	Provider:       "provider",
	Database:       "database",
	Serialization:  "serialization",
	Dex:            "dex",
	API:            "api",
	InvalidAddress: "invalid_address",
	UnknownDEX:     "unknown_dex",
	NotFound:       "not_found",
	NotImplemented: "not_implemented",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HTTPStatus maps an error kind onto the status code the API layer returns.
func (k Kind) HTTPStatus() int {
	switch k {
	case API, InvalidAddress, UnknownDEX:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind plus a wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a kinded error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf walks the error chain and returns the first kind found.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return Unknown
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
