// Package errors holds the domain error type returned by services and
// rendered by the HTTP handlers.
package errors

import (
	"errors"
	"net/http"
)

// DomainError is an error with a stable machine-readable code and the HTTP
// status it maps to at the route boundary.
type DomainError struct {
	Code    string
	Message string
	Status  int
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Code so that copies created by WithMessage still compare
// equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(msg string) *DomainError {
	return &DomainError{Code: e.Code, Message: msg, Status: e.Status}
}

func newError(status int, code, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg, Status: status}
}

func Validation(code, msg string) *DomainError   { return newError(http.StatusBadRequest, code, msg) }
func Unauthorized(code, msg string) *DomainError { return newError(http.StatusUnauthorized, code, msg) }
func Forbidden(code, msg string) *DomainError    { return newError(http.StatusForbidden, code, msg) }
func NotFound(code, msg string) *DomainError     { return newError(http.StatusNotFound, code, msg) }
func Conflict(code, msg string) *DomainError     { return newError(http.StatusConflict, code, msg) }
func Upstream(code, msg string) *DomainError     { return newError(http.StatusBadGateway, code, msg) }

// As extracts a *DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
