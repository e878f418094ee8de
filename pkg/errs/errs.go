// Package errs carries a ServiceError across package boundaries so the
// gateway's HTTP handlers can translate a failure into the right status
// code without inspecting which package produced it (§7).
package errs

import (
	"errors"
	"net/http"
)

// Category classifies the subsystem a failure originated in.
type Category int

const (
	// CategoryGeneral is an unexpected, uncategorized failure.
	CategoryGeneral Category = iota
	// CategoryRegistry covers unknown network/token ids, names or
	// addresses rejected by a codec.
	CategoryRegistry
	// CategoryConnector covers a connector's inability to sign, submit,
	// or estimate a transfer.
	CategoryConnector
	// CategoryDatabase covers persistence failures.
	CategoryDatabase
	// CategoryCrypto covers auth-proof signature verification failures.
	CategoryCrypto
)

func (c Category) String() string {
	switch c {
	case CategoryRegistry:
		return "CategoryRegistry"
	case CategoryConnector:
		return "CategoryConnector"
	case CategoryDatabase:
		return "CategoryDatabase"
	case CategoryCrypto:
		return "CategoryCrypto"
	default:
		return "CategoryGeneral"
	}
}

// ServiceError is the error type every gateway handler should return
// instead of a bare error, so the HTTP layer can pick a status code.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// StatusCode maps a category to the HTTP status the gateway writes,
// matching §7's "registry/crypto failures become invalid_argument,
// persistence failures become internal".
func (e *ServiceError) StatusCode() int {
	switch e.Category {
	case CategoryRegistry, CategoryCrypto:
		return http.StatusBadRequest
	case CategoryConnector:
		return http.StatusBadGateway
	case CategoryDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is a ServiceError of the given category.
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

// Registry wraps err as a CategoryRegistry ServiceError.
func Registry(err error, message string) error {
	return &ServiceError{Category: CategoryRegistry, Message: message, Err: err}
}

// Connector wraps err as a CategoryConnector ServiceError.
func Connector(err error, message string) error {
	return &ServiceError{Category: CategoryConnector, Message: message, Err: err}
}

// Database wraps err as a CategoryDatabase ServiceError.
func Database(err error, message string) error {
	return &ServiceError{Category: CategoryDatabase, Message: message, Err: err}
}

// Crypto wraps err as a CategoryCrypto ServiceError.
func Crypto(err error, message string) error {
	return &ServiceError{Category: CategoryCrypto, Message: message, Err: err}
}

// General wraps err as a CategoryGeneral ServiceError.
func General(err error, message string) error {
	return &ServiceError{Category: CategoryGeneral, Message: message, Err: err}
}
