package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches domain errors by code so that wrapped instances compare equal
// to the sentinel values below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidProductState     = "INVALID_PRODUCT_STATE"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeRuleDataInconsistent    = "RULE_DATA_INCONSISTENT"
)

// Common domain errors
var (
	ErrNotFound                = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput            = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidQuantity         = NewDomainError(CodeInvalidQuantity, "Quantity must be at least 1")
	ErrInvalidProductState     = NewDomainError(CodeInvalidProductState, "Product has no valid list price")
	ErrCollaboratorUnavailable = NewDomainError(CodeCollaboratorUnavailable, "Pricing collaborator unavailable")
	ErrRuleDataInconsistent    = NewDomainError(CodeRuleDataInconsistent, "Pricing rule data is inconsistent")
)
