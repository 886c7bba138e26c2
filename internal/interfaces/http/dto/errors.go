package dto

import (
	"net/http"

	"github.com/erp/pricing/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeInvalidQuantity is used when the quantity is below one
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when the product or customer does not exist
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Pricing error codes
const (
	// ErrCodeInvalidProductState is used when the product has no usable list price
	ErrCodeInvalidProductState = "ERR_INVALID_PRODUCT_STATE"
	// ErrCodeCollaboratorUnavailable is used when the catalog, customer directory
	// or rule store cannot be reached
	ErrCodeCollaboratorUnavailable = "ERR_COLLABORATOR_UNAVAILABLE"
	// ErrCodeRuleDataInconsistent is used when stored rule data is malformed
	ErrCodeRuleDataInconsistent = "ERR_RULE_DATA_INCONSISTENT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInvalidQuantity: http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeInvalidProductState:     http.StatusUnprocessableEntity,
	ErrCodeCollaboratorUnavailable: http.StatusServiceUnavailable,
	ErrCodeRuleDataInconsistent:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:                ErrCodeNotFound,
	shared.CodeInvalidInput:            ErrCodeInvalidInput,
	shared.CodeInvalidQuantity:         ErrCodeInvalidQuantity,
	shared.CodeInvalidProductState:     ErrCodeInvalidProductState,
	shared.CodeCollaboratorUnavailable: ErrCodeCollaboratorUnavailable,
	shared.CodeRuleDataInconsistent:    ErrCodeRuleDataInconsistent,
	"INTERNAL_ERROR":                   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
