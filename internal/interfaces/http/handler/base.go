package handler

import (
	"errors"
	"net/http"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to HTTP responses; anything else is a 500
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if info, ok := errorInfo(err); ok {
		h.ErrorWithCode(c, info.Code, info.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// errorInfo maps a domain error to its API code and message.
// Rule data problems keep their detail out of the response.
func errorInfo(err error) (*dto.ErrorInfo, bool) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return nil, false
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	message := domainErr.Message
	switch code {
	case dto.ErrCodeRuleDataInconsistent:
		message = "Pricing rule data is inconsistent"
	case dto.ErrCodeCollaboratorUnavailable:
		message = "Pricing data is temporarily unavailable"
	}
	return &dto.ErrorInfo{Code: code, Message: message}, true
}
