package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rbmmusic/assetcache/internal/assetcache"
)

// Standard error codes
const (
	ErrCodeInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstream           = "UPSTREAM_UNAVAILABLE"
	ErrCodeStorage            = "STORAGE_ERROR"
)

// Standard error messages
const (
	ErrMsgInternalServer = "An internal server error occurred"
	ErrMsgBadRequest     = "Invalid request format"
	ErrMsgMissingURL     = "Query parameter 'url' is required"
	ErrMsgNotInitialized = "Cache is not initialized yet"
	ErrMsgUpstream       = "Asset could not be fetched and no cached copy exists"
	ErrMsgStorage        = "Cache storage failure"
)

// APIError is the error object of the response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// APIErrorResponse represents a structured error response
type APIErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewAPIError creates a new API error
func NewAPIError(code, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// respondCacheError maps a cache failure onto a status code and error code.
func respondCacheError(c *fiber.Ctx, err error) error {
	var ce *assetcache.CacheError
	if !errors.As(err, &ce) {
		return RespondInternalError(c, ErrMsgInternalServer, err.Error())
	}

	switch ce.Kind {
	case assetcache.ErrKindNotInitialized:
		return RespondServiceUnavailable(c, ErrMsgNotInitialized, err.Error())
	case assetcache.ErrKindNetwork, assetcache.ErrKindDecode:
		return RespondError(c, fiber.StatusBadGateway, ErrCodeUpstream, ErrMsgUpstream, err.Error())
	default:
		return RespondError(c, fiber.StatusInternalServerError, ErrCodeStorage, ErrMsgStorage, err.Error())
	}
}
