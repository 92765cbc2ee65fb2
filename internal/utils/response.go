// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Detail  string      `json:"detail"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, detail string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Detail:  detail,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, detail string, details interface{}) {
	if detail == "" {
		detail = "Invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", detail, details)
}

func UnauthorizedResponse(c *gin.Context, detail string) {
	if detail == "" {
		detail = "Wallet address required"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", detail, nil)
}

func ForbiddenResponse(c *gin.Context, detail string) {
	if detail == "" {
		detail = "Not authorized for this operation"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", detail, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
}

func ConflictResponse(c *gin.Context, detail string) {
	ErrorResponse(c, http.StatusConflict, "CONFLICT", detail, nil)
}

func InternalErrorResponse(c *gin.Context, detail string) {
	if detail == "" {
		detail = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", detail, nil)
}

func BadGatewayResponse(c *gin.Context, detail string) {
	if detail == "" {
		detail = "Upstream dependency failed"
	}
	ErrorResponse(c, http.StatusBadGateway, "BAD_GATEWAY", detail, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", errors)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// GetWalletFromContext returns the checksummed caller address set by the
// wallet middleware.
func GetWalletFromContext(c *gin.Context) (string, bool) {
	if addr, exists := c.Get("wallet_address"); exists {
		if s, ok := addr.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
