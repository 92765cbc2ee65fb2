// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// respondServiceError maps service sentinel errors to HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrNotAuthorized):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInsufficientFunds):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrChainUnavailable):
		utils.BadGatewayResponse(c, err.Error())
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

// tokenIDParam parses the :token_id path segment.
func tokenIDParam(c *gin.Context) (uint64, bool) {
	tokenID, err := strconv.ParseUint(c.Param("token_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid token id", nil)
		return 0, false
	}
	return tokenID, true
}
