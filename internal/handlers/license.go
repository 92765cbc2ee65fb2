// internal/handlers/license.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// POST /licenses
func (h *LicenseHandler) Grant(c *gin.Context) {
	caller, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var input services.GrantLicenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&input)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.licenseService.Grant(c.Request.Context(), caller, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// POST /licenses/:license_id/revoke
func (h *LicenseHandler) Revoke(c *gin.Context) {
	caller, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	licenseID, err := strconv.ParseUint(c.Param("license_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license id", nil)
		return
	}

	result, err := h.licenseService.Revoke(c.Request.Context(), caller, licenseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /licenses/:license_id
func (h *LicenseHandler) Get(c *gin.Context) {
	licenseID, err := strconv.ParseUint(c.Param("license_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license id", nil)
		return
	}

	license, err := h.licenseService.Get(licenseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// GET /licenses
func (h *LicenseHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.LicenseFilters{
		Licensor: c.Query("licensor"),
		Licensee: c.Query("licensee"),
	}
	if tokenStr := c.Query("token_id"); tokenStr != "" {
		if tokenID, err := strconv.ParseUint(tokenStr, 10, 64); err == nil {
			filters.TokenID = &tokenID
		}
	}
	if active := c.Query("is_active"); active != "" {
		val := active == "true"
		filters.IsActive = &val
	}

	result, err := h.licenseService.List(filters, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /licenses/fee
func (h *LicenseHandler) Fee(c *gin.Context) {
	fee, err := h.licenseService.FeeEth(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"fee_eth": fee})
}
