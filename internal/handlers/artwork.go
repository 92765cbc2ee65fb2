// internal/handlers/artwork.go
package handlers

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

type ArtworkHandler struct {
	artworkService *services.ArtworkService
}

func NewArtworkHandler(artworkService *services.ArtworkService) *ArtworkHandler {
	return &ArtworkHandler{
		artworkService: artworkService,
	}
}

// POST /artworks/register
// Multipart: the image under "file", artwork fields alongside it.
func (h *ArtworkHandler) Register(c *gin.Context) {
	caller, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Missing file field", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read upload", nil)
		return
	}

	input := services.RegisterArtworkInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if bpsStr := c.PostForm("royalty_bps"); bpsStr != "" {
		bps, err := strconv.Atoi(bpsStr)
		if err != nil {
			utils.BadRequestResponse(c, "royalty_bps must be an integer", nil)
			return
		}
		input.RoyaltyBps = bps
	}
	if attrs := c.PostForm("attributes"); attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &input.Attributes); err != nil {
			utils.BadRequestResponse(c, "attributes must be a JSON object", nil)
			return
		}
	}
	if tags := c.PostFormArray("tags"); len(tags) > 0 {
		input.Tags = tags
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&input)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.artworkService.RegisterWithImage(c.Request.Context(), caller, input, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.Dedup.Duplicate() {
		c.JSON(http.StatusConflict, utils.APIResponse{Success: false, Data: result, Error: &utils.APIError{
			Code:   "DUPLICATE",
			Detail: "Image rejected by duplicate detection: " + string(result.Dedup.Status),
		}})
		return
	}

	utils.CreatedResponse(c, result)
}

// POST /artworks/confirm
func (h *ArtworkHandler) ConfirmRegistration(c *gin.Context) {
	var input services.ConfirmRegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&input)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	artwork, err := h.artworkService.ConfirmRegistration(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, artwork)
}

// GET /artworks
func (h *ArtworkHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.ArtworkFilters{
		Owner:   c.Query("owner"),
		Creator: c.Query("creator"),
	}
	if licensed := c.Query("is_licensed"); licensed != "" {
		val := licensed == "true"
		filters.IsLicensed = &val
	}

	result, err := h.artworkService.List(filters, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /artworks/:token_id
func (h *ArtworkHandler) Get(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	artwork, err := h.artworkService.GetByToken(tokenID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, artwork)
}

type transferRequest struct {
	To string `json:"to" validate:"required,eth_addr"`
}

// POST /artworks/:token_id/transfer
func (h *ArtworkHandler) PrepareTransfer(c *gin.Context) {
	caller, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	payload, err := h.artworkService.PrepareTransfer(c.Request.Context(), caller, tokenID, req.To)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"tx": payload})
}

type saleRequest struct {
	PriceWei string `json:"price_wei" validate:"required"`
}

// POST /artworks/:token_id/sale
func (h *ArtworkHandler) PrepareSale(c *gin.Context) {
	caller, ok := utils.GetWalletFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	price, ok := new(big.Int).SetString(req.PriceWei, 10)
	if !ok {
		utils.BadRequestResponse(c, "price_wei must be a decimal integer", nil)
		return
	}

	payload, err := h.artworkService.PrepareSale(c.Request.Context(), caller, tokenID, price)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	quote, err := h.artworkService.QuoteSale(tokenID, price)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"tx": payload, "quote": quote})
}

// GET /artworks/:token_id/sale/quote?price_wei=...
func (h *ArtworkHandler) QuoteSale(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	price, ok := new(big.Int).SetString(c.Query("price_wei"), 10)
	if !ok {
		utils.BadRequestResponse(c, "price_wei must be a decimal integer", nil)
		return
	}

	quote, err := h.artworkService.QuoteSale(tokenID, price)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, quote)
}

type ownershipConfirmRequest struct {
	TxHash   string `json:"tx_hash" validate:"required,tx_hash"`
	NewOwner string `json:"new_owner" validate:"required,eth_addr"`
}

// POST /artworks/:token_id/confirm-ownership
// Shared by transfer and sale confirmation.
func (h *ArtworkHandler) ConfirmOwnershipChange(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req ownershipConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	artwork, err := h.artworkService.ConfirmOwnershipChange(c.Request.Context(), tokenID, req.TxHash, req.NewOwner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, artwork)
}
