// internal/handlers/transaction.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var input services.CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&input)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	record, created, err := h.transactionService.Create(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if created {
		utils.CreatedResponse(c, record)
		return
	}
	utils.SuccessResponse(c, record)
}

// GET /transactions/:tx_hash
func (h *TransactionHandler) Get(c *gin.Context) {
	record, err := h.transactionService.GetByHash(c.Param("tx_hash"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, record)
}

// GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.TransactionFilters{
		Address: c.Query("address"),
		TxType:  models.TransactionType(c.Query("tx_type")),
		Status:  models.TransactionStatus(c.Query("status")),
	}
	if tokenStr := c.Query("token_id"); tokenStr != "" {
		if tokenID, err := strconv.ParseUint(tokenStr, 10, 64); err == nil {
			filters.TokenID = &tokenID
		}
	}

	result, err := h.transactionService.List(filters, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

type statusUpdateRequest struct {
	Status models.TransactionStatus `json:"status" validate:"required,oneof=CONFIRMED FAILED"`
}

// PATCH /transactions/:tx_hash/status
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	record, err := h.transactionService.UpdateStatus(c.Param("tx_hash"), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, record)
}

// POST /transactions/:tx_hash/sync
// Resolves a pending record against its on-chain receipt.
func (h *TransactionHandler) Sync(c *gin.Context) {
	record, err := h.transactionService.SyncFromChain(c.Request.Context(), c.Param("tx_hash"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, record)
}
