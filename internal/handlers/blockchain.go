// internal/handlers/blockchain.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

type BlockchainHandler struct {
	chainService *services.ChainService
}

func NewBlockchainHandler(chainService *services.ChainService) *BlockchainHandler {
	return &BlockchainHandler{
		chainService: chainService,
	}
}

// GET /blockchain/status
func (h *BlockchainHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, h.chainService.Status(c.Request.Context()))
}

// GET /blockchain/gas-price
func (h *BlockchainHandler) GasPrice(c *gin.Context) {
	quote := h.chainService.FeeQuote(c.Request.Context())

	resp := gin.H{"mode": quote.Mode}
	if quote.GasPrice != nil {
		resp["gas_price_wei"] = quote.GasPrice.String()
	}
	if quote.MaxFee != nil {
		resp["max_fee_per_gas_wei"] = quote.MaxFee.String()
		resp["max_priority_fee_per_gas_wei"] = quote.Tip.String()
	}

	utils.SuccessResponse(c, resp)
}

// GET /blockchain/artworks/:token_id
func (h *BlockchainHandler) ArtworkInfo(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	info, err := h.chainService.ArtworkInfo(c.Request.Context(), tokenID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, info)
}

// GET /blockchain/artworks/:token_id/owner
func (h *BlockchainHandler) OwnerOf(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	owner, err := h.chainService.OwnerOf(c.Request.Context(), tokenID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"token_id": tokenID, "owner": owner.Hex()})
}

// GET /blockchain/receipts/:tx_hash
func (h *BlockchainHandler) Receipt(c *gin.Context) {
	receipt, err := h.chainService.Receipt(c.Request.Context(), c.Param("tx_hash"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"tx_hash":      receipt.TxHash.Hex(),
		"status":       receipt.Status,
		"block_number": receipt.BlockNumber.String(),
		"gas_used":     receipt.GasUsed,
	})
}
