// internal/services/transaction_service.go
package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// TransactionService records wallet-submitted transaction hashes and
// tracks their lifecycle. Hashes are stored lowercase and unique;
// re-submitting a known hash updates the record instead of conflicting.
type TransactionService struct {
	db    *gorm.DB
	chain *ChainService
}

func NewTransactionService(db *gorm.DB, chain *ChainService) *TransactionService {
	return &TransactionService{db: db, chain: chain}
}

type CreateTransactionInput struct {
	TxHash      string                 `json:"tx_hash" validate:"required,tx_hash"`
	FromAddress string                 `json:"from_address" validate:"required,eth_addr"`
	ToAddress   string                 `json:"to_address" validate:"omitempty,eth_addr"`
	TxType      models.TransactionType `json:"tx_type" validate:"required,oneof=artwork_registration license_grant license_revoke artwork_sale artwork_transfer"`
	TokenID     *uint64                `json:"token_id"`
	Metadata    models.JSONB           `json:"metadata"`
}

// Create records a transaction, idempotently on duplicate hash. The
// second return value reports whether a new row was inserted.
func (s *TransactionService) Create(input CreateTransactionInput) (*models.Transaction, bool, error) {
	hash, err := utils.NormalizeTxHash(input.TxHash)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	from, err := utils.NormalizeAddress(input.FromAddress)
	if err != nil {
		return nil, false, fmt.Errorf("%w: from_address: %v", ErrValidation, err)
	}

	var to string
	if input.ToAddress != "" {
		if to, err = utils.NormalizeAddress(input.ToAddress); err != nil {
			return nil, false, fmt.Errorf("%w: to_address: %v", ErrValidation, err)
		}
	}

	var existing models.Transaction
	err = s.db.Where("tx_hash = ?", hash).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{}
		if input.Metadata != nil {
			updates["metadata"] = input.Metadata
		}
		if input.TokenID != nil {
			updates["token_id"] = *input.TokenID
		}
		if len(updates) > 0 {
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				return nil, false, fmt.Errorf("update transaction: %w", err)
			}
		}
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, fmt.Errorf("transaction lookup: %w", err)
	}

	record := &models.Transaction{
		TxHash:      hash,
		FromAddress: from,
		ToAddress:   to,
		TxType:      input.TxType,
		Status:      models.TransactionStatusPending,
		TokenID:     input.TokenID,
		Metadata:    input.Metadata,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, false, fmt.Errorf("create transaction: %w", err)
	}

	return record, true, nil
}

// GetByHash fetches one record by its lowercase hash.
func (s *TransactionService) GetByHash(txHash string) (*models.Transaction, error) {
	hash, err := utils.NormalizeTxHash(txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var record models.Transaction
	if err := s.db.Where("tx_hash = ?", hash).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, hash)
		}
		return nil, err
	}
	return &record, nil
}

type TransactionFilters struct {
	Address string
	TxType  models.TransactionType
	Status  models.TransactionStatus
	TokenID *uint64
}

// List returns records matching the filters, newest first by default.
func (s *TransactionService) List(filters TransactionFilters, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Transaction{})

	if filters.Address != "" {
		addr, err := utils.NormalizeAddress(filters.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: address: %v", ErrValidation, err)
		}
		query = query.Where("from_address = ? OR to_address = ?", addr, addr)
	}
	if filters.TxType != "" {
		query = query.Where("tx_type = ?", filters.TxType)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.TokenID != nil {
		query = query.Where("token_id = ?", *filters.TokenID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []models.Transaction
	query = utils.ApplySort(query, params, []string{"created_at", "status", "tx_type"})
	if err := utils.ApplyPagination(query, params).Find(&records).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(records, total, params)
	return &result, nil
}

// UpdateStatus moves a pending record to CONFIRMED or FAILED.
func (s *TransactionService) UpdateStatus(txHash string, status models.TransactionStatus) (*models.Transaction, error) {
	if status != models.TransactionStatusConfirmed && status != models.TransactionStatusFailed {
		return nil, fmt.Errorf("%w: status must be CONFIRMED or FAILED", ErrValidation)
	}

	record, err := s.GetByHash(txHash)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(record).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	record.Status = status
	return record, nil
}

// SyncFromChain resolves a pending record against its on-chain receipt.
func (s *TransactionService) SyncFromChain(ctx context.Context, txHash string) (*models.Transaction, error) {
	record, err := s.GetByHash(txHash)
	if err != nil {
		return nil, err
	}

	receipt, err := s.chain.Receipt(ctx, record.TxHash)
	if err != nil {
		return nil, err
	}

	status := models.TransactionStatusFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = models.TransactionStatusConfirmed
	}

	return s.UpdateStatus(record.TxHash, status)
}
