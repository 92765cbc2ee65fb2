// internal/services/license_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artdrm/artdrm-backend/internal/database"
	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

const (
	minLicenseDays = 1
	maxLicenseDays = 365
)

// LicenseService owns the license lifecycle: grant, revoke, queries.
// The grant path locks the artwork row so ownership cannot change
// between the authorization check and the write.
type LicenseService struct {
	db    *gorm.DB
	chain *ChainService
	pins  *PinService
}

func NewLicenseService(db *gorm.DB, chain *ChainService, pins *PinService) *LicenseService {
	return &LicenseService{db: db, chain: chain, pins: pins}
}

type GrantLicenseInput struct {
	TokenID         uint64             `json:"token_id" validate:"required"`
	LicenseeAddress string             `json:"licensee_address" validate:"required,eth_addr"`
	DurationDays    int                `json:"duration_days" validate:"required,min=1,max=365"`
	LicenseType     models.LicenseType `json:"license_type" validate:"required,oneof=PERSONAL COMMERCIAL EXCLUSIVE"`
}

type GrantLicenseResult struct {
	License  *models.License `json:"license"`
	TermsURI string          `json:"terms_uri"`
	Tx       *TxPayload      `json:"tx"`
	FeeEth   string          `json:"fee_eth"`
}

// Grant validates the request, pins the license terms document, prepares
// the on-chain call, and persists the license record, all while holding a
// row lock on the artwork.
func (s *LicenseService) Grant(ctx context.Context, licensor string, input GrantLicenseInput) (*GrantLicenseResult, error) {
	if input.DurationDays < minLicenseDays || input.DurationDays > maxLicenseDays {
		return nil, fmt.Errorf("%w: duration_days must be within [%d, %d]", ErrValidation, minLicenseDays, maxLicenseDays)
	}
	if _, ok := input.LicenseType.ContractEnum(); !ok {
		return nil, fmt.Errorf("%w: unknown license type %q", ErrValidation, input.LicenseType)
	}

	licensorAddr, err := utils.NormalizeAddress(licensor)
	if err != nil {
		return nil, fmt.Errorf("%w: licensor: %v", ErrValidation, err)
	}
	licenseeAddr, err := utils.NormalizeAddress(input.LicenseeAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: licensee_address: %v", ErrValidation, err)
	}

	fee, err := s.chain.LicenseFeeWei(ctx)
	if err != nil {
		return nil, err
	}

	var result *GrantLicenseResult
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		artwork, err := lockArtwork(tx, input.TokenID)
		if err != nil {
			return err
		}
		if artwork.OwnerAddress != licensorAddr {
			return fmt.Errorf("%w: only the current owner may grant licenses", ErrNotAuthorized)
		}

		var count int64
		if err := tx.Model(&models.License{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count licenses: %w", err)
		}
		licenseID := uint64(count) + 1

		now := time.Now().UTC()
		endDate := now.AddDate(0, 0, input.DurationDays)

		terms := licenseTermsDocument(licenseID, input, artwork, licensorAddr, licenseeAddr, now, endDate)
		termsURI, err := s.pins.PinJSON(ctx, terms, fmt.Sprintf("license-%d-terms.json", licenseID))
		if err != nil {
			return fmt.Errorf("pin license terms: %w", err)
		}

		var payload *TxPayload
		err = utils.Retry(ctx, utils.DefaultRetryPolicy, func() error {
			var prepErr error
			payload, prepErr = s.chain.PrepareGrantLicense(ctx,
				common.HexToAddress(licensorAddr), input.TokenID,
				common.HexToAddress(licenseeAddr), input.DurationDays,
				termsURI, input.LicenseType)
			return prepErr
		})
		if err != nil {
			return err
		}

		license := &models.License{
			LicenseID:       licenseID,
			TokenID:         input.TokenID,
			LicensorAddress: licensorAddr,
			LicenseeAddress: licenseeAddr,
			StartDate:       now,
			EndDate:         endDate,
			TermsHash:       termsURI,
			LicenseType:     input.LicenseType,
			IsActive:        true,
			FeePaid:         licenseFeeEth,
		}
		if err := tx.Create(license).Error; err != nil {
			return fmt.Errorf("create license: %w", err)
		}

		if !artwork.IsLicensed {
			if err := tx.Model(artwork).Update("is_licensed", true).Error; err != nil {
				return fmt.Errorf("mark artwork licensed: %w", err)
			}
		}

		result = &GrantLicenseResult{
			License:  license,
			TermsURI: termsURI,
			Tx:       payload,
			FeeEth:   utils.WeiToEther(fee),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type RevokeLicenseResult struct {
	License *models.License `json:"license"`
	Tx      *TxPayload      `json:"tx"`
}

// Revoke deactivates a license. Only the original licensor may revoke;
// revoking twice is a conflict. The artwork's licensed flag is recomputed
// from the remaining active, unexpired licenses.
func (s *LicenseService) Revoke(ctx context.Context, caller string, licenseID uint64) (*RevokeLicenseResult, error) {
	callerAddr, err := utils.NormalizeAddress(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: caller: %v", ErrValidation, err)
	}

	var result *RevokeLicenseResult
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var license models.License
		if err := tx.Where("license_id = ?", licenseID).First(&license).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: license %d", ErrNotFound, licenseID)
			}
			return err
		}

		if license.LicensorAddress != callerAddr {
			return fmt.Errorf("%w: only the licensor may revoke", ErrNotAuthorized)
		}
		if !license.IsActive {
			return fmt.Errorf("%w: license %d already revoked", ErrConflict, licenseID)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"is_active": false, "revoked_at": now}
		if err := tx.Model(&license).Updates(updates).Error; err != nil {
			return fmt.Errorf("revoke license: %w", err)
		}
		license.IsActive = false
		license.RevokedAt = &now

		// Other licenses may still cover the artwork.
		var remaining int64
		err := tx.Model(&models.License{}).
			Where("token_id = ? AND license_id <> ? AND is_active = ? AND end_date > ?",
				license.TokenID, licenseID, true, now).
			Count(&remaining).Error
		if err != nil {
			return fmt.Errorf("count remaining licenses: %w", err)
		}

		err = tx.Model(&models.Artwork{}).
			Where("token_id = ?", license.TokenID).
			Update("is_licensed", remaining > 0).Error
		if err != nil {
			return fmt.Errorf("recompute is_licensed: %w", err)
		}

		var payload *TxPayload
		err = utils.Retry(ctx, utils.DefaultRetryPolicy, func() error {
			var prepErr error
			payload, prepErr = s.chain.PrepareRevokeLicense(ctx, common.HexToAddress(callerAddr), licenseID)
			return prepErr
		})
		if err != nil {
			return err
		}

		result = &RevokeLicenseResult{License: &license, Tx: payload}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Get fetches one license by its sequential id.
func (s *LicenseService) Get(licenseID uint64) (*models.License, error) {
	var license models.License
	if err := s.db.Where("license_id = ?", licenseID).First(&license).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: license %d", ErrNotFound, licenseID)
		}
		return nil, err
	}
	return &license, nil
}

type LicenseFilters struct {
	TokenID  *uint64
	Licensor string
	Licensee string
	IsActive *bool
}

// List returns licenses matching the filters. The is_active filter folds
// in lazy expiry, so expired-but-unrevoked licenses count as inactive.
func (s *LicenseService) List(filters LicenseFilters, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.License{})
	now := time.Now().UTC()

	if filters.TokenID != nil {
		query = query.Where("token_id = ?", *filters.TokenID)
	}
	if filters.Licensor != "" {
		addr, err := utils.NormalizeAddress(filters.Licensor)
		if err != nil {
			return nil, fmt.Errorf("%w: licensor: %v", ErrValidation, err)
		}
		query = query.Where("licensor_address = ?", addr)
	}
	if filters.Licensee != "" {
		addr, err := utils.NormalizeAddress(filters.Licensee)
		if err != nil {
			return nil, fmt.Errorf("%w: licensee: %v", ErrValidation, err)
		}
		query = query.Where("licensee_address = ?", addr)
	}
	if filters.IsActive != nil {
		if *filters.IsActive {
			query = query.Where("is_active = ? AND end_date > ?", true, now)
		} else {
			query = query.Where("is_active = ? OR end_date <= ?", false, now)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var licenses []models.License
	query = utils.ApplySort(query, params, []string{"created_at", "end_date", "license_id"})
	if err := utils.ApplyPagination(query, params).Find(&licenses).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(licenses, total, params)
	return &result, nil
}

// FeeEth returns the current license fee in ether.
func (s *LicenseService) FeeEth(ctx context.Context) (string, error) {
	fee, err := s.chain.LicenseFeeWei(ctx)
	if err != nil {
		return "", err
	}
	return utils.WeiToEther(fee), nil
}

// lockArtwork reads the artwork under SELECT ... FOR UPDATE so ownership
// checks and dependent writes see a stable row. SQLite (tests) has no row
// locks; its single-writer model gives the same isolation.
func lockArtwork(tx *gorm.DB, tokenID uint64) (*models.Artwork, error) {
	query := tx.Where("token_id = ?", tokenID)
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var artwork models.Artwork
	if err := query.First(&artwork).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: artwork %d", ErrNotFound, tokenID)
		}
		return nil, err
	}
	return &artwork, nil
}

// licenseTermsDocument builds the JSON document pinned to IPFS as the
// canonical license terms.
func licenseTermsDocument(licenseID uint64, input GrantLicenseInput, artwork *models.Artwork, licensor, licensee string, start, end time.Time) map[string]interface{} {
	var permissions, restrictions []string
	switch input.LicenseType {
	case models.LicenseTypePersonal:
		permissions = []string{"personal_use", "display"}
		restrictions = []string{"no_commercial_use", "no_redistribution", "no_derivatives"}
	case models.LicenseTypeCommercial:
		permissions = []string{"commercial_use", "display", "reproduction"}
		restrictions = []string{"no_sublicensing", "no_exclusive_claims"}
	case models.LicenseTypeExclusive:
		permissions = []string{"exclusive_use", "commercial_use", "display", "reproduction", "distribution"}
		restrictions = []string{}
	}

	return map[string]interface{}{
		"license_id":    licenseID,
		"token_id":      input.TokenID,
		"artwork_title": artwork.Title,
		"licensor":      licensor,
		"licensee":      licensee,
		"license_type":  string(input.LicenseType),
		"start_date":    start.Format(time.RFC3339),
		"end_date":      end.Format(time.RFC3339),
		"duration_days": input.DurationDays,
		"fee_eth":       licenseFeeEth,
		"permissions":   permissions,
		"restrictions":  restrictions,
	}
}
