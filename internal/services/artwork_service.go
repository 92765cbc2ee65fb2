// internal/services/artwork_service.go
package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// platformFeeBps is the marketplace cut on sales, in basis points.
const platformFeeBps = 500

// ArtworkService drives registration and ownership flows. Writes to the
// artworks table happen only after the matching transaction confirms on
// chain.
type ArtworkService struct {
	db    *gorm.DB
	chain *ChainService
	pins  *PinService
	dedup *DedupService
}

func NewArtworkService(db *gorm.DB, chain *ChainService, pins *PinService, dedup *DedupService) *ArtworkService {
	return &ArtworkService{db: db, chain: chain, pins: pins, dedup: dedup}
}

type RegisterArtworkInput struct {
	Title       string       `json:"title" validate:"required,max=255"`
	Description string       `json:"description"`
	RoyaltyBps  int          `json:"royalty_bps" validate:"min=0,max=2000"`
	Attributes  models.JSONB `json:"attributes"`
	Tags        []string     `json:"tags"`
}

type RegisterArtworkResult struct {
	Dedup       *DedupResult `json:"dedup"`
	ImageURI    string       `json:"image_uri,omitempty"`
	MetadataURI string       `json:"metadata_uri,omitempty"`
	Tx          *TxPayload   `json:"tx,omitempty"`
}

// RegisterWithImage runs the upload through the dedup funnel, pins the
// image and its metadata document, and prepares the registerArtwork call.
// Duplicates stop at the funnel; the result carries the verdict either way.
func (s *ArtworkService) RegisterWithImage(ctx context.Context, creator string, input RegisterArtworkInput, filename, contentType string, imageData []byte) (*RegisterArtworkResult, error) {
	if input.RoyaltyBps < 0 || input.RoyaltyBps > models.MaxRoyaltyBps {
		return nil, fmt.Errorf("%w: royalty_bps must be within [0, %d]", ErrValidation, models.MaxRoyaltyBps)
	}

	creatorAddr, err := utils.NormalizeAddress(creator)
	if err != nil {
		return nil, fmt.Errorf("%w: creator: %v", ErrValidation, err)
	}

	verdict, err := s.dedup.CheckAndStore(ctx, filename, contentType, imageData)
	if err != nil {
		return nil, err
	}
	if verdict.Duplicate() {
		return &RegisterArtworkResult{Dedup: verdict}, nil
	}

	imageURI, err := s.pins.PinBytes(ctx, imageData, filename)
	if err != nil {
		return nil, fmt.Errorf("pin image: %w", err)
	}

	metadata := map[string]interface{}{
		"name":        input.Title,
		"description": input.Description,
		"image":       imageURI,
		"attributes":  input.Attributes,
	}
	metadataURI, err := s.pins.PinJSON(ctx, metadata, input.Title+"-metadata.json")
	if err != nil {
		return nil, fmt.Errorf("pin metadata: %w", err)
	}

	var payload *TxPayload
	err = utils.Retry(ctx, utils.DefaultRetryPolicy, func() error {
		var prepErr error
		payload, prepErr = s.chain.PrepareRegister(ctx, common.HexToAddress(creatorAddr), metadataURI, input.RoyaltyBps)
		return prepErr
	})
	if err != nil {
		return nil, err
	}

	return &RegisterArtworkResult{
		Dedup:       verdict,
		ImageURI:    imageURI,
		MetadataURI: metadataURI,
		Tx:          payload,
	}, nil
}

type ConfirmRegistrationInput struct {
	TxHash         string       `json:"tx_hash" validate:"required,tx_hash"`
	CreatorAddress string       `json:"creator_address" validate:"required,eth_addr"`
	Title          string       `json:"title" validate:"required,max=255"`
	Description    string       `json:"description"`
	MetadataURI    string       `json:"metadata_uri" validate:"required"`
	RoyaltyBps     int          `json:"royalty_bps" validate:"min=0,max=2000"`
	Attributes     models.JSONB `json:"attributes"`
	Tags           []string     `json:"tags"`
}

// ConfirmRegistration verifies the registration receipt, extracts the
// assigned token id from the ArtworkRegistered event, and records the
// artwork. Re-confirming the same transaction returns the existing row.
func (s *ArtworkService) ConfirmRegistration(ctx context.Context, input ConfirmRegistrationInput) (*models.Artwork, error) {
	creatorAddr, err := utils.NormalizeAddress(input.CreatorAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: creator_address: %v", ErrValidation, err)
	}

	receipt, err := s.chain.Receipt(ctx, input.TxHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: registration transaction reverted", ErrValidation)
	}

	tokenID, err := s.chain.RegisteredTokenID(receipt)
	if err != nil {
		return nil, err
	}

	var existing models.Artwork
	if err := s.db.Where("token_id = ?", tokenID).First(&existing).Error; err == nil {
		return &existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, _ := utils.NormalizeTxHash(input.TxHash)
	artwork := &models.Artwork{
		TokenID:        tokenID,
		CreatorAddress: creatorAddr,
		OwnerAddress:   creatorAddr,
		MetadataURI:    input.MetadataURI,
		RoyaltyBps:     input.RoyaltyBps,
		Title:          input.Title,
		Description:    input.Description,
		Attributes:     input.Attributes,
		Tags:           models.StringArray(input.Tags),
		TxHash:         hash,
	}
	if err := s.db.Create(artwork).Error; err != nil {
		return nil, fmt.Errorf("create artwork: %w", err)
	}

	return artwork, nil
}

// GetByToken fetches one recorded artwork.
func (s *ArtworkService) GetByToken(tokenID uint64) (*models.Artwork, error) {
	var artwork models.Artwork
	if err := s.db.Where("token_id = ?", tokenID).First(&artwork).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: artwork %d", ErrNotFound, tokenID)
		}
		return nil, err
	}
	return &artwork, nil
}

type ArtworkFilters struct {
	Owner      string
	Creator    string
	IsLicensed *bool
}

// List returns recorded artworks matching the filters.
func (s *ArtworkService) List(filters ArtworkFilters, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Artwork{})

	if filters.Owner != "" {
		addr, err := utils.NormalizeAddress(filters.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: owner: %v", ErrValidation, err)
		}
		query = query.Where("owner_address = ?", addr)
	}
	if filters.Creator != "" {
		addr, err := utils.NormalizeAddress(filters.Creator)
		if err != nil {
			return nil, fmt.Errorf("%w: creator: %v", ErrValidation, err)
		}
		query = query.Where("creator_address = ?", addr)
	}
	if filters.IsLicensed != nil {
		query = query.Where("is_licensed = ?", *filters.IsLicensed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var artworks []models.Artwork
	query = utils.ApplySort(query, params, []string{"created_at", "token_id", "title"})
	if err := utils.ApplyPagination(query, params).Find(&artworks).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(artworks, total, params)
	return &result, nil
}

// PrepareTransfer builds the transfer call after checking that the
// caller owns the recorded artwork.
func (s *ArtworkService) PrepareTransfer(ctx context.Context, caller string, tokenID uint64, to string) (*TxPayload, error) {
	callerAddr, err := utils.NormalizeAddress(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: caller: %v", ErrValidation, err)
	}
	toAddr, err := utils.NormalizeAddress(to)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrValidation, err)
	}

	artwork, err := s.GetByToken(tokenID)
	if err != nil {
		return nil, err
	}
	if artwork.OwnerAddress != callerAddr {
		return nil, fmt.Errorf("%w: only the current owner may transfer", ErrNotAuthorized)
	}

	var payload *TxPayload
	err = utils.Retry(ctx, utils.DefaultRetryPolicy, func() error {
		var prepErr error
		payload, prepErr = s.chain.PrepareTransfer(ctx, common.HexToAddress(callerAddr), tokenID, common.HexToAddress(toAddr))
		return prepErr
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

type SaleQuote struct {
	TokenID        uint64 `json:"token_id"`
	PriceWei       string `json:"price_wei"`
	PlatformFeeWei string `json:"platform_fee_wei"`
	RoyaltyWei     string `json:"royalty_wei"`
	SellerNetWei   string `json:"seller_net_wei"`
	SecondarySale  bool   `json:"secondary_sale"`
}

// QuoteSale breaks a sale price into platform fee, creator royalty, and
// seller proceeds. Royalties apply only to secondary sales, where the
// seller is no longer the creator.
func (s *ArtworkService) QuoteSale(tokenID uint64, priceWei *big.Int) (*SaleQuote, error) {
	if priceWei == nil || priceWei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: sale price must be positive", ErrValidation)
	}

	artwork, err := s.GetByToken(tokenID)
	if err != nil {
		return nil, err
	}

	platformFee := new(big.Int).Mul(priceWei, big.NewInt(platformFeeBps))
	platformFee.Div(platformFee, big.NewInt(10000))

	royalty := big.NewInt(0)
	secondary := artwork.OwnerAddress != artwork.CreatorAddress
	if secondary {
		royalty = new(big.Int).Mul(priceWei, big.NewInt(int64(artwork.RoyaltyBps)))
		royalty.Div(royalty, big.NewInt(10000))
	}

	net := new(big.Int).Sub(priceWei, platformFee)
	net.Sub(net, royalty)

	return &SaleQuote{
		TokenID:        tokenID,
		PriceWei:       priceWei.String(),
		PlatformFeeWei: platformFee.String(),
		RoyaltyWei:     royalty.String(),
		SellerNetWei:   net.String(),
		SecondarySale:  secondary,
	}, nil
}

// PrepareSale builds the buyer's payment transaction to the current
// owner.
func (s *ArtworkService) PrepareSale(ctx context.Context, buyer string, tokenID uint64, priceWei *big.Int) (*TxPayload, error) {
	buyerAddr, err := utils.NormalizeAddress(buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer: %v", ErrValidation, err)
	}

	artwork, err := s.GetByToken(tokenID)
	if err != nil {
		return nil, err
	}
	if artwork.OwnerAddress == buyerAddr {
		return nil, fmt.Errorf("%w: buyer already owns artwork %d", ErrValidation, tokenID)
	}

	var payload *TxPayload
	err = utils.Retry(ctx, utils.DefaultRetryPolicy, func() error {
		var prepErr error
		payload, prepErr = s.chain.PrepareSale(ctx,
			common.HexToAddress(buyerAddr),
			common.HexToAddress(artwork.OwnerAddress),
			tokenID, priceWei)
		return prepErr
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// ConfirmOwnershipChange verifies the receipt of a confirmed transfer or
// sale and moves ownership to the new address.
func (s *ArtworkService) ConfirmOwnershipChange(ctx context.Context, tokenID uint64, txHash, newOwner string) (*models.Artwork, error) {
	ownerAddr, err := utils.NormalizeAddress(newOwner)
	if err != nil {
		return nil, fmt.Errorf("%w: new_owner: %v", ErrValidation, err)
	}

	receipt, err := s.chain.Receipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: ownership transaction reverted", ErrValidation)
	}

	artwork, err := s.GetByToken(tokenID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(artwork).Update("owner_address", ownerAddr).Error; err != nil {
		return nil, fmt.Errorf("update owner: %w", err)
	}
	artwork.OwnerAddress = ownerAddr

	return artwork, nil
}
