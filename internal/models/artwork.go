// internal/models/artwork.go
package models

// Artwork mirrors the on-chain record once registration is confirmed.
// TokenID is assigned exactly once by the contract; OwnerAddress changes
// only when a sale or transfer transaction confirms.
type Artwork struct {
	BaseModel
	TokenID        uint64      `json:"token_id" gorm:"uniqueIndex;not null"`
	CreatorAddress string      `json:"creator_address" gorm:"size:42;not null;index"`
	OwnerAddress   string      `json:"owner_address" gorm:"size:42;not null;index"`
	MetadataURI    string      `json:"metadata_uri" gorm:"size:255;not null"`
	RoyaltyBps     int         `json:"royalty_bps" gorm:"not null"`
	IsLicensed     bool        `json:"is_licensed" gorm:"default:false"`
	Title          string      `json:"title" gorm:"size:255"`
	Description    string      `json:"description" gorm:"type:text"`
	Attributes     JSONB       `json:"attributes" gorm:"type:jsonb"`
	Tags           StringArray `json:"tags,omitempty"`
	TxHash         string      `json:"tx_hash" gorm:"size:66;index"`
}

// MaxRoyaltyBps caps royalties at 20%, matching the contract's MAX_ROYALTY.
const MaxRoyaltyBps = 2000
