// internal/models/license.go
package models

import "time"

// License is the off-chain record of a grantLicense call. LicenseID is a
// small sequential id shared with the contract, distinct from the row UUID.
type License struct {
	BaseModel
	LicenseID       uint64      `json:"license_id" gorm:"uniqueIndex;not null"`
	TokenID         uint64      `json:"token_id" gorm:"not null;index"`
	LicensorAddress string      `json:"licensor_address" gorm:"size:42;not null;index"`
	LicenseeAddress string      `json:"licensee_address" gorm:"size:42;not null;index"`
	StartDate       time.Time   `json:"start_date" gorm:"not null"`
	EndDate         time.Time   `json:"end_date" gorm:"not null;index"`
	TermsHash       string      `json:"terms_hash" gorm:"size:255"`
	LicenseType     LicenseType `json:"license_type" gorm:"type:varchar(20);not null"`
	IsActive        bool        `json:"is_active" gorm:"default:true;index"`
	FeePaid         float64     `json:"fee_paid" gorm:"type:decimal(20,8)"`
	RevokedAt       *time.Time  `json:"revoked_at,omitempty"`
}

// Expired reports lazy expiry; nothing in the store flips licenses over,
// callers compare against the clock on read.
func (l *License) Expired(now time.Time) bool {
	return now.After(l.EndDate)
}

// Valid means active and not yet expired.
func (l *License) Valid(now time.Time) bool {
	return l.IsActive && !l.Expired(now)
}
