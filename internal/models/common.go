// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Base model with common fields. IDs are assigned in BeforeCreate so the
// schema works on databases without a uuid function.
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Float64Slice stores a numeric vector as a JSON array so it round-trips
// through both Postgres and the sqlite test driver.
type Float64Slice []float64

func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func (f *Float64Slice) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, f)
}

// StringArray is a native text[] on Postgres and a delimited text
// column on other dialects (the sqlite test driver).
type StringArray pq.StringArray

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

// GormDataType lets gorm's schema parser treat the slice as a plain
// column; the migrator still takes the dialect type from GormDBDataType.
func (StringArray) GormDataType() string {
	return "text"
}

func (StringArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Enums
type LicenseType string

const (
	LicenseTypePersonal   LicenseType = "PERSONAL"
	LicenseTypeCommercial LicenseType = "COMMERCIAL"
	LicenseTypeExclusive  LicenseType = "EXCLUSIVE"
)

// ContractEnum returns the uint8 the smart contract uses for the type.
func (t LicenseType) ContractEnum() (uint8, bool) {
	switch t {
	case LicenseTypePersonal:
		return 0, true
	case LicenseTypeCommercial:
		return 1, true
	case LicenseTypeExclusive:
		return 2, true
	}
	return 0, false
}

type TransactionType string

const (
	TransactionTypeRegistration  TransactionType = "artwork_registration"
	TransactionTypeLicenseGrant  TransactionType = "license_grant"
	TransactionTypeLicenseRevoke TransactionType = "license_revoke"
	TransactionTypeSale          TransactionType = "artwork_sale"
	TransactionTypeTransfer      TransactionType = "artwork_transfer"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

type UploadStatus string

const (
	UploadStatusCreated             UploadStatus = "created"
	UploadStatusDuplicateExact      UploadStatus = "duplicate_exact"
	UploadStatusDuplicatePerceptual UploadStatus = "duplicate_perceptual"
	UploadStatusDuplicateAI         UploadStatus = "duplicate_ai"
	UploadStatusRejectedAI          UploadStatus = "rejected_ai"
)
