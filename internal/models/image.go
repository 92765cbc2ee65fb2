// internal/models/image.go
package models

// Image holds the fingerprint set of an accepted upload. Hash is the
// sha256 of the raw bytes, PHash the 64-bit perceptual hash in hex, and
// Embedding the normalized feature vector used for cosine comparison.
type Image struct {
	BaseModel
	Filename   string       `json:"filename" gorm:"size:255"`
	Hash       string       `json:"hash" gorm:"size:64;uniqueIndex;not null"`
	PHash      string       `json:"phash" gorm:"size:16;index"`
	Embedding  Float64Slice `json:"embedding,omitempty" gorm:"type:jsonb"`
	StorageKey string       `json:"storage_key" gorm:"size:255"`
	Size       int64        `json:"size"`
	MimeType   string       `json:"mime_type" gorm:"size:100"`
}
