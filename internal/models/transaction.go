// internal/models/transaction.go
package models

type Transaction struct {
	BaseModel
	TxHash      string            `json:"tx_hash" gorm:"size:66;uniqueIndex;not null"`
	FromAddress string            `json:"from_address" gorm:"size:42;not null;index"`
	ToAddress   string            `json:"to_address" gorm:"size:42;index"`
	TxType      TransactionType   `json:"tx_type" gorm:"type:varchar(30);not null;index"`
	Status      TransactionStatus `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`
	TokenID     *uint64           `json:"token_id,omitempty" gorm:"index"`
	Metadata    JSONB             `json:"metadata" gorm:"type:jsonb"`
}
