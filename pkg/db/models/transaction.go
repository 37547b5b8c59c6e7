package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auditmagic/pkg/enums"
)

// Transaction is one append-only ledger entry. It references the item type,
// never the item, and copies the serial number so it outlives deleted units.
type Transaction struct {
	ID              int64                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ItemTypeID      int64                 `gorm:"column:item_type_id;not null" json:"item_type_id"`
	TransactionType enums.TransactionType `gorm:"column:transaction_type;not null" json:"transaction_type"`
	QuantityChange  int                   `gorm:"column:quantity_change;not null" json:"quantity_change"`
	QuantityBefore  int                   `gorm:"column:quantity_before;not null" json:"quantity_before"`
	QuantityAfter   int                   `gorm:"column:quantity_after;not null" json:"quantity_after"`
	SerialNumber    *string               `gorm:"column:serial_number" json:"serial_number,omitempty"`
	Notes           string                `gorm:"column:notes;not null" json:"notes"`
	BatchID         uuid.UUID             `gorm:"column:batch_id;not null" json:"batch_id"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
