package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
)

// InventoryDrop is the permanent ledger row for one waste deduction. Product
// name, price and counts are captured when the drop commits and never change.
type InventoryDrop struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID         uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName       string           `gorm:"column:product_name;not null"`
	OriginalQuantity  int              `gorm:"column:original_quantity;not null"`
	QuantityDropped   int              `gorm:"column:quantity_dropped;not null"`
	RemainingQuantity int              `gorm:"column:remaining_quantity;not null"`
	PricePerUnit      decimal.Decimal  `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	TotalValueLost    decimal.Decimal  `gorm:"column:total_value_lost;type:numeric(12,2);not null"`
	Reason            enums.DropReason `gorm:"column:reason;type:drop_reason_enum;not null"`
	Notes             *string          `gorm:"column:notes"`
	DroppedBy         uuid.UUID        `gorm:"column:dropped_by;type:uuid;not null"`
	DroppedAt         time.Time        `gorm:"column:dropped_at;not null;index"`
	UndoExpiresAt     time.Time        `gorm:"column:undo_expires_at;not null"`
	IsUndone          bool             `gorm:"column:is_undone;not null;default:false"`
	UndoneBy          *uuid.UUID       `gorm:"column:undone_by;type:uuid"`
	UndoneAt          *time.Time       `gorm:"column:undone_at"`
	UndoReason        *string          `gorm:"column:undo_reason"`
}

func (d *InventoryDrop) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Status derives the lifecycle state at the given instant.
func (d InventoryDrop) Status(now time.Time) enums.DropStatus {
	if d.IsUndone {
		return enums.DropStatusUndone
	}
	if !now.Before(d.UndoExpiresAt) {
		return enums.DropStatusExpired
	}
	return enums.DropStatusActive
}

// UndoRemaining is the time left in the undo window, zero once it has closed
// or the drop has been undone.
func (d InventoryDrop) UndoRemaining(now time.Time) time.Duration {
	if d.IsUndone {
		return 0
	}
	remaining := d.UndoExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
