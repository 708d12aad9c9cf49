package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is an immutable record of a committed multi-item deduction. Only the
// payment fields change after creation.
type Sale struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID       `gorm:"column:customer_id;type:uuid;not null"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Items       []SaleLineItem  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	AmountPaid  decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	Settled     bool            `gorm:"column:settled;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
