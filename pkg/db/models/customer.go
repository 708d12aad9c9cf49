package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the buyer a sale is recorded against.
type Customer struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FirstName         string     `gorm:"column:first_name;not null"`
	LastName          string     `gorm:"column:last_name;not null"`
	Phone             string     `gorm:"column:phone;not null"`
	Email             *string    `gorm:"column:email"`
	LastTransactionAt *time.Time `gorm:"column:last_transaction_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
