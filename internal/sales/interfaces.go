package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/internal/inventory"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
)

type txRunner interface {
	RunAtomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryDecrementer applies guarded deductions inside the caller's scope.
type InventoryDecrementer interface {
	TryDecrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) (*inventory.Adjustment, error)
}

// CustomerToucher records the latest purchase time for a customer.
type CustomerToucher interface {
	TouchLastTransaction(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type saleObserver interface {
	ObserveSale(outcome string, units int)
}

// Repository persists sales and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal, settled bool) error
}
