package drops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/internal/inventory"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
	"github.com/angelmondragon/bitetrack-backend/pkg/pagination"
)

type txRunner interface {
	RunAtomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryAdjuster applies guarded count changes inside the caller's scope.
type InventoryAdjuster interface {
	TryDecrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) (*inventory.Adjustment, error)
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) (*inventory.Adjustment, error)
}

type dropObserver interface {
	ObserveDrop(outcome, reason string, units int, valueLost float64)
	ObserveUndo(outcome string)
}

// Repository persists the drop ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, drop *models.InventoryDrop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error)
	MarkUndone(ctx context.Context, id, actorID uuid.UUID, at time.Time, reason *string) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.InventoryDrop, error)
	SummarizeByReason(ctx context.Context, from, to time.Time) ([]ReasonTotal, error)
}
