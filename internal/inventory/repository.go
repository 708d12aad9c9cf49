package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/bitetrack-backend/pkg/db"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
)

// ProductRepository is the persistence contract for guarded count updates.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CompareAndSetCount(ctx context.Context, id uuid.UUID, expected, next int) error
}

// Repository persists product counts.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindForUpdate loads the product and takes a row lock where the dialect
// supports it. Drivers without row locks rely on CompareAndSetCount.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByID loads the product without locking.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CompareAndSetCount writes next only if the stored count still equals
// expected. A miss means another scope committed first and surfaces as
// db.ErrConcurrentUpdate so the coordinator replays the scope.
func (r *Repository) CompareAndSetCount(ctx context.Context, id uuid.UUID, expected, next int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND count = ?", id, expected).
		Update("count", next)
	if res.Error != nil {
		if dbpkg.IsCheckViolation(res.Error, countConstraint) {
			return errNegativeCount
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dbpkg.ErrConcurrentUpdate
	}
	return nil
}

const countConstraint = "chk_products_count_non_negative"

var errNegativeCount = errors.New("product count would become negative")
