package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

// Repository exposes the customer operations sales need inside their scope.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a customer.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCustomerNotFound(id)
		}
		return nil, err
	}
	return &customer, nil
}

// TouchLastTransaction stamps the customer's most recent purchase time. A
// missing customer fails the enclosing scope.
func (r *Repository) TouchLastTransaction(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Update("last_transaction_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errCustomerNotFound(id)
	}
	return nil
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func errCustomerNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
		WithDetails(map[string]any{"customerId": id})
}
