package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
)

// Adjustment reports a committed-in-scope count change.
type Adjustment struct {
	Product *models.Product
	Before  int
	After   int
}

// Store is the only writer of product counts. Every call must run inside an
// atomic scope and receives that scope's transaction.
type Store struct {
	repo ProductRepository
}

// NewStore builds a store over the product repository.
func NewStore(repo ProductRepository) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Store{repo: repo}, nil
}

// TryDecrement removes quantity units when at least that many are on hand.
// On shortfall nothing is written and the error carries the requested and
// available amounts.
func (s *Store) TryDecrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) (*Adjustment, error) {
	if quantity <= 0 {
		return nil, errInvalidQuantity(quantity)
	}
	repo := s.repo.WithTx(tx)
	product, err := s.load(ctx, repo, productID)
	if err != nil {
		return nil, err
	}
	if product.Count < quantity {
		return nil, errInsufficient(InsufficientDetail{
			ProductID: productID,
			Requested: quantity,
			Available: product.Count,
		})
	}
	return s.apply(ctx, repo, product, product.Count-quantity)
}

// Increment adds quantity units. There is no upper bound.
func (s *Store) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) (*Adjustment, error) {
	if quantity <= 0 {
		return nil, errInvalidQuantity(quantity)
	}
	repo := s.repo.WithTx(tx)
	product, err := s.load(ctx, repo, productID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, repo, product, product.Count+quantity)
}

// Get reads a product without locking it; tx may be nil.
func (s *Store) Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.WithTx(tx).FindByID(ctx, productID)
	return productOrNotFound(product, err, productID)
}

func (s *Store) load(ctx context.Context, repo ProductRepository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindForUpdate(ctx, productID)
	return productOrNotFound(product, err, productID)
}

func productOrNotFound(product *models.Product, err error, productID uuid.UUID) (*models.Product, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound(productID)
		}
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	return product, nil
}

func (s *Store) apply(ctx context.Context, repo ProductRepository, product *models.Product, next int) (*Adjustment, error) {
	before := product.Count
	if err := repo.CompareAndSetCount(ctx, product.ID, before, next); err != nil {
		if errors.Is(err, errNegativeCount) {
			return nil, errInsufficient(InsufficientDetail{
				ProductID: product.ID,
				Requested: before - next,
				Available: before,
			})
		}
		return nil, err
	}
	product.Count = next
	return &Adjustment{Product: product, Before: before, After: next}, nil
}
