package drops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/bitetrack-backend/pkg/db"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the drop ledger repository to the DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, drop *models.InventoryDrop) error {
	return r.db.WithContext(ctx).Create(drop).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error) {
	var drop models.InventoryDrop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&drop).Error; err != nil {
		return nil, err
	}
	return &drop, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error) {
	var drop models.InventoryDrop
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&drop).Error
	if err != nil {
		return nil, err
	}
	return &drop, nil
}

// MarkUndone flips is_undone only while it is still false. Losing that race
// surfaces as db.ErrConcurrentUpdate so the replayed scope sees the winner.
func (r *repository) MarkUndone(ctx context.Context, id, actorID uuid.UUID, at time.Time, reason *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryDrop{}).
		Where("id = ? AND is_undone = ?", id, false).
		Updates(map[string]any{
			"is_undone":   true,
			"undone_by":   actorID,
			"undone_at":   at,
			"undo_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dbpkg.ErrConcurrentUpdate
	}
	return nil
}

// List returns drops newest first using a (dropped_at, id) keyset cursor.
// It fetches one row past the limit so callers can detect another page.
func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.InventoryDrop, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	q := r.db.WithContext(ctx).Model(&models.InventoryDrop{})
	if filters.ProductID != nil {
		q = q.Where("product_id = ?", *filters.ProductID)
	}
	if filters.Reason != nil {
		q = q.Where("reason = ?", *filters.Reason)
	}
	if filters.UndoableOnly {
		q = q.Where("is_undone = ? AND undo_expires_at > ?", false, filters.Now)
	}
	if cursor != nil {
		q = q.Where("(dropped_at < ?) OR (dropped_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}
	var rows []models.InventoryDrop
	err = q.
		Order("dropped_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// SummarizeByReason totals drops that are still in effect and were recorded in
// [from, to), one row per reason.
func (r *repository) SummarizeByReason(ctx context.Context, from, to time.Time) ([]ReasonTotal, error) {
	var rows []ReasonTotal
	err := r.db.WithContext(ctx).
		Model(&models.InventoryDrop{}).
		Select("reason, COUNT(*) AS drops, COALESCE(SUM(quantity_dropped), 0) AS units, COALESCE(SUM(total_value_lost), 0) AS value_lost").
		Where("is_undone = ? AND dropped_at >= ? AND dropped_at < ?", false, from, to).
		Group("reason").
		Order("reason ASC").
		Scan(&rows).Error
	return rows, err
}
