package drops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/bitetrack-backend/pkg/db"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/metrics"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bitetrack-backend/pkg/pagination"
	"github.com/angelmondragon/bitetrack-backend/pkg/tracing"
)

// DefaultUndoWindow is how long a drop stays reversible.
const DefaultUndoWindow = 8 * time.Hour

// Service is the waste drop ledger.
type Service interface {
	DropInventory(ctx context.Context, input DropInput) (*DropResult, error)
	UndoDrop(ctx context.Context, input UndoInput) (*UndoResult, error)
	GetDrop(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error)
	ListDrops(ctx context.Context, input ListDropsInput) (*DropList, error)
	Summarize(ctx context.Context, input SummaryInput) (*WasteSummary, error)
	Now() time.Time
}

// ServiceParams wires the drop ledger.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Inventory  InventoryAdjuster
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Metrics    dropObserver
	Tracer     trace.Tracer
	UndoWindow time.Duration
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	inventory  InventoryAdjuster
	outbox     outboxPublisher
	logg       *logger.Logger
	metrics    dropObserver
	tracer     trace.Tracer
	undoWindow time.Duration
	now        func() time.Time
}

// NewService builds the drop ledger with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("drops repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:       params.Repository,
		tx:         params.Tx,
		inventory:  params.Inventory,
		outbox:     params.Outbox,
		logg:       params.Logger,
		metrics:    params.Metrics,
		tracer:     params.Tracer,
		undoWindow: params.UndoWindow,
		now:        params.Now,
	}
	if svc.metrics == nil {
		svc.metrics = (*metrics.InventoryMetrics)(nil)
	}
	if svc.tracer == nil {
		svc.tracer = tracing.Tracer()
	}
	if svc.undoWindow <= 0 {
		svc.undoWindow = DefaultUndoWindow
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Now is the ledger clock. Status and remaining-window values handed to
// callers are computed against it.
func (s *service) Now() time.Time {
	return s.now().UTC()
}

// DropInventory deducts the quantity and records the drop in one scope.
func (s *service) DropInventory(ctx context.Context, input DropInput) (*DropResult, error) {
	ctx, span := s.tracer.Start(ctx, "drops.drop")
	defer span.End()
	span.SetAttributes(
		attribute.String("drop.product_id", input.ProductID.String()),
		attribute.Int("drop.quantity", input.Quantity),
		attribute.String("drop.reason", input.Reason.String()),
	)

	result, err := s.dropInventory(ctx, input)
	if err != nil {
		s.metrics.ObserveDrop(metrics.OutcomeForError(err), input.Reason.String(), input.Quantity, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	drop := result.Drop
	lost, _ := drop.TotalValueLost.Float64()
	s.metrics.ObserveDrop(metrics.OutcomeCommitted, drop.Reason.String(), drop.QuantityDropped, lost)
	span.SetAttributes(attribute.String("drop.id", drop.ID.String()))

	logCtx := s.logg.WithDrop(s.logg.WithProduct(ctx, drop.ProductID), drop.ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"quantity_dropped": drop.QuantityDropped,
		"remaining":        drop.RemainingQuantity,
		"value_lost":       drop.TotalValueLost.StringFixed(2),
		"reason":           drop.Reason,
	})
	s.logg.Info(logCtx, "inventory dropped")
	return result, nil
}

func (s *service) dropInventory(ctx context.Context, input DropInput) (*DropResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	notes := trimmedOrNil(input.Notes)

	var result *DropResult
	err := s.tx.RunAtomic(ctx, func(tx *gorm.DB) error {
		ctx := dbpkg.ScopeContext(tx)
		now := s.Now()

		adj, err := s.inventory.TryDecrement(ctx, tx, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}
		price := adj.Product.Price
		drop := &models.InventoryDrop{
			ProductID:         adj.Product.ID,
			ProductName:       adj.Product.Name,
			OriginalQuantity:  adj.Before,
			QuantityDropped:   input.Quantity,
			RemainingQuantity: adj.After,
			PricePerUnit:      price,
			TotalValueLost:    price.Mul(decimal.NewFromInt(int64(input.Quantity))),
			Reason:            input.Reason,
			Notes:             notes,
			DroppedBy:         input.ActorID,
			DroppedAt:         now,
			UndoExpiresAt:     now.Add(s.undoWindow),
		}
		if err := s.repo.WithTx(tx).Create(ctx, drop); err != nil {
			return fmt.Errorf("create drop: %w", err)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryDropped,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   drop.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			OccurredAt:    now,
			Data: payloads.InventoryDroppedEvent{
				DropID:            drop.ID,
				ProductID:         drop.ProductID,
				QuantityDropped:   drop.QuantityDropped,
				RemainingQuantity: drop.RemainingQuantity,
				TotalValueLost:    drop.TotalValueLost,
				Reason:            drop.Reason,
				UndoExpiresAt:     drop.UndoExpiresAt,
			},
		}); err != nil {
			return err
		}
		result = &DropResult{Drop: drop, UndoRemaining: drop.UndoRemaining(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UndoDrop restores the dropped quantity on top of the current count and
// marks the drop undone. It succeeds at most once and only while
// now < undoExpiresAt.
func (s *service) UndoDrop(ctx context.Context, input UndoInput) (*UndoResult, error) {
	ctx, span := s.tracer.Start(ctx, "drops.undo")
	defer span.End()
	span.SetAttributes(attribute.String("drop.id", input.DropID.String()))

	result, err := s.undoDrop(ctx, input)
	s.metrics.ObserveUndo(undoOutcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logCtx := s.logg.WithDrop(s.logg.WithProduct(ctx, result.Product.ID), result.Drop.ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"quantity_restored": result.Drop.QuantityDropped,
		"count_after":       result.Product.Count,
	})
	s.logg.Info(logCtx, "inventory drop undone")
	return result, nil
}

func (s *service) undoDrop(ctx context.Context, input UndoInput) (*UndoResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	undoReason := trimmedOrNil(input.UndoReason)

	var result *UndoResult
	err := s.tx.RunAtomic(ctx, func(tx *gorm.DB) error {
		ctx := dbpkg.ScopeContext(tx)
		now := s.Now()
		repo := s.repo.WithTx(tx)

		drop, err := repo.FindByIDForUpdate(ctx, input.DropID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errDropNotFound(input.DropID)
			}
			return err
		}
		if drop.IsUndone {
			return errAlreadyUndone(drop.ID, drop.UndoneAt)
		}
		if !now.Before(drop.UndoExpiresAt) {
			return errUndoWindowExpired(drop.ID, drop.UndoExpiresAt)
		}

		adj, err := s.inventory.Increment(ctx, tx, drop.ProductID, drop.QuantityDropped)
		if err != nil {
			return err
		}
		if err := repo.MarkUndone(ctx, drop.ID, input.ActorID, now, undoReason); err != nil {
			return err
		}
		actorID := input.ActorID
		drop.IsUndone = true
		drop.UndoneBy = &actorID
		drop.UndoneAt = &now
		drop.UndoReason = undoReason

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryDropUndone,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   drop.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			OccurredAt:    now,
			Data: payloads.InventoryDropUndoneEvent{
				DropID:           drop.ID,
				ProductID:        drop.ProductID,
				QuantityRestored: drop.QuantityDropped,
				CountAfter:       adj.After,
				UndoneBy:         input.ActorID,
				UndoneAt:         now,
			},
		}); err != nil {
			return err
		}
		result = &UndoResult{Drop: drop, Product: adj.Product}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetDrop loads a single drop.
func (s *service) GetDrop(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error) {
	drop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errDropNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load drop")
	}
	return drop, nil
}

// ListDrops pages through drop history newest first.
func (s *service) ListDrops(ctx context.Context, input ListDropsInput) (*DropList, error) {
	if input.Reason != nil && !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid drop reason")
	}
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.List(ctx, ListFilters{
		ProductID:    input.ProductID,
		Reason:       input.Reason,
		UndoableOnly: input.UndoableOnly,
		Now:          s.Now(),
	}, pagination.Params{Limit: limit, Cursor: input.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drops")
	}

	items, next := pagination.Trim(rows, limit, func(d models.InventoryDrop) pagination.Cursor {
		return pagination.Cursor{At: d.DroppedAt, ID: d.ID}
	})
	return &DropList{Items: items, NextCursor: next}, nil
}

// Summarize reports waste per reason over a window. Undone drops are excluded
// because their units went back on the shelf.
func (s *service) Summarize(ctx context.Context, input SummaryInput) (*WasteSummary, error) {
	to := input.To.UTC()
	if input.To.IsZero() {
		to = s.Now()
	}
	from := input.From.UTC()
	if input.From.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to").
			WithDetails(map[string]any{"from": from, "to": to})
	}

	rows, err := s.repo.SummarizeByReason(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize drops")
	}
	summary := &WasteSummary{From: from, To: to, Reasons: rows, TotalValueLost: decimal.Zero}
	for _, row := range rows {
		summary.TotalDrops += row.Drops
		summary.TotalUnits += row.Units
		summary.TotalValueLost = summary.TotalValueLost.Add(row.ValueLost)
	}
	return summary, nil
}

func undoOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, ErrAlreadyUndone):
		return metrics.OutcomeAlreadyUndone
	case errors.Is(err, ErrUndoWindowExpired):
		return metrics.OutcomeWindowExpired
	default:
		return metrics.OutcomeForError(err)
	}
}
