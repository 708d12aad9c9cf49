package sales

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
	"github.com/angelmondragon/bitetrack-backend/pkg/tracing"
)

// Service records sales against inventory.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	SettlePayment(ctx context.Context, input SettlePaymentInput) (*models.Sale, error)
}

// ServiceParams wires the sale engine.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Inventory  InventoryDecrementer
	Customers  CustomerToucher
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Metrics    saleObserver
	Tracer     trace.Tracer
	Now        func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory InventoryDecrementer
	customers CustomerToucher
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   saleObserver
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService builds the sale engine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:      params.Repository,
		tx:        params.Tx,
		inventory: params.Inventory,
		customers: params.Customers,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		tracer:    params.Tracer,
		now:       params.Now,
	}
	if svc.metrics == nil {
		svc.metrics = (*metrics.InventoryMetrics)(nil)
	}
	if svc.tracer == nil {
		svc.tracer = tracing.Tracer()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// CreateSale deducts every line item and writes the sale in one atomic scope.
// Any failing line discards the deductions already applied for this call.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "sales.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("sale.customer_id", input.CustomerID.String()),
		attribute.Int("sale.line_items", len(input.LineItems)),
	)

	sale, err := s.createSale(ctx, input)
	s.metrics.ObserveSale(metrics.OutcomeForError(err), totalUnits(input.LineItems))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.Bool("sale.settled", sale.Settled),
	)

	logCtx := s.logg.WithFields(s.logg.WithSale(ctx, sale.ID), map[string]any{
		"customer_id":  sale.CustomerID.String(),
		"total_amount": sale.TotalAmount.StringFixed(2),
		"settled":      sale.Settled,
	})
	s.logg.Info(logCtx, "sale committed")
	return sale, nil
}

func (s *service) createSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var sale *models.Sale
	err := s.tx.RunAtomic(ctx, func(tx *gorm.DB) error {
		ctx := dbpkg.ScopeContext(tx)
		now := s.now().UTC()
		items := make([]models.SaleLineItem, 0, len(input.LineItems))
		total := decimal.Zero
		for i, line := range input.LineItems {
			adj, err := s.inventory.TryDecrement(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			item := models.SaleLineItem{
				Position:    i,
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
				PriceAtSale: adj.Product.Price,
			}
			total = total.Add(item.LineTotal())
			items = append(items, item)
		}

		record := &models.Sale{
			CustomerID:  input.CustomerID,
			SellerID:    input.SellerID,
			Items:       items,
			TotalAmount: total,
			AmountPaid:  input.AmountPaid,
			Settled:     input.AmountPaid.GreaterThanOrEqual(total),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.customers.TouchLastTransaction(ctx, tx, input.CustomerID, now); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{ActorID: input.SellerID},
			OccurredAt:    now,
			Data:          saleCreatedPayload(record),
		}); err != nil {
			return err
		}
		sale = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSale returns the sale with its line items in request order.
func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSaleNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale")
	}
	return sale, nil
}

// SettlePayment replaces the amount paid and recomputes the settled flag.
// Line items and totals are never touched.
func (s *service) SettlePayment(ctx context.Context, input SettlePaymentInput) (*models.Sale, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "sales.settle")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", input.SaleID.String()))

	var sale *models.Sale
	err := s.tx.RunAtomic(ctx, func(tx *gorm.DB) error {
		ctx := dbpkg.ScopeContext(tx)
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, input.SaleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errSaleNotFound(input.SaleID)
			}
			return err
		}
		settled := input.AmountPaid.GreaterThanOrEqual(current.TotalAmount)
		if err := repo.UpdatePayment(ctx, current.ID, input.AmountPaid, settled); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		current.AmountPaid = input.AmountPaid
		current.Settled = settled

		var actor *outbox.ActorRef
		if input.ActorID != uuid.Nil {
			actor = &outbox.ActorRef{ActorID: input.ActorID}
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleSettled,
			AggregateType: enums.AggregateSale,
			AggregateID:   current.ID,
			Actor:         actor,
			OccurredAt:    s.now().UTC(),
			Data: payloads.SaleSettledEvent{
				SaleID:      current.ID,
				TotalAmount: current.TotalAmount,
				AmountPaid:  current.AmountPaid,
				Settled:     current.Settled,
			},
		}); err != nil {
			return err
		}
		sale = current
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithSale(ctx, sale.ID), map[string]any{
		"amount_paid": sale.AmountPaid.StringFixed(2),
		"settled":     sale.Settled,
	}), "sale payment updated")
	return sale, nil
}

func saleCreatedPayload(sale *models.Sale) payloads.SaleCreatedEvent {
	lines := make([]payloads.SaleLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, payloads.SaleLine{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtSale: item.PriceAtSale,
		})
	}
	return payloads.SaleCreatedEvent{
		SaleID:      sale.ID,
		CustomerID:  sale.CustomerID,
		SellerID:    sale.SellerID,
		Lines:       lines,
		TotalAmount: sale.TotalAmount,
		AmountPaid:  sale.AmountPaid,
		Settled:     sale.Settled,
	}
}

func totalUnits(items []LineItemInput) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func errSaleNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found").
		WithDetails(map[string]any{"saleId": id})
}
