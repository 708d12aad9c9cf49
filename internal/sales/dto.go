package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

// LineItemInput is one requested product deduction.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateSaleInput carries a sale request. Line items are applied in order.
type CreateSaleInput struct {
	CustomerID uuid.UUID
	SellerID   uuid.UUID
	LineItems  []LineItemInput
	AmountPaid decimal.Decimal
}

// SettlePaymentInput replaces the amount paid on an existing sale.
type SettlePaymentInput struct {
	SaleID     uuid.UUID
	ActorID    uuid.UUID
	AmountPaid decimal.Decimal
}

func (in CreateSaleInput) validate() error {
	if in.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customerId is required")
	}
	if in.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sellerId is required")
	}
	if len(in.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for i, item := range in.LineItems {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item productId is required").
				WithDetails(map[string]any{"index": i})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be a positive integer").
				WithDetails(map[string]any{"index": i, "quantity": item.Quantity})
		}
	}
	if in.AmountPaid.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amountPaid must not be negative")
	}
	return nil
}

func (in SettlePaymentInput) validate() error {
	if in.SaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "saleId is required")
	}
	if in.AmountPaid.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amountPaid must not be negative")
	}
	return nil
}
