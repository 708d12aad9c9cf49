package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
)

// SaleLine is one committed line of a sale.
type SaleLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// SaleCreatedEvent is emitted when a multi-item sale commits.
type SaleCreatedEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Lines       []SaleLine      `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Settled     bool            `json:"settled"`
}

// SaleSettledEvent is emitted when a payment update changes the paid amount.
type SaleSettledEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Settled     bool            `json:"settled"`
}

// InventoryDroppedEvent is emitted when waste is written off.
type InventoryDroppedEvent struct {
	DropID            uuid.UUID        `json:"drop_id"`
	ProductID         uuid.UUID        `json:"product_id"`
	QuantityDropped   int              `json:"quantity_dropped"`
	RemainingQuantity int              `json:"remaining_quantity"`
	TotalValueLost    decimal.Decimal  `json:"total_value_lost"`
	Reason            enums.DropReason `json:"reason"`
	UndoExpiresAt     time.Time        `json:"undo_expires_at"`
}

// InventoryDropUndoneEvent is emitted when a drop is reversed inside its
// window.
type InventoryDropUndoneEvent struct {
	DropID           uuid.UUID `json:"drop_id"`
	ProductID        uuid.UUID `json:"product_id"`
	QuantityRestored int       `json:"quantity_restored"`
	CountAfter       int       `json:"count_after"`
	UndoneBy         uuid.UUID `json:"undone_by"`
	UndoneAt         time.Time `json:"undone_at"`
}
