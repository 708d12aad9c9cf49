package drops

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

const maxFreeTextLen = 500

// DropInput writes off quantity units of a product as waste.
type DropInput struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    enums.DropReason
	Notes     *string
	ActorID   uuid.UUID
}

// DropResult is the committed drop and how long it can still be undone.
type DropResult struct {
	Drop          *models.InventoryDrop
	UndoRemaining time.Duration
}

// UndoInput reverses a drop inside its undo window.
type UndoInput struct {
	DropID     uuid.UUID
	ActorID    uuid.UUID
	UndoReason *string
}

// UndoResult carries the reversed drop and the product after restoration.
type UndoResult struct {
	Drop    *models.InventoryDrop
	Product *models.Product
}

// ListFilters narrows drop history queries.
type ListFilters struct {
	ProductID    *uuid.UUID
	Reason       *enums.DropReason
	UndoableOnly bool
	Now          time.Time
}

// ListDropsInput pages through drop history, newest first.
type ListDropsInput struct {
	ProductID    *uuid.UUID
	Reason       *enums.DropReason
	UndoableOnly bool
	Limit        int
	Cursor       string
}

// DropList is one page of drops.
type DropList struct {
	Items      []models.InventoryDrop
	NextCursor string
}

// ReasonTotal aggregates committed waste for one reason.
type ReasonTotal struct {
	Reason    enums.DropReason `gorm:"column:reason"`
	Drops     int64            `gorm:"column:drops"`
	Units     int64            `gorm:"column:units"`
	ValueLost decimal.Decimal  `gorm:"column:value_lost"`
}

// SummaryInput bounds a waste summary. A zero To means now; a zero From means
// one day before To.
type SummaryInput struct {
	From time.Time
	To   time.Time
}

// WasteSummary totals drops that have not been undone within a time range.
type WasteSummary struct {
	From           time.Time
	To             time.Time
	Reasons        []ReasonTotal
	TotalDrops     int64
	TotalUnits     int64
	TotalValueLost decimal.Decimal
}

func (in DropInput) validate() error {
	if in.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if in.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
			WithDetails(map[string]any{"quantity": in.Quantity})
	}
	if !in.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid drop reason").
			WithDetails(map[string]any{"reason": in.Reason})
	}
	if in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	return validateFreeText("notes", in.Notes)
}

func (in UndoInput) validate() error {
	if in.DropID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "dropId is required")
	}
	if in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	return validateFreeText("undoReason", in.UndoReason)
}

func validateFreeText(field string, value *string) error {
	if value == nil {
		return nil
	}
	if len(*value) > maxFreeTextLen {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" is too long").
			WithDetails(map[string]any{"field": field, "max": maxFreeTextLen})
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
