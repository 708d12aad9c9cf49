package inventory

import (
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

// InsufficientDetail is attached to INSUFFICIENT_INVENTORY errors.
type InsufficientDetail struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ErrProductNotFound is returned when a product id does not resolve.
func ErrProductNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"productId": id})
}

func errInvalidQuantity(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
		WithDetails(map[string]any{"quantity": quantity})
}

func errInsufficient(detail InsufficientDetail) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").
		WithDetails(detail)
}

// InsufficientDetailFrom extracts the shortfall from an insufficient
// inventory error.
func InsufficientDetailFrom(err error) (InsufficientDetail, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientInventory {
		return InsufficientDetail{}, false
	}
	detail, ok := typed.Details().(InsufficientDetail)
	return detail, ok
}

// IsInsufficient reports whether err is an insufficient inventory outcome.
func IsInsufficient(err error) bool {
	_, ok := InsufficientDetailFrom(err)
	return ok || pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory)
}
