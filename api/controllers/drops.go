package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bitetrack-backend/api/responses"
	"github.com/angelmondragon/bitetrack-backend/api/validators"
	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/pagination"
)

type dropRequest struct {
	ProductID string  `json:"productId" validate:"required,uuid"`
	Quantity  int     `json:"quantity"`
	Reason    string  `json:"reason" validate:"required"`
	Notes     *string `json:"notes"`
}

type undoRequest struct {
	UndoReason *string `json:"undoReason"`
}

type dropResponse struct {
	ID                   uuid.UUID        `json:"id"`
	ProductID            uuid.UUID        `json:"productId"`
	ProductName          string           `json:"productName"`
	OriginalQuantity     int              `json:"originalQuantity"`
	QuantityDropped      int              `json:"quantityDropped"`
	RemainingQuantity    int              `json:"remainingQuantity"`
	PricePerUnit         decimal.Decimal  `json:"pricePerUnit"`
	TotalValueLost       decimal.Decimal  `json:"totalValueLost"`
	Reason               enums.DropReason `json:"reason"`
	Notes                *string          `json:"notes,omitempty"`
	DroppedBy            uuid.UUID        `json:"droppedBy"`
	DroppedAt            time.Time        `json:"droppedAt"`
	UndoExpiresAt        time.Time        `json:"undoExpiresAt"`
	Status               enums.DropStatus `json:"status"`
	UndoRemainingSeconds int64            `json:"undoRemainingSeconds"`
	UndoneBy             *uuid.UUID       `json:"undoneBy,omitempty"`
	UndoneAt             *time.Time       `json:"undoneAt,omitempty"`
	UndoReason           *string          `json:"undoReason,omitempty"`
}

type productCountResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

type undoResponse struct {
	Drop    dropResponse         `json:"drop"`
	Product productCountResponse `json:"product"`
}

type dropListResponse struct {
	Items      []dropResponse `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

type reasonTotalResponse struct {
	Reason    enums.DropReason `json:"reason"`
	Drops     int64            `json:"drops"`
	Units     int64            `json:"units"`
	ValueLost decimal.Decimal  `json:"valueLost"`
}

type wasteSummaryResponse struct {
	From           time.Time             `json:"from"`
	To             time.Time             `json:"to"`
	Reasons        []reasonTotalResponse `json:"reasons"`
	TotalDrops     int64                 `json:"totalDrops"`
	TotalUnits     int64                 `json:"totalUnits"`
	TotalValueLost decimal.Decimal       `json:"totalValueLost"`
}

func newDropResponse(drop *models.InventoryDrop, now time.Time) dropResponse {
	return dropResponse{
		ID:                   drop.ID,
		ProductID:            drop.ProductID,
		ProductName:          drop.ProductName,
		OriginalQuantity:     drop.OriginalQuantity,
		QuantityDropped:      drop.QuantityDropped,
		RemainingQuantity:    drop.RemainingQuantity,
		PricePerUnit:         drop.PricePerUnit,
		TotalValueLost:       drop.TotalValueLost,
		Reason:               drop.Reason,
		Notes:                drop.Notes,
		DroppedBy:            drop.DroppedBy,
		DroppedAt:            drop.DroppedAt,
		UndoExpiresAt:        drop.UndoExpiresAt,
		Status:               drop.Status(now),
		UndoRemainingSeconds: int64(drop.UndoRemaining(now) / time.Second),
		UndoneBy:             drop.UndoneBy,
		UndoneAt:             drop.UndoneAt,
		UndoReason:           drop.UndoReason,
	}
}

// DropInventory writes off units of a product as waste.
func DropInventory(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req dropRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DropInventory(r.Context(), drops.DropInput{
			ProductID: uuid.MustParse(req.ProductID),
			Quantity:  req.Quantity,
			Reason:    enums.DropReason(strings.TrimSpace(req.Reason)),
			Notes:     req.Notes,
			ActorID:   actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDropResponse(result.Drop, svc.Now()))
	}
}

// UndoDrop restores a drop's units while its undo window is open.
func UndoDrop(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dropID, err := uuidParam(r, "dropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req undoRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UndoDrop(r.Context(), drops.UndoInput{
			DropID:     dropID,
			ActorID:    actorID,
			UndoReason: req.UndoReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, undoResponse{
			Drop: newDropResponse(result.Drop, svc.Now()),
			Product: productCountResponse{
				ID:    result.Product.ID,
				Name:  result.Product.Name,
				Count: result.Product.Count,
			},
		})
	}
}

func GetDrop(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		dropID, err := uuidParam(r, "dropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		drop, err := svc.GetDrop(r.Context(), dropID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDropResponse(drop, svc.Now()))
	}
}

// ListDrops pages through drop history. Supported filters are productId,
// reason and undoable=true.
func ListDrops(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		input, err := parseListDropsInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListDrops(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := svc.Now()
		resp := dropListResponse{
			Items:      make([]dropResponse, 0, len(list.Items)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Items {
			resp.Items = append(resp.Items, newDropResponse(&list.Items[i], now))
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseListDropsInput(r *http.Request) (drops.ListDropsInput, error) {
	var input drops.ListDropsInput

	productID, err := validators.ParseQueryUUID(r, "productId")
	if err != nil {
		return input, err
	}
	input.ProductID = productID

	if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
		reason, err := enums.ParseDropReason(raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid drop reason")
		}
		input.Reason = &reason
	}

	if input.UndoableOnly, err = validators.ParseQueryBool(r, "undoable"); err != nil {
		return input, err
	}
	if input.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return input, err
	}
	input.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))
	return input, nil
}

// WasteSummary totals committed waste per reason over [from, to).
func WasteSummary(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), drops.SummaryInput{From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := wasteSummaryResponse{
			From:           summary.From,
			To:             summary.To,
			Reasons:        make([]reasonTotalResponse, 0, len(summary.Reasons)),
			TotalDrops:     summary.TotalDrops,
			TotalUnits:     summary.TotalUnits,
			TotalValueLost: summary.TotalValueLost,
		}
		for _, total := range summary.Reasons {
			resp.Reasons = append(resp.Reasons, reasonTotalResponse(total))
		}
		responses.WriteSuccess(w, resp)
	}
}
