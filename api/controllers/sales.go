package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bitetrack-backend/api/responses"
	"github.com/angelmondragon/bitetrack-backend/api/validators"
	"github.com/angelmondragon/bitetrack-backend/internal/sales"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
)

type saleLineItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

type createSaleRequest struct {
	CustomerID string                `json:"customerId" validate:"required,uuid"`
	LineItems  []saleLineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	AmountPaid *decimal.Decimal      `json:"amountPaid" validate:"required"`
}

type settleSaleRequest struct {
	AmountPaid *decimal.Decimal `json:"amountPaid" validate:"required"`
}

type saleLineItemResponse struct {
	ProductID   uuid.UUID       `json:"productId"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"priceAtSale"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type saleResponse struct {
	ID          uuid.UUID              `json:"id"`
	CustomerID  uuid.UUID              `json:"customerId"`
	SellerID    uuid.UUID              `json:"sellerId"`
	Items       []saleLineItemResponse `json:"items"`
	TotalAmount decimal.Decimal        `json:"totalAmount"`
	AmountPaid  decimal.Decimal        `json:"amountPaid"`
	Settled     bool                   `json:"settled"`
	CreatedAt   time.Time              `json:"createdAt"`
}

func newSaleResponse(sale *models.Sale) saleResponse {
	resp := saleResponse{
		ID:          sale.ID,
		CustomerID:  sale.CustomerID,
		SellerID:    sale.SellerID,
		Items:       make([]saleLineItemResponse, 0, len(sale.Items)),
		TotalAmount: sale.TotalAmount,
		AmountPaid:  sale.AmountPaid,
		Settled:     sale.Settled,
		CreatedAt:   sale.CreatedAt,
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, saleLineItemResponse{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtSale: item.PriceAtSale,
			LineTotal:   item.LineTotal(),
		})
	}
	return resp
}

// CreateSale records a sale for the calling staff member. Line items are
// deducted all-or-nothing.
func CreateSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		sellerID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sales.CreateSaleInput{
			CustomerID: uuid.MustParse(req.CustomerID),
			SellerID:   sellerID,
			LineItems:  make([]sales.LineItemInput, 0, len(req.LineItems)),
			AmountPaid: *req.AmountPaid,
		}
		for _, item := range req.LineItems {
			input.LineItems = append(input.LineItems, sales.LineItemInput{
				ProductID: uuid.MustParse(item.ProductID),
				Quantity:  item.Quantity,
			})
		}

		sale, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}

// SettleSale replaces the amount paid on a sale.
func SettleSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req settleSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.SettlePayment(r.Context(), sales.SettlePaymentInput{
			SaleID:     saleID,
			ActorID:    actorID,
			AmountPaid: *req.AmountPaid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}
