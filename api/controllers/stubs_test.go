package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bitetrack-backend/api/middleware"
	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/internal/sales"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
)

var testActorID = uuid.MustParse("1f3c2a5e-9a6b-4c1d-8e2f-7a9b0c1d2e3f")

type stubSalesService struct {
	sale      *models.Sale
	err       error
	gotCreate sales.CreateSaleInput
	gotSettle sales.SettlePaymentInput
}

func (s *stubSalesService) CreateSale(_ context.Context, input sales.CreateSaleInput) (*models.Sale, error) {
	s.gotCreate = input
	return s.sale, s.err
}

func (s *stubSalesService) GetSale(_ context.Context, _ uuid.UUID) (*models.Sale, error) {
	return s.sale, s.err
}

func (s *stubSalesService) SettlePayment(_ context.Context, input sales.SettlePaymentInput) (*models.Sale, error) {
	s.gotSettle = input
	return s.sale, s.err
}

type stubDropsService struct {
	now        time.Time
	drop       *models.InventoryDrop
	product    *models.Product
	list       *drops.DropList
	summary    *drops.WasteSummary
	err        error
	gotDrop    drops.DropInput
	gotUndo    drops.UndoInput
	gotList    drops.ListDropsInput
	gotSummary drops.SummaryInput
}

func (s *stubDropsService) DropInventory(_ context.Context, input drops.DropInput) (*drops.DropResult, error) {
	s.gotDrop = input
	if s.err != nil {
		return nil, s.err
	}
	return &drops.DropResult{Drop: s.drop, UndoRemaining: s.drop.UndoRemaining(s.now)}, nil
}

func (s *stubDropsService) UndoDrop(_ context.Context, input drops.UndoInput) (*drops.UndoResult, error) {
	s.gotUndo = input
	if s.err != nil {
		return nil, s.err
	}
	return &drops.UndoResult{Drop: s.drop, Product: s.product}, nil
}

func (s *stubDropsService) GetDrop(_ context.Context, _ uuid.UUID) (*models.InventoryDrop, error) {
	return s.drop, s.err
}

func (s *stubDropsService) ListDrops(_ context.Context, input drops.ListDropsInput) (*drops.DropList, error) {
	s.gotList = input
	return s.list, s.err
}

func (s *stubDropsService) Summarize(_ context.Context, input drops.SummaryInput) (*drops.WasteSummary, error) {
	s.gotSummary = input
	return s.summary, s.err
}

func (s *stubDropsService) Now() time.Time {
	return s.now
}

// newRequest builds a request carrying the test actor and chi URL params.
func newRequest(method, target, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = middleware.WithActorID(ctx, testActorID.String())
	return req.WithContext(ctx)
}
