package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

var dropClock = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func sampleDrop() *models.InventoryDrop {
	return &models.InventoryDrop{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		ProductName:       "Croissant",
		OriginalQuantity:  10,
		QuantityDropped:   3,
		RemainingQuantity: 7,
		PricePerUnit:      decimal.NewFromInt(2),
		TotalValueLost:    decimal.NewFromInt(6),
		Reason:            enums.DropReasonExpired,
		DroppedBy:         testActorID,
		DroppedAt:         dropClock,
		UndoExpiresAt:     dropClock.Add(8 * time.Hour),
	}
}

func TestDropInventoryCreated(t *testing.T) {
	drop := sampleDrop()
	svc := &stubDropsService{now: dropClock, drop: drop}
	body := fmt.Sprintf(`{"productId":%q,"quantity":3,"reason":"expired","notes":"left out"}`, drop.ProductID)

	rec := httptest.NewRecorder()
	DropInventory(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/inventory/drops", body, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotDrop.ActorID != testActorID || svc.gotDrop.Reason != enums.DropReasonExpired || svc.gotDrop.Quantity != 3 {
		t.Fatalf("unexpected drop input %+v", svc.gotDrop)
	}

	var envelope struct {
		Data dropResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.DropStatusActive {
		t.Fatalf("expected active status got %s", envelope.Data.Status)
	}
	if envelope.Data.UndoRemainingSeconds != int64((8 * time.Hour).Seconds()) {
		t.Fatalf("unexpected remaining %d", envelope.Data.UndoRemainingSeconds)
	}
	if !envelope.Data.TotalValueLost.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("unexpected value lost %s", envelope.Data.TotalValueLost)
	}
}

func TestDropInventoryInvalidBody(t *testing.T) {
	svc := &stubDropsService{now: dropClock}

	rec := httptest.NewRecorder()
	DropInventory(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/inventory/drops", `{"productId":"bad","quantity":1,"reason":"expired"}`, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUndoDropExpiredWindow(t *testing.T) {
	drop := sampleDrop()
	svc := &stubDropsService{
		now: dropClock.Add(9 * time.Hour),
		err: pkgerrors.New(pkgerrors.CodeStateConflict, "undo window expired").
			WithDetails(map[string]any{"dropId": drop.ID.String(), "undoExpiresAt": drop.UndoExpiresAt}),
	}
	params := map[string]string{"dropId": drop.ID.String()}

	rec := httptest.NewRecorder()
	UndoDrop(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/inventory/drops/x/undo", "", params))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.gotUndo.DropID != drop.ID || svc.gotUndo.UndoReason != nil {
		t.Fatalf("unexpected undo input %+v", svc.gotUndo)
	}
}

func TestUndoDropReturnsRestoredProduct(t *testing.T) {
	drop := sampleDrop()
	undoneAt := dropClock.Add(7*time.Hour + 59*time.Minute)
	drop.IsUndone = true
	drop.UndoneAt = &undoneAt
	drop.UndoneBy = &testActorID
	svc := &stubDropsService{
		now:     undoneAt,
		drop:    drop,
		product: &models.Product{ID: drop.ProductID, Name: "Croissant", Count: 10},
	}
	params := map[string]string{"dropId": drop.ID.String()}

	rec := httptest.NewRecorder()
	UndoDrop(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/inventory/drops/x/undo", `{"undoReason":"miscounted"}`, params))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotUndo.UndoReason == nil || *svc.gotUndo.UndoReason != "miscounted" {
		t.Fatalf("undo reason not forwarded")
	}
	var envelope struct {
		Data undoResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Product.Count != 10 || envelope.Data.Drop.Status != enums.DropStatusUndone {
		t.Fatalf("unexpected undo response %+v", envelope.Data)
	}
	if envelope.Data.Drop.UndoRemainingSeconds != 0 {
		t.Fatalf("undone drop should have no remaining window")
	}
}

func TestListDropsParsesFilters(t *testing.T) {
	drop := sampleDrop()
	svc := &stubDropsService{
		now:  dropClock,
		list: &drops.DropList{Items: []models.InventoryDrop{*drop}, NextCursor: "next"},
	}
	target := fmt.Sprintf("/api/v1/inventory/drops?productId=%s&reason=expired&undoable=true&limit=10&cursor=abc", drop.ProductID)

	rec := httptest.NewRecorder()
	ListDrops(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, target, "", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	got := svc.gotList
	if got.ProductID == nil || *got.ProductID != drop.ProductID || got.Reason == nil || *got.Reason != enums.DropReasonExpired {
		t.Fatalf("unexpected filters %+v", got)
	}
	if !got.UndoableOnly || got.Limit != 10 || got.Cursor != "abc" {
		t.Fatalf("unexpected paging %+v", got)
	}

	var envelope struct {
		Data dropListResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected list %+v", envelope.Data)
	}
}

func TestListDropsRejectsUnknownReason(t *testing.T) {
	rec := httptest.NewRecorder()
	ListDrops(&stubDropsService{now: dropClock}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/inventory/drops?reason=stolen", "", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWasteSummaryForwardsRange(t *testing.T) {
	from := dropClock.Add(-24 * time.Hour)
	svc := &stubDropsService{
		now: dropClock,
		summary: &drops.WasteSummary{
			From: from,
			To:   dropClock,
			Reasons: []drops.ReasonTotal{
				{Reason: enums.DropReasonExpired, Drops: 1, Units: 4, ValueLost: decimal.NewFromInt(10)},
			},
			TotalDrops:     1,
			TotalUnits:     4,
			TotalValueLost: decimal.NewFromInt(10),
		},
	}
	target := "/api/v1/inventory/drops/summary?from=2026-05-03T09:00:00Z&to=2026-05-04T09:00:00Z"

	rec := httptest.NewRecorder()
	WasteSummary(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, target, "", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.gotSummary.From.Equal(from) || !svc.gotSummary.To.Equal(dropClock) {
		t.Fatalf("unexpected range %+v", svc.gotSummary)
	}
	var envelope struct {
		Data wasteSummaryResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalUnits != 4 || len(envelope.Data.Reasons) != 1 {
		t.Fatalf("unexpected summary %+v", envelope.Data)
	}
}
