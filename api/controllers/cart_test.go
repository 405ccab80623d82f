package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/api/middleware"
	cartsvc "github.com/kailasramasamy/martly-backend/internal/cart"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

func cartRouter(store *cartsvc.Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", CartFetch(store, nil))
	r.Post("/cart/items", CartAddItem(store, nil))
	r.Patch("/cart/items/{itemId}", CartUpdateItem(store, nil))
	r.Delete("/cart/items/{itemId}", CartRemoveItem(store, nil))
	r.Delete("/cart", CartClear(store, nil))
	return r
}

func doJSON(t *testing.T, handler http.Handler, userID uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) cartsvc.Snapshot {
	t.Helper()

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var snapshot cartsvc.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snapshot
}

func TestCartAddUpdateRemoveFlow(t *testing.T) {
	t.Parallel()

	store := cartsvc.NewStore()
	handler := cartRouter(store)
	userID := uuid.New()
	storeID := uuid.New()

	w := doJSON(t, handler, userID, http.MethodPost, "/cart/items", map[string]any{
		"store_id":         storeID,
		"product_id":       uuid.New(),
		"variant_id":       uuid.New(),
		"name":             "whole wheat atta 10kg",
		"unit_price_paise": 45000,
		"qty":              1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	snapshot := decodeSnapshot(t, w)
	if len(snapshot.Items) != 1 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	itemID := snapshot.Items[0].ID

	w = doJSON(t, handler, userID, http.MethodPatch, fmt.Sprintf("/cart/items/%s", itemID), map[string]any{"qty": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if snapshot = decodeSnapshot(t, w); snapshot.Items[0].Qty != 3 {
		t.Fatalf("qty = %d", snapshot.Items[0].Qty)
	}

	w = doJSON(t, handler, userID, http.MethodDelete, fmt.Sprintf("/cart/items/%s", itemID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove status = %d", w.Code)
	}
	if snapshot = decodeSnapshot(t, w); !snapshot.Empty() {
		t.Fatalf("snapshot after remove = %+v", snapshot)
	}
}

func TestCartAddRejectsSecondStore(t *testing.T) {
	t.Parallel()

	store := cartsvc.NewStore()
	handler := cartRouter(store)
	userID := uuid.New()

	add := func(storeID uuid.UUID) *httptest.ResponseRecorder {
		return doJSON(t, handler, userID, http.MethodPost, "/cart/items", map[string]any{
			"store_id":         storeID,
			"product_id":       uuid.New(),
			"variant_id":       uuid.New(),
			"name":             "milk 1l",
			"unit_price_paise": 6500,
			"qty":              1,
		})
	}

	if w := add(uuid.New()); w.Code != http.StatusCreated {
		t.Fatalf("first add status = %d", w.Code)
	}
	if w := add(uuid.New()); w.Code != http.StatusConflict {
		t.Fatalf("cross-store add status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCartAddValidatesBody(t *testing.T) {
	t.Parallel()

	store := cartsvc.NewStore()
	handler := cartRouter(store)

	w := doJSON(t, handler, uuid.New(), http.MethodPost, "/cart/items", map[string]any{
		"store_id": uuid.New(),
		// product/variant/name/qty missing
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCartInvalidItemIDRejected(t *testing.T) {
	t.Parallel()

	store := cartsvc.NewStore()
	handler := cartRouter(store)

	w := doJSON(t, handler, uuid.New(), http.MethodPatch, "/cart/items/not-a-uuid", map[string]any{"qty": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
