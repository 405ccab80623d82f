package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/api/middleware"
	"github.com/kailasramasamy/martly-backend/api/responses"
	"github.com/kailasramasamy/martly-backend/api/validators"
	cartsvc "github.com/kailasramasamy/martly-backend/internal/cart"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
)

// CartFetch returns the buyer's current cart snapshot.
func CartFetch(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		responses.WriteSuccess(w, store.Get(userID))
	}
}

type addCartItemRequest struct {
	StoreID        uuid.UUID `json:"store_id" validate:"required"`
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	VariantID      uuid.UUID `json:"variant_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	UnitPricePaise int64     `json:"unit_price_paise" validate:"min=0"`
	Qty            int       `json:"qty" validate:"required,min=1"`
}

// CartAddItem appends a line, merging quantity for a repeated variant.
func CartAddItem(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.AddItem(userID, payload.StoreID, cartsvc.Item{
			ProductID:      payload.ProductID,
			VariantID:      payload.VariantID,
			Name:           payload.Name,
			UnitPricePaise: payload.UnitPricePaise,
			Qty:            payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

type updateCartItemRequest struct {
	Qty int `json:"qty" validate:"min=0"`
}

// CartUpdateItem sets a line's quantity; zero removes the line.
func CartUpdateItem(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.UpdateQty(userID, itemID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartRemoveItem deletes a line.
func CartRemoveItem(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.RemoveItem(userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartClear drops the cart entirely.
func CartClear(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		store.Clear(userID)
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := pathParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}
