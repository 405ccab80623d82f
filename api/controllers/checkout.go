package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/api/middleware"
	"github.com/kailasramasamy/martly-backend/api/responses"
	"github.com/kailasramasamy/martly-backend/api/validators"
	checkoutsvc "github.com/kailasramasamy/martly-backend/internal/checkout"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

type setAddressesRequest struct {
	Addresses []types.Address `json:"addresses" validate:"required,dive"`
}

// CheckoutSetAddresses replaces the session's address book.
func CheckoutSetAddresses(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload setAddressesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetAddresses(r.Context(), userID, payload.Addresses); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

type selectAddressRequest struct {
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

// CheckoutSelectAddress picks the delivery address and returns the session
// to delivery fulfillment.
func CheckoutSelectAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload selectAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SelectAddress(r.Context(), userID, payload.AddressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

type setFulfillmentRequest struct {
	Fulfillment string `json:"fulfillment" validate:"required,oneof=delivery pickup"`
}

func CheckoutSetFulfillment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload setFulfillmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		choice, err := enums.ParseFulfillmentType(payload.Fulfillment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment"))
			return
		}

		if err := svc.SetFulfillment(r.Context(), userID, choice); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,min=2,max=32"`
}

func CheckoutApplyCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyCoupon(r.Context(), userID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CheckoutRemoveCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		svc.RemoveCoupon(r.Context(), userID)
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func CheckoutToggleWallet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload toggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.SetUseWallet(r.Context(), userID, *payload.Enabled)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func CheckoutToggleLoyalty(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload toggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.SetUseLoyalty(r.Context(), userID, *payload.Enabled)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// CheckoutQuote assembles the full bill summary for the checkout screen.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		quote, err := svc.Quote(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
