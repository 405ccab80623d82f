package controllers

import (
	"net/http"

	"github.com/kailasramasamy/martly-backend/api/middleware"
	"github.com/kailasramasamy/martly-backend/api/responses"
	"github.com/kailasramasamy/martly-backend/api/validators"
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	orderssvc "github.com/kailasramasamy/martly-backend/internal/orders"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
)

type submitOrderRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cod online"`
}

// OrderSubmit runs one submission attempt.
func OrderSubmit(orch *orderssvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload submitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		attempt, err := orch.Submit(r.Context(), userID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, attempt)
	}
}

// OrderPreferredMethod returns the buyer's saved payment method, used to
// preselect an option on the payment sheet.
func OrderPreferredMethod(orch *orderssvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		pref, err := orch.PreferredMethod(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"preference": pref})
	}
}

// OrderStatus reports the current submission attempt.
func OrderStatus(orch *orderssvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		responses.WriteSuccess(w, orch.Status(userID))
	}
}

type confirmPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// OrderConfirmPayment completes the online payment leg.
func OrderConfirmPayment(orch *orderssvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := orch.ConfirmPayment(r.Context(), userID, orderID, gateway.PaymentConfirmation{
			GatewayOrderID:   payload.GatewayOrderID,
			GatewayPaymentID: payload.GatewayPaymentID,
			Signature:        payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// OrderCancelPayment abandons the gateway flow; the order is retained.
func OrderCancelPayment(orch *orderssvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := orch.CancelPayment(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}
