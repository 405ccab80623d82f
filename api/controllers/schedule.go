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
)

type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=express scheduled"`
}

// ScheduleSetMode switches between express and scheduled delivery.
func ScheduleSetMode(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload setModeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseDeliveryMode(payload.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}

		if err := svc.SetDeliveryMode(r.Context(), userID, mode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

type selectDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ScheduleSelectDate picks a slot date and returns that day's slots.
func ScheduleSelectDate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload selectDateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slots, err := svc.SelectDate(r.Context(), userID, payload.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"date": payload.Date, "slots": slots})
	}
}

type selectSlotRequest struct {
	SlotID uuid.UUID `json:"slot_id" validate:"required"`
}

// ScheduleSelectSlot applies an explicit slot choice.
func ScheduleSelectSlot(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload selectSlotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SelectSlot(r.Context(), userID, payload.SlotID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
