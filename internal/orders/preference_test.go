package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
)

func TestPreferredMethodCachesUpstreamAnswer(t *testing.T) {
	t.Parallel()

	api := &stubCommerce{savedPref: &gateway.PaymentPreference{Method: enums.PaymentMethodOnline}}
	carts, userID, _ := seedCart(t)
	guard := &stubGuard{acquired: true}

	orch := newOrchestrator(t, api, &stubCheckout{}, carts, guard)

	pref, err := orch.PreferredMethod(context.Background(), userID)
	if err != nil {
		t.Fatalf("preferred method: %v", err)
	}
	if pref == nil || pref.Method != enums.PaymentMethodOnline {
		t.Fatalf("pref = %+v", pref)
	}

	// the second read is served from cache
	if _, err := orch.PreferredMethod(context.Background(), userID); err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if api.prefFetches != 1 {
		t.Fatalf("upstream fetches = %d", api.prefFetches)
	}
}

func TestPreferredMethodNoneSaved(t *testing.T) {
	t.Parallel()

	carts, userID, _ := seedCart(t)
	orch := newOrchestrator(t, &stubCommerce{}, &stubCheckout{}, carts, nil)

	pref, err := orch.PreferredMethod(context.Background(), userID)
	if err != nil {
		t.Fatalf("preferred method: %v", err)
	}
	if pref != nil {
		t.Fatalf("expected no preference, got %+v", pref)
	}
}

func TestCODSubmitRefreshesPreferenceCache(t *testing.T) {
	t.Parallel()

	api := &stubCommerce{created: gateway.CreatedOrder{ID: uuid.New()}}
	carts, userID, _ := seedCart(t)
	guard := &stubGuard{acquired: true}

	orch := newOrchestrator(t, api, &stubCheckout{}, carts, guard)

	if _, err := orch.Submit(context.Background(), userID, enums.PaymentMethodCOD); err != nil {
		t.Fatalf("submit: %v", err)
	}

	pref, err := orch.PreferredMethod(context.Background(), userID)
	if err != nil {
		t.Fatalf("preferred method: %v", err)
	}
	if pref == nil || pref.Method != enums.PaymentMethodCOD {
		t.Fatalf("pref = %+v", pref)
	}
	if api.prefFetches != 0 {
		t.Fatalf("cache must answer without an upstream fetch: %d", api.prefFetches)
	}
}
