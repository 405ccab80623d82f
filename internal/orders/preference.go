package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	"github.com/kailasramasamy/martly-backend/pkg/redis"
)

const preferenceCacheTTL = time.Hour

// PreferredMethod returns the buyer's saved payment method, nil when none is
// saved. The answer is cached so the payment sheet opens without a round
// trip; the cache is refreshed whenever a COD order persists the preference.
func (o *Orchestrator) PreferredMethod(ctx context.Context, userID uuid.UUID) (*gateway.PaymentPreference, error) {
	cacheKey := redis.PreferenceKey(userID.String())

	if o.guard != nil {
		if cached, err := o.guard.Get(ctx, cacheKey); err == nil {
			if method, parseErr := enums.ParsePaymentMethod(cached); parseErr == nil {
				return &gateway.PaymentPreference{Method: method}, nil
			}
		}
	}

	pref, err := o.api.GetPaymentPreference(ctx)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, nil
	}

	if o.guard != nil {
		besteffort(ctx, o.logg, "cache payment preference", func(ctx context.Context) error {
			return o.guard.Set(ctx, cacheKey, pref.Method.String(), preferenceCacheTTL)
		})
	}
	return pref, nil
}

func (o *Orchestrator) cachePreference(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) {
	if o.guard == nil {
		return
	}
	besteffort(ctx, o.logg, "cache payment preference", func(ctx context.Context) error {
		return o.guard.Set(ctx, redis.PreferenceKey(userID.String()), method.String(), preferenceCacheTTL)
	})
}
