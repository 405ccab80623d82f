package serviceability

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
	"github.com/kailasramasamy/martly-backend/pkg/redis"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

const lookupConcurrency = 4

type tierLookup interface {
	LookupDeliveryTier(ctx context.Context, storeID uuid.UUID, lat, lng float64) (gateway.ServiceabilityResult, error)
}

type resultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Resolver classifies each candidate address as serviceable or not by
// querying the distance-tier lookup, with a per-session cache so repeated
// quote renders don't refetch.
type Resolver struct {
	tiers tierLookup
	cache resultCache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewResolver(tiers tierLookup, cache resultCache, ttl time.Duration, logg *logger.Logger) *Resolver {
	return &Resolver{tiers: tiers, cache: cache, ttl: ttl, logg: logg}
}

// Resolve returns the per-address serviceability map. Lookups for distinct
// addresses run concurrently and merge last-writer-per-key; a failed lookup
// leaves its address unknown rather than failing the whole set. Partial maps
// are valid intermediate state.
func (r *Resolver) Resolve(ctx context.Context, userID, storeID uuid.UUID, addresses []types.Address) map[uuid.UUID]gateway.ServiceabilityResult {
	results := make(map[uuid.UUID]gateway.ServiceabilityResult, len(addresses))
	var mu sync.Mutex

	pending := make([]types.Address, 0, len(addresses))
	for _, addr := range addresses {
		if !addr.HasCoordinates() {
			// no coordinates: stays unknown, never unserviceable
			continue
		}
		if cached, ok := r.fromCache(ctx, userID, storeID, addr.ID); ok {
			results[addr.ID] = cached
			continue
		}
		pending = append(pending, addr)
	}

	if len(pending) == 0 {
		return results
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(lookupConcurrency)
	for _, addr := range pending {
		addr := addr
		group.Go(func() error {
			result, err := r.tiers.LookupDeliveryTier(groupCtx, storeID, addr.Location.Lat, addr.Location.Lng)
			if err != nil {
				if r.logg != nil {
					lctx := r.logg.WithField(groupCtx, "address_id", addr.ID.String())
					r.logg.Warn(lctx, "serviceability lookup failed, leaving address unknown")
				}
				return nil
			}
			mu.Lock()
			results[addr.ID] = result
			mu.Unlock()
			r.toCache(ctx, userID, storeID, addr.ID, result)
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// Invalidate drops the cached result for one address, forcing a wholesale
// replacement on the next resolve.
func (r *Resolver) Invalidate(ctx context.Context, userID, storeID, addressID uuid.UUID) {
	if r.cache == nil {
		return
	}
	key := redis.ServiceabilityKey(userID.String(), storeID.String(), addressID.String())
	_ = r.cache.Set(ctx, key, "", time.Millisecond)
}

func (r *Resolver) fromCache(ctx context.Context, userID, storeID, addressID uuid.UUID) (gateway.ServiceabilityResult, bool) {
	if r.cache == nil {
		return gateway.ServiceabilityResult{}, false
	}
	key := redis.ServiceabilityKey(userID.String(), storeID.String(), addressID.String())
	raw, err := r.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return gateway.ServiceabilityResult{}, false
	}
	var result gateway.ServiceabilityResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return gateway.ServiceabilityResult{}, false
	}
	return result, true
}

func (r *Resolver) toCache(ctx context.Context, userID, storeID, addressID uuid.UUID, result gateway.ServiceabilityResult) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := redis.ServiceabilityKey(userID.String(), storeID.String(), addressID.String())
	if err := r.cache.Set(ctx, key, string(payload), r.ttl); err != nil && r.logg != nil {
		r.logg.Warn(ctx, "serviceability cache write failed")
	}
}
