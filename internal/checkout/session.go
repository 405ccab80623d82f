package checkout

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/internal/schedule"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

// session is the owned, mutable checkout state for one user. Every mutation
// happens under mu; readers get copies. Remote calls never run while the
// lock is held — completed results are applied in discrete transitions with
// a relevance check.
type session struct {
	mu sync.Mutex

	storeID           uuid.UUID
	addresses         []types.Address
	selectedAddressID *uuid.UUID
	fulfillment       enums.FulfillmentType
	// pickupForced marks pickup imposed by classification rather than chosen
	// by the user; only a forced pickup reverts to delivery on its own.
	pickupForced bool

	coupon     *gateway.CouponResult
	useWallet  bool
	useLoyalty bool

	store   *gateway.StoreInfo
	zone    *gateway.ZoneFallback
	wallet  *gateway.WalletBalance
	loyalty *gateway.LoyaltyInfo

	serviceability map[uuid.UUID]gateway.ServiceabilityResult

	schedule *schedule.State
}

func newSession() *session {
	return &session{
		fulfillment: enums.FulfillmentDelivery,
		useWallet:   true,
		useLoyalty:  false,
		schedule:    schedule.NewState(),
	}
}

// registry hands out one session per user.
type registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uuid.UUID]*session)}
}

func (r *registry) get(userID uuid.UUID) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[userID]; ok {
		return existing
	}
	created := newSession()
	r.sessions[userID] = created
	return created
}

func (s *session) addressesCopy() []types.Address {
	out := make([]types.Address, len(s.addresses))
	copy(out, s.addresses)
	return out
}

func (s *session) selectedAddress() *types.Address {
	if s.selectedAddressID == nil {
		return nil
	}
	for _, addr := range s.addresses {
		if addr.ID == *s.selectedAddressID {
			copied := addr
			return &copied
		}
	}
	return nil
}
