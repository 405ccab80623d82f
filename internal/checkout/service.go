package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailasramasamy/martly-backend/internal/cart"
	"github.com/kailasramasamy/martly-backend/internal/delivery"
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/internal/ledger"
	"github.com/kailasramasamy/martly-backend/internal/schedule"
	"github.com/kailasramasamy/martly-backend/internal/serviceability"
	"github.com/kailasramasamy/martly-backend/pkg/config"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

type commerceAPI interface {
	GetStore(ctx context.Context, storeID uuid.UUID) (gateway.StoreInfo, error)
	LookupDeliveryZone(ctx context.Context, storeID uuid.UUID) (*gateway.ZoneFallback, error)
	ValidateCoupon(ctx context.Context, code string, storeID uuid.UUID, orderAmountPaise int64) (gateway.CouponResult, error)
	GetWalletBalance(ctx context.Context) (gateway.WalletBalance, error)
	GetLoyalty(ctx context.Context, storeID uuid.UUID) (gateway.LoyaltyInfo, error)
	CheckDeliverySlots(ctx context.Context, storeID uuid.UUID) (gateway.SlotCapability, error)
	ListAvailableSlots(ctx context.Context, storeID uuid.UUID, date string) ([]gateway.Slot, error)
}

type addressResolver interface {
	Resolve(ctx context.Context, userID, storeID uuid.UUID, addresses []types.Address) map[uuid.UUID]gateway.ServiceabilityResult
}

type cartReader interface {
	Get(userID uuid.UUID) cart.Snapshot
}

// Service owns checkout sessions: address/fulfillment selection, coupon and
// balance state, delivery scheduling, and the quote that combines them.
type Service interface {
	SetAddresses(ctx context.Context, userID uuid.UUID, addresses []types.Address) error
	SelectAddress(ctx context.Context, userID, addressID uuid.UUID) error
	SetFulfillment(ctx context.Context, userID uuid.UUID, choice enums.FulfillmentType) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (gateway.CouponResult, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID)
	SetUseWallet(ctx context.Context, userID uuid.UUID, use bool)
	SetUseLoyalty(ctx context.Context, userID uuid.UUID, use bool)
	SetDeliveryMode(ctx context.Context, userID uuid.UUID, mode enums.DeliveryMode) error
	SelectDate(ctx context.Context, userID uuid.UUID, date string) ([]gateway.Slot, error)
	SelectSlot(ctx context.Context, userID, slotID uuid.UUID) error
	Quote(ctx context.Context, userID uuid.UUID) (*QuoteResult, error)
	BuildDraft(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (gateway.OrderDraft, ledger.Bill, error)
	ResetAfterOrder(ctx context.Context, userID uuid.UUID)
}

// QuoteResult is the bill summary rendered on the checkout screen, assembled
// from one consistent snapshot of the session.
type QuoteResult struct {
	Cart              cart.Snapshot                                `json:"cart"`
	Fulfillment       enums.FulfillmentType                        `json:"fulfillment"`
	SelectedAddressID *uuid.UUID                                   `json:"selected_address_id,omitempty"`
	AutoSwitched      bool                                         `json:"auto_switched"`
	Serviceability    map[uuid.UUID]gateway.ServiceabilityResult   `json:"serviceability"`
	Delivery          delivery.Quote                               `json:"delivery"`
	Bill              ledger.Bill                                  `json:"bill"`
	Mode              enums.DeliveryMode                           `json:"mode"`
	ScheduledDate     string                                       `json:"scheduled_date,omitempty"`
	SelectedSlotID    *uuid.UUID                                   `json:"selected_slot_id,omitempty"`
	Slots             []gateway.Slot                               `json:"slots,omitempty"`
	Coupon            *gateway.CouponResult                        `json:"coupon,omitempty"`
	WalletBalance     *int64                                       `json:"wallet_balance_paise,omitempty"`
	LoyaltyBalance    *int64                                       `json:"loyalty_balance_points,omitempty"`
}

type service struct {
	carts    cartReader
	api      commerceAPI
	resolver addressResolver
	sessions *registry
	cfg      config.CheckoutConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(carts cartReader, api commerceAPI, resolver addressResolver, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("serviceability resolver required")
	}
	return &service{
		carts:    carts,
		api:      api,
		resolver: resolver,
		sessions: newRegistry(),
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) SetAddresses(ctx context.Context, userID uuid.UUID, addresses []types.Address) error {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.addresses = make([]types.Address, len(addresses))
	copy(sess.addresses, addresses)

	if sess.selectedAddressID != nil && sess.selectedAddress() == nil {
		sess.selectedAddressID = nil
	}
	if sess.selectedAddressID == nil {
		for _, addr := range addresses {
			if addr.IsDefault {
				id := addr.ID
				sess.selectedAddressID = &id
				break
			}
		}
	}
	return nil
}

func (s *service) SelectAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	found := false
	for _, addr := range sess.addresses {
		if addr.ID == addressID {
			found = true
			break
		}
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not in the session's address book")
	}

	id := addressID
	sess.selectedAddressID = &id
	// choosing an address always brings the session back to delivery;
	// the next quote re-validates serviceability
	sess.fulfillment = enums.FulfillmentDelivery
	sess.pickupForced = false
	return nil
}

func (s *service) SetFulfillment(ctx context.Context, userID uuid.UUID, choice enums.FulfillmentType) error {
	if !choice.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment type")
	}
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.fulfillment = choice
	sess.pickupForced = false
	return nil
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (gateway.CouponResult, error) {
	snap := s.carts.Get(userID)
	if snap.Empty() {
		return gateway.CouponResult{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// validation runs outside the session lock; the result is applied only
	// if the cart still belongs to the same store
	result, err := s.api.ValidateCoupon(ctx, code, snap.StoreID, snap.TotalPaise())
	if err != nil {
		return gateway.CouponResult{}, err
	}

	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if current := s.carts.Get(userID); current.StoreID != snap.StoreID {
		return gateway.CouponResult{}, pkgerrors.New(pkgerrors.CodeConflict, "cart changed while validating coupon")
	}
	sess.coupon = &result
	return result, nil
}

func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.coupon = nil
}

func (s *service) SetUseWallet(ctx context.Context, userID uuid.UUID, use bool) {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.useWallet = use
}

func (s *service) SetUseLoyalty(ctx context.Context, userID uuid.UUID, use bool) {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.useLoyalty = use
}

func (s *service) SetDeliveryMode(ctx context.Context, userID uuid.UUID, mode enums.DeliveryMode) error {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.schedule.SetMode(mode, s.now())
}

// SelectDate picks a slot date and fetches that date's slots. A response for
// a date the user has already navigated away from is discarded by the
// request key comparison inside ApplySlots.
func (s *service) SelectDate(ctx context.Context, userID uuid.UUID, date string) ([]gateway.Slot, error) {
	snap := s.carts.Get(userID)
	if snap.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	sess := s.sessions.get(userID)
	sess.mu.Lock()
	key, err := sess.schedule.SelectDate(snap.StoreID, date, s.now(), s.cfg.SlotWindowDays)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slots, err := s.api.ListAvailableSlots(ctx, key.StoreID, key.Date)
	if err != nil {
		// degrade: the day renders with no slots rather than blocking checkout
		if s.logg != nil {
			s.logg.Warn(ctx, "slot list fetch failed, rendering empty day")
		}
		slots = nil
	}

	sess.mu.Lock()
	applied := sess.schedule.ApplySlots(key, slots)
	sess.mu.Unlock()
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "date changed while fetching slots")
	}
	return slots, nil
}

func (s *service) SelectSlot(ctx context.Context, userID, slotID uuid.UUID) error {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.schedule.SelectSlot(slotID)
	return nil
}

// Quote refreshes the remote inputs and assembles the bill summary. Lookup
// failures degrade to reduced information instead of failing the quote; the
// ledger always computes from one consistent snapshot taken under the
// session lock.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*QuoteResult, error) {
	snap := s.carts.Get(userID)
	if snap.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	sess := s.sessions.get(userID)

	sess.mu.Lock()
	if sess.storeID != snap.StoreID {
		// new store: store-scoped state from the previous store is invalid
		sess.storeID = snap.StoreID
		sess.store = nil
		sess.zone = nil
		sess.loyalty = nil
		sess.coupon = nil
		sess.serviceability = nil
		sess.schedule = schedule.NewState()
	}
	storeID := sess.storeID
	addresses := sess.addressesCopy()
	needStore := sess.store == nil
	needZone := sess.zone == nil
	sess.mu.Unlock()

	fetched := s.fetchRemote(ctx, userID, storeID, addresses, needStore, needZone)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.storeID != storeID {
		// the cart switched stores while we were fetching; drop everything
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during quote")
	}

	if fetched.store != nil {
		sess.store = fetched.store
	}
	if fetched.zone != nil {
		sess.zone = fetched.zone
	}
	if fetched.wallet != nil {
		sess.wallet = fetched.wallet
	}
	if fetched.loyalty != nil {
		sess.loyalty = fetched.loyalty
	}
	if fetched.capability != nil {
		sess.schedule.ApplyCapability(*fetched.capability, s.now())
	}
	if fetched.serviceability != nil {
		// replaced wholesale, never patched in place
		sess.serviceability = fetched.serviceability
	}

	decision := serviceability.Classify(sess.serviceability, sess.addresses, sess.selectedAddressID)
	switch {
	case decision.Fulfillment == enums.FulfillmentPickup:
		// forced: every address is known-unserviceable
		sess.fulfillment = enums.FulfillmentPickup
		sess.pickupForced = true
	case sess.fulfillment == enums.FulfillmentDelivery:
		// an explicit pickup choice is never overridden back to delivery
		sess.selectedAddressID = decision.SelectedAddressID
	case sess.pickupForced:
		// pickup the classifier imposed reverts as soon as a serviceable
		// address exists again
		sess.fulfillment = enums.FulfillmentDelivery
		sess.pickupForced = false
		sess.selectedAddressID = decision.SelectedAddressID
	}

	result := s.assembleLocked(sess, snap)
	result.AutoSwitched = decision.Switched
	return result, nil
}

type remoteState struct {
	store          *gateway.StoreInfo
	zone           *gateway.ZoneFallback
	wallet         *gateway.WalletBalance
	loyalty        *gateway.LoyaltyInfo
	capability     *gateway.SlotCapability
	serviceability map[uuid.UUID]gateway.ServiceabilityResult
}

// fetchRemote gathers every remote input concurrently. Each leg degrades on
// failure: the quote renders with reduced information.
func (s *service) fetchRemote(ctx context.Context, userID, storeID uuid.UUID, addresses []types.Address, needStore, needZone bool) remoteState {
	var fetched remoteState
	group, groupCtx := errgroup.WithContext(ctx)

	if needStore {
		group.Go(func() error {
			info, err := s.api.GetStore(groupCtx, storeID)
			if err != nil {
				s.warn(groupCtx, "store config fetch failed", err)
				return nil
			}
			fetched.store = &info
			return nil
		})
	}
	if needZone {
		group.Go(func() error {
			zone, err := s.api.LookupDeliveryZone(groupCtx, storeID)
			if err != nil {
				s.warn(groupCtx, "zone fallback fetch failed", err)
				return nil
			}
			fetched.zone = zone
			return nil
		})
	}
	group.Go(func() error {
		balance, err := s.api.GetWalletBalance(groupCtx)
		if err != nil {
			s.warn(groupCtx, "wallet fetch failed", err)
			return nil
		}
		fetched.wallet = &balance
		return nil
	})
	group.Go(func() error {
		info, err := s.api.GetLoyalty(groupCtx, storeID)
		if err != nil {
			s.warn(groupCtx, "loyalty fetch failed", err)
			return nil
		}
		fetched.loyalty = &info
		return nil
	})
	group.Go(func() error {
		capability, err := s.api.CheckDeliverySlots(groupCtx, storeID)
		if err != nil {
			s.warn(groupCtx, "slot capability fetch failed", err)
			return nil
		}
		fetched.capability = &capability
		return nil
	})
	group.Go(func() error {
		fetched.serviceability = s.resolver.Resolve(groupCtx, userID, storeID, addresses)
		return nil
	})

	_ = group.Wait()
	return fetched
}

// assembleLocked computes the delivery quote and bill from the session's
// current state. Callers must hold sess.mu.
func (s *service) assembleLocked(sess *session, snap cart.Snapshot) *QuoteResult {
	store := gateway.StoreInfo{}
	if sess.store != nil {
		store = *sess.store
	}

	var tier *gateway.ServiceabilityResult
	if sess.selectedAddressID != nil {
		if result, ok := sess.serviceability[*sess.selectedAddressID]; ok {
			copied := result
			tier = &copied
		}
	}

	mode, slotID, date := sess.schedule.Choice()

	deliveryQuote := delivery.Compute(delivery.Input{
		Choice:     sess.fulfillment,
		Mode:       mode,
		TierResult: tier,
		Zone:       sess.zone,
		Store:      store,
		ItemTotal:  snap.TotalPaise(),
	})

	bill := ledger.Compute(s.ledgerInputLocked(sess, snap, deliveryQuote.FeePaise))

	result := &QuoteResult{
		Cart:              snap,
		Fulfillment:       sess.fulfillment,
		SelectedAddressID: sess.selectedAddressID,
		Serviceability:    copyResults(sess.serviceability),
		Delivery:          deliveryQuote,
		Bill:              bill,
		Mode:              sess.schedule.Mode,
		ScheduledDate:     date,
		SelectedSlotID:    slotID,
		Slots:             append([]gateway.Slot(nil), sess.schedule.Slots...),
		Coupon:            sess.coupon,
	}
	if sess.wallet != nil {
		balance := sess.wallet.BalancePaise
		result.WalletBalance = &balance
	}
	if sess.loyalty != nil {
		points := sess.loyalty.BalancePoints
		result.LoyaltyBalance = &points
	}
	return result
}

func (s *service) ledgerInputLocked(sess *session, snap cart.Snapshot, feePaise int64) ledger.Input {
	input := ledger.Input{
		ItemTotalPaise:   snap.TotalPaise(),
		DeliveryFeePaise: feePaise,
		UseWallet:        sess.useWallet,
		UseLoyalty:       sess.useLoyalty,
	}
	if sess.coupon != nil {
		input.CouponDiscountPaise = sess.coupon.DiscountPaise
	}
	if sess.wallet != nil {
		input.WalletBalancePaise = sess.wallet.BalancePaise
	}
	if sess.loyalty != nil {
		input.LoyaltyBalancePoints = sess.loyalty.BalancePoints
		input.Loyalty = ledger.LoyaltyTerms{
			Enabled:             sess.loyalty.Config.IsEnabled,
			EarnRatePerHundred:  sess.loyalty.Config.EarnRatePerHundred,
			MinRedeemPoints:     sess.loyalty.Config.MinRedeemPoints,
			MaxRedeemPercentage: sess.loyalty.Config.MaxRedeemPercentage,
		}
	}
	return input
}

// BuildDraft freezes the current session into an immutable order draft. The
// entry guard rejects delivery without a selected address before any order
// is created.
func (s *service) BuildDraft(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (gateway.OrderDraft, ledger.Bill, error) {
	snap := s.carts.Get(userID)
	if snap.Empty() {
		return gateway.OrderDraft{}, ledger.Bill{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.fulfillment == enums.FulfillmentDelivery && sess.selectedAddress() == nil {
		return gateway.OrderDraft{}, ledger.Bill{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required").
			WithDetails(map[string]any{"action": "collect_address"})
	}

	store := gateway.StoreInfo{}
	if sess.store != nil {
		store = *sess.store
	}
	var tier *gateway.ServiceabilityResult
	if sess.selectedAddressID != nil {
		if result, ok := sess.serviceability[*sess.selectedAddressID]; ok {
			copied := result
			tier = &copied
		}
	}
	mode, slotID, date := sess.schedule.Choice()

	deliveryQuote := delivery.Compute(delivery.Input{
		Choice:     sess.fulfillment,
		Mode:       mode,
		TierResult: tier,
		Zone:       sess.zone,
		Store:      store,
		ItemTotal:  snap.TotalPaise(),
	})
	bill := ledger.Compute(s.ledgerInputLocked(sess, snap, deliveryQuote.FeePaise))

	items := make([]gateway.DraftItem, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, gateway.DraftItem{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			UnitPricePaise: item.UnitPricePaise,
			Qty:            item.Qty,
		})
	}

	draft := gateway.OrderDraft{
		StoreID:       snap.StoreID,
		Fulfillment:   sess.fulfillment,
		PaymentMethod: method,
		UseWallet:     sess.useWallet,
		UseLoyalty:    sess.useLoyalty,
		SlotID:        slotID,
		ScheduledDate: date,
		Items:         items,
		AmountPaise:   bill.AmountToPayPaise,
	}
	if sess.fulfillment == enums.FulfillmentDelivery {
		draft.AddressID = sess.selectedAddressID
	}
	if sess.coupon != nil {
		draft.CouponCode = sess.coupon.Code
	}
	return draft, bill, nil
}

// ResetAfterOrder clears order-scoped session state once an order exists.
// The cart itself is cleared by the orchestrator.
func (s *service) ResetAfterOrder(ctx context.Context, userID uuid.UUID) {
	sess := s.sessions.get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.coupon = nil
	sess.schedule = schedule.NewState()
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}

func copyResults(in map[uuid.UUID]gateway.ServiceabilityResult) map[uuid.UUID]gateway.ServiceabilityResult {
	out := make(map[uuid.UUID]gateway.ServiceabilityResult, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
