package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/cart"
	"github.com/kailasramasamy/martly-backend/internal/delivery"
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/config"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

type stubAPI struct {
	store      gateway.StoreInfo
	storeErr   error
	zone       *gateway.ZoneFallback
	zoneErr    error
	coupon     gateway.CouponResult
	couponErr  error
	wallet     gateway.WalletBalance
	walletErr  error
	loyalty    gateway.LoyaltyInfo
	loyaltyErr error
	capability gateway.SlotCapability
	capErr     error
	slots      []gateway.Slot
	slotsErr   error
}

func (s *stubAPI) GetStore(ctx context.Context, storeID uuid.UUID) (gateway.StoreInfo, error) {
	return s.store, s.storeErr
}

func (s *stubAPI) LookupDeliveryZone(ctx context.Context, storeID uuid.UUID) (*gateway.ZoneFallback, error) {
	return s.zone, s.zoneErr
}

func (s *stubAPI) ValidateCoupon(ctx context.Context, code string, storeID uuid.UUID, orderAmountPaise int64) (gateway.CouponResult, error) {
	return s.coupon, s.couponErr
}

func (s *stubAPI) GetWalletBalance(ctx context.Context) (gateway.WalletBalance, error) {
	return s.wallet, s.walletErr
}

func (s *stubAPI) GetLoyalty(ctx context.Context, storeID uuid.UUID) (gateway.LoyaltyInfo, error) {
	return s.loyalty, s.loyaltyErr
}

func (s *stubAPI) CheckDeliverySlots(ctx context.Context, storeID uuid.UUID) (gateway.SlotCapability, error) {
	return s.capability, s.capErr
}

func (s *stubAPI) ListAvailableSlots(ctx context.Context, storeID uuid.UUID, date string) ([]gateway.Slot, error) {
	return s.slots, s.slotsErr
}

type stubResolver struct {
	results map[uuid.UUID]gateway.ServiceabilityResult
}

func (s *stubResolver) Resolve(ctx context.Context, userID, storeID uuid.UUID, addresses []types.Address) map[uuid.UUID]gateway.ServiceabilityResult {
	return s.results
}

func testAddress() types.Address {
	return types.Address{
		ID:        uuid.New(),
		Location:  &types.GeoPoint{Lat: 12.9, Lng: 77.5},
		IsDefault: true,
	}
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func failingAPI() *stubAPI {
	down := errors.New("upstream down")
	return &stubAPI{
		storeErr: down, zoneErr: down, couponErr: down,
		walletErr: down, loyaltyErr: down, capErr: down, slotsErr: down,
	}
}

func newTestService(t *testing.T, api *stubAPI, resolver *stubResolver) (Service, *cart.Store, uuid.UUID, uuid.UUID) {
	t.Helper()

	carts := cart.NewStore()
	svc, err := NewService(carts, api, resolver, config.CheckoutConfig{SlotWindowDays: 8}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	userID := uuid.New()
	storeID := uuid.New()
	if _, err := carts.AddItem(userID, storeID, cart.Item{
		ID: uuid.New(), ProductID: uuid.New(), VariantID: uuid.New(),
		Name: "basmati rice 5kg", UnitPricePaise: 25000, Qty: 2,
	}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return svc, carts, userID, storeID
}

func TestQuoteAssemblesConsistentBill(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	api := &stubAPI{
		store: gateway.StoreInfo{
			BaseDeliveryFeePaise: 6000,
			BaseEtaMinutes:       intPtr(45),
		},
		wallet: gateway.WalletBalance{BalancePaise: 10000},
		loyalty: gateway.LoyaltyInfo{
			Config:        gateway.LoyaltyConfig{IsEnabled: true, EarnRatePerHundred: 2, MinRedeemPoints: 100, MaxRedeemPercentage: 50},
			BalancePoints: 500,
		},
		capability: gateway.SlotCapability{Express: gateway.ExpressStatus{Enabled: true, Available: true}},
	}
	resolver := &stubResolver{results: map[uuid.UUID]gateway.ServiceabilityResult{
		addr.ID: {Serviceable: true, DeliveryFeePaise: int64Ptr(4000), EtaMinutes: intPtr(30)},
	}}

	svc, _, userID, _ := newTestService(t, api, resolver)
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if quote.Fulfillment != enums.FulfillmentDelivery {
		t.Fatalf("fulfillment = %s", quote.Fulfillment)
	}
	if quote.Delivery.Source != delivery.FeeSourceTier || quote.Delivery.FeePaise != 4000 {
		t.Fatalf("fee should come from the tier result: %+v", quote.Delivery)
	}
	// items 50000 + fee 4000, wallet on by default deducts 10000
	if quote.Bill.GrandTotalPaise != 54000 || quote.Bill.WalletDeductionPaise != 10000 || quote.Bill.AmountToPayPaise != 44000 {
		t.Fatalf("bill = %+v", quote.Bill)
	}
	if quote.WalletBalance == nil || *quote.WalletBalance != 10000 {
		t.Fatalf("wallet balance missing: %+v", quote.WalletBalance)
	}
}

func TestQuoteDegradesWhenEveryFetchFails(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	svc, _, userID, _ := newTestService(t, failingAPI(), &stubResolver{})
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote must not fail on degraded lookups: %v", err)
	}

	if quote.Delivery.Source != delivery.FeeSourceNone || quote.Delivery.FeePaise != 0 {
		t.Fatalf("degraded quote should carry no fee: %+v", quote.Delivery)
	}
	if quote.WalletBalance != nil || quote.LoyaltyBalance != nil {
		t.Fatalf("balances should be absent, not zero: %+v", quote)
	}
	if quote.Bill.AmountToPayPaise != 50000 {
		t.Fatalf("bill should still cover the items: %+v", quote.Bill)
	}
}

func TestQuoteAutoSwitchesToPickup(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	resolver := &stubResolver{results: map[uuid.UUID]gateway.ServiceabilityResult{
		addr.ID: {Serviceable: false, Reason: "beyond delivery radius"},
	}}

	svc, _, userID, _ := newTestService(t, failingAPI(), resolver)
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fulfillment != enums.FulfillmentPickup {
		t.Fatalf("all-unserviceable must switch to pickup: %+v", quote)
	}
	if quote.Delivery.FeePaise != 0 {
		t.Fatalf("pickup carries no fee: %+v", quote.Delivery)
	}
}

func TestQuoteForcedPickupRevertsOnServiceableAddress(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	resolver := &stubResolver{results: map[uuid.UUID]gateway.ServiceabilityResult{
		addr.ID: {Serviceable: false, Reason: "beyond delivery radius"},
	}}

	svc, _, userID, _ := newTestService(t, failingAPI(), resolver)
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fulfillment != enums.FulfillmentPickup {
		t.Fatalf("all-unserviceable must switch to pickup: %+v", quote)
	}

	// the user adds a new address inside the delivery radius
	added := types.Address{ID: uuid.New(), Location: &types.GeoPoint{Lat: 12.91, Lng: 77.51}}
	resolver.results = map[uuid.UUID]gateway.ServiceabilityResult{
		addr.ID:  {Serviceable: false, Reason: "beyond delivery radius"},
		added.ID: {Serviceable: true, DeliveryFeePaise: int64Ptr(3000)},
	}
	svc.SetAddresses(context.Background(), userID, []types.Address{addr, added})

	quote, err = svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote after adding address: %v", err)
	}
	if quote.Fulfillment != enums.FulfillmentDelivery {
		t.Fatalf("forced pickup must revert once an address is serviceable: %+v", quote)
	}
	if quote.SelectedAddressID == nil || *quote.SelectedAddressID != added.ID {
		t.Fatalf("selection should move to the serviceable address: %+v", quote.SelectedAddressID)
	}
}

func TestQuoteExplicitPickupSurvivesServiceableAddress(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	resolver := &stubResolver{results: map[uuid.UUID]gateway.ServiceabilityResult{
		addr.ID: {Serviceable: true, DeliveryFeePaise: int64Ptr(3000)},
	}}

	svc, _, userID, _ := newTestService(t, failingAPI(), resolver)
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})
	if err := svc.SetFulfillment(context.Background(), userID, enums.FulfillmentPickup); err != nil {
		t.Fatalf("set fulfillment: %v", err)
	}

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fulfillment != enums.FulfillmentPickup {
		t.Fatalf("a chosen pickup must not be overridden: %+v", quote)
	}
}

func TestQuoteEmptyCartRejected(t *testing.T) {
	t.Parallel()

	carts := cart.NewStore()
	svc, err := NewService(carts, &stubAPI{}, &stubResolver{}, config.CheckoutConfig{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Quote(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyCouponPropagatesRejection(t *testing.T) {
	t.Parallel()

	api := &stubAPI{couponErr: pkgerrors.New(pkgerrors.CodeValidation, "coupon expired")}
	svc, _, userID, _ := newTestService(t, api, &stubResolver{})

	if _, err := svc.ApplyCoupon(context.Background(), userID, "OLD50"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyCouponDiscountsBill(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	api := failingAPI()
	api.couponErr = nil
	api.coupon = gateway.CouponResult{Code: "SAVE5", DiscountPaise: 5000}

	svc, _, userID, _ := newTestService(t, api, &stubResolver{})
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})

	if _, err := svc.ApplyCoupon(context.Background(), userID, "SAVE5"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Bill.CouponDiscountPaise != 5000 || quote.Bill.AmountToPayPaise != 45000 {
		t.Fatalf("discount not applied: %+v", quote.Bill)
	}

	svc.RemoveCoupon(context.Background(), userID)
	quote, _ = svc.Quote(context.Background(), userID)
	if quote.Bill.CouponDiscountPaise != 0 {
		t.Fatalf("coupon not removed: %+v", quote.Bill)
	}
}

func TestBuildDraftRequiresAddressForDelivery(t *testing.T) {
	t.Parallel()

	svc, _, userID, _ := newTestService(t, failingAPI(), &stubResolver{})

	_, _, err := svc.BuildDraft(context.Background(), userID, enums.PaymentMethodCOD)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("delivery without address must be rejected: %v", err)
	}
}

func TestBuildDraftFreezesSession(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	api := failingAPI()
	api.couponErr = nil
	api.coupon = gateway.CouponResult{Code: "SAVE5", DiscountPaise: 5000}

	svc, _, userID, storeID := newTestService(t, api, &stubResolver{})
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})
	svc.ApplyCoupon(context.Background(), userID, "SAVE5")
	svc.SetUseWallet(context.Background(), userID, false)

	draft, bill, err := svc.BuildDraft(context.Background(), userID, enums.PaymentMethodOnline)
	if err != nil {
		t.Fatalf("build draft: %v", err)
	}

	if draft.StoreID != storeID || draft.PaymentMethod != enums.PaymentMethodOnline {
		t.Fatalf("draft = %+v", draft)
	}
	if draft.AddressID == nil || *draft.AddressID != addr.ID {
		t.Fatalf("address not frozen into draft: %+v", draft.AddressID)
	}
	if draft.CouponCode != "SAVE5" || draft.UseWallet {
		t.Fatalf("session toggles not frozen: %+v", draft)
	}
	if len(draft.Items) != 1 || draft.Items[0].Qty != 2 {
		t.Fatalf("items = %+v", draft.Items)
	}
	if draft.AmountPaise != bill.AmountToPayPaise || bill.AmountToPayPaise != 45000 {
		t.Fatalf("amount = %d, bill = %+v", draft.AmountPaise, bill)
	}
}

func TestBuildDraftPickupNeedsNoAddress(t *testing.T) {
	t.Parallel()

	svc, _, userID, _ := newTestService(t, failingAPI(), &stubResolver{})
	if err := svc.SetFulfillment(context.Background(), userID, enums.FulfillmentPickup); err != nil {
		t.Fatalf("set fulfillment: %v", err)
	}

	draft, _, err := svc.BuildDraft(context.Background(), userID, enums.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("pickup draft: %v", err)
	}
	if draft.AddressID != nil || draft.Fulfillment != enums.FulfillmentPickup {
		t.Fatalf("draft = %+v", draft)
	}
}

func TestSelectDateAppliesFetchedSlots(t *testing.T) {
	t.Parallel()

	slot := gateway.Slot{ID: uuid.New(), Capacity: 4, Consumed: 1}
	api := &stubAPI{
		capability: gateway.SlotCapability{
			HasSlots: true,
			Express:  gateway.ExpressStatus{Enabled: true, Available: true},
		},
		slots: []gateway.Slot{slot},
	}

	svc, _, userID, _ := newTestService(t, api, &stubResolver{})

	// capability arrives with the quote; scheduling needs it first
	if _, err := svc.Quote(context.Background(), userID); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if err := svc.SetDeliveryMode(context.Background(), userID, enums.DeliveryModeScheduled); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	slots, err := svc.SelectDate(context.Background(), userID, today)
	if err != nil {
		t.Fatalf("select date: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != slot.ID {
		t.Fatalf("slots = %+v", slots)
	}

	quote, _ := svc.Quote(context.Background(), userID)
	if quote.SelectedSlotID == nil || *quote.SelectedSlotID != slot.ID {
		t.Fatalf("first open slot should be auto-selected: %+v", quote.SelectedSlotID)
	}
}

func TestResetAfterOrderClearsCouponAndSchedule(t *testing.T) {
	t.Parallel()

	addr := testAddress()
	api := failingAPI()
	api.couponErr = nil
	api.coupon = gateway.CouponResult{Code: "SAVE5", DiscountPaise: 5000}

	svc, _, userID, _ := newTestService(t, api, &stubResolver{})
	svc.SetAddresses(context.Background(), userID, []types.Address{addr})
	svc.ApplyCoupon(context.Background(), userID, "SAVE5")

	svc.ResetAfterOrder(context.Background(), userID)

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Coupon != nil || quote.Bill.CouponDiscountPaise != 0 {
		t.Fatalf("coupon survived reset: %+v", quote)
	}
}
