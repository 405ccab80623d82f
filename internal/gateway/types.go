package gateway

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/pkg/enums"
)

// StoreInfo carries the store-level delivery configuration the checkout core
// needs. All amounts are integer paise.
type StoreInfo struct {
	ID                         uuid.UUID `json:"id"`
	Name                       string    `json:"name"`
	BaseDeliveryFeePaise       int64     `json:"base_delivery_fee_paise"`
	BaseEtaMinutes             *int      `json:"base_eta_minutes,omitempty"`
	FreeDeliveryThresholdPaise *int64    `json:"free_delivery_threshold_paise,omitempty"`
	SlotDeliveryFeePaise       *int64    `json:"slot_delivery_fee_paise,omitempty"`
}

// ServiceabilityResult is the distance-tier answer for one address.
type ServiceabilityResult struct {
	Serviceable      bool     `json:"serviceable"`
	DistanceKm       *float64 `json:"distance_km,omitempty"`
	DeliveryFeePaise *int64   `json:"delivery_fee_paise,omitempty"`
	EtaMinutes       *int     `json:"eta_minutes,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

// ZoneFallback is the coarse store-wide fee/ETA used while no precise
// per-address result exists.
type ZoneFallback struct {
	DeliveryFeePaise int64 `json:"delivery_fee_paise"`
	EtaMinutes       int   `json:"eta_minutes"`
}

// CouponResult is returned only for valid coupons; invalid or expired codes
// surface as a validation error instead.
type CouponResult struct {
	Code          string `json:"code"`
	DiscountPaise int64  `json:"discount_paise"`
	Description   string `json:"description"`
}

type WalletBalance struct {
	BalancePaise int64 `json:"balance_paise"`
}

// LoyaltyConfig mirrors the loyalty program knobs owned by the ledger service.
type LoyaltyConfig struct {
	IsEnabled           bool  `json:"is_enabled"`
	EarnRatePerHundred  int64 `json:"earn_rate_per_hundred"`
	MinRedeemPoints     int64 `json:"min_redeem_points"`
	MaxRedeemPercentage int64 `json:"max_redeem_percentage"`
}

type LoyaltyInfo struct {
	Config        LoyaltyConfig `json:"config"`
	BalancePoints int64         `json:"balance_points"`
}

// ExpressStatus reports whether immediate dispatch is possible right now.
type ExpressStatus struct {
	Enabled    bool   `json:"enabled"`
	Available  bool   `json:"available"`
	EtaMinutes *int   `json:"eta_minutes,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// SlotCapability is the store's scheduled-delivery capability summary.
type SlotCapability struct {
	HasSlots bool          `json:"has_slots"`
	Express  ExpressStatus `json:"express"`
}

// Slot is one reservable delivery window with finite capacity.
type Slot struct {
	ID        uuid.UUID `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Consumed  int       `json:"consumed"`
}

// Available returns the remaining capacity.
func (s Slot) Available() int {
	return s.Capacity - s.Consumed
}

// Full reports whether the slot can no longer be selected.
func (s Slot) Full() bool {
	return s.Available() <= 0
}

// DraftItem is one cart line frozen into an order draft.
type DraftItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	UnitPricePaise int64     `json:"unit_price_paise"`
	Qty            int       `json:"qty"`
}

// OrderDraft is the immutable submission payload. A fresh draft is built per
// attempt; the server remains the final authority on price.
type OrderDraft struct {
	StoreID       uuid.UUID             `json:"store_id"`
	Fulfillment   enums.FulfillmentType `json:"fulfillment_type"`
	PaymentMethod enums.PaymentMethod   `json:"payment_method,omitempty"`
	AddressID     *uuid.UUID            `json:"address_id,omitempty"`
	CouponCode    string                `json:"coupon_code,omitempty"`
	UseWallet     bool                  `json:"use_wallet"`
	UseLoyalty    bool                  `json:"use_loyalty"`
	SlotID        *uuid.UUID            `json:"slot_id,omitempty"`
	ScheduledDate string                `json:"scheduled_date,omitempty"`
	Items         []DraftItem           `json:"items"`
	AmountPaise   int64                 `json:"amount_paise"`
}

type CreatedOrder struct {
	ID                 uuid.UUID `json:"id"`
	WalletFullyCovered bool      `json:"wallet_fully_covered"`
}

// PaymentSession is the gateway handle for the online-payment path.
type PaymentSession struct {
	GatewayOrderID string `json:"gateway_order_id"`
	AmountPaise    int64  `json:"amount_paise"`
	Currency       string `json:"currency"`
	Key            string `json:"key"`
}

// PaymentConfirmation is the payload the gateway UI hands back on success.
type PaymentConfirmation struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type PaymentPreference struct {
	Method enums.PaymentMethod `json:"method"`
}
