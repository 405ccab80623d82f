package delivery

import (
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
)

// FeeSource records which precedence rung produced the fee.
type FeeSource string

const (
	FeeSourcePickup FeeSource = "pickup"
	FeeSourceSlot   FeeSource = "slot"
	FeeSourceTier   FeeSource = "tier"
	FeeSourceZone   FeeSource = "zone"
	FeeSourceBase   FeeSource = "base"
	FeeSourceNone   FeeSource = "none"
)

// Quote is the resolved delivery fee and ETA line.
type Quote struct {
	FeePaise           int64     `json:"fee_paise"`
	FeeBeforeFreePaise int64     `json:"fee_before_free_paise,omitempty"`
	FreeApplied        bool      `json:"free_applied"`
	EtaMinutes         *int      `json:"eta_minutes,omitempty"`
	Source             FeeSource `json:"source"`
	Provisional        bool      `json:"provisional"`
}

// Input gathers everything the resolver consults. TierResult is nil while
// the per-address lookup is pending or the address has no coordinates.
type Input struct {
	Choice     enums.FulfillmentType
	Mode       enums.DeliveryMode
	TierResult *gateway.ServiceabilityResult
	Zone       *gateway.ZoneFallback
	Store      gateway.StoreInfo
	ItemTotal  int64
}

// Compute resolves the fee and ETA independently along the same precedence:
// pickup, per-address tier, zone fallback, store base, zero. A scheduled
// slot's flat fee replaces the tier chain when the store configures one.
// The free-delivery threshold then forces the fee to zero, keeping the
// pre-override value for display.
func Compute(in Input) Quote {
	if in.Choice == enums.FulfillmentPickup {
		return Quote{Source: FeeSourcePickup}
	}

	quote := resolveFee(in)
	quote.EtaMinutes = resolveEta(in)

	if threshold := in.Store.FreeDeliveryThresholdPaise; threshold != nil && in.ItemTotal >= *threshold {
		quote.FeeBeforeFreePaise = quote.FeePaise
		quote.FeePaise = 0
		quote.FreeApplied = true
	}

	return quote
}

func resolveFee(in Input) Quote {
	if in.Mode == enums.DeliveryModeScheduled && in.Store.SlotDeliveryFeePaise != nil {
		return Quote{FeePaise: *in.Store.SlotDeliveryFeePaise, Source: FeeSourceSlot}
	}
	if tier := in.TierResult; tier != nil && tier.Serviceable && tier.DeliveryFeePaise != nil {
		return Quote{FeePaise: *tier.DeliveryFeePaise, Source: FeeSourceTier}
	}
	if in.Zone != nil {
		return Quote{
			FeePaise:    in.Zone.DeliveryFeePaise,
			Source:      FeeSourceZone,
			Provisional: in.TierResult == nil,
		}
	}
	if in.Store.BaseDeliveryFeePaise > 0 {
		return Quote{FeePaise: in.Store.BaseDeliveryFeePaise, Source: FeeSourceBase}
	}
	return Quote{Source: FeeSourceNone}
}

func resolveEta(in Input) *int {
	if tier := in.TierResult; tier != nil && tier.Serviceable && tier.EtaMinutes != nil {
		eta := *tier.EtaMinutes
		return &eta
	}
	if in.Zone != nil {
		eta := in.Zone.EtaMinutes
		return &eta
	}
	if in.Store.BaseEtaMinutes != nil {
		eta := *in.Store.BaseEtaMinutes
		return &eta
	}
	return nil
}
