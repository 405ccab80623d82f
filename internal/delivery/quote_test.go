package delivery

import (
	"testing"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func TestComputePickupIsAlwaysFree(t *testing.T) {
	t.Parallel()

	quote := Compute(Input{
		Choice:     enums.FulfillmentPickup,
		TierResult: &gateway.ServiceabilityResult{Serviceable: true, DeliveryFeePaise: int64Ptr(5000)},
		Store:      gateway.StoreInfo{BaseDeliveryFeePaise: 3000},
	})

	if quote.FeePaise != 0 || quote.Source != FeeSourcePickup {
		t.Fatalf("pickup quote = %+v", quote)
	}
}

func TestComputePrecedence(t *testing.T) {
	t.Parallel()

	store := gateway.StoreInfo{BaseDeliveryFeePaise: 3000, BaseEtaMinutes: intPtr(60)}
	zone := &gateway.ZoneFallback{DeliveryFeePaise: 2500, EtaMinutes: 45}
	tier := &gateway.ServiceabilityResult{Serviceable: true, DeliveryFeePaise: int64Ptr(1800), EtaMinutes: intPtr(25)}

	quote := Compute(Input{Choice: enums.FulfillmentDelivery, Mode: enums.DeliveryModeExpress, TierResult: tier, Zone: zone, Store: store})
	if quote.FeePaise != 1800 || quote.Source != FeeSourceTier || *quote.EtaMinutes != 25 {
		t.Fatalf("tier should win: %+v", quote)
	}

	quote = Compute(Input{Choice: enums.FulfillmentDelivery, Zone: zone, Store: store})
	if quote.FeePaise != 2500 || quote.Source != FeeSourceZone || *quote.EtaMinutes != 45 {
		t.Fatalf("zone should win without tier: %+v", quote)
	}
	if !quote.Provisional {
		t.Fatal("zone fee with pending tier lookup must be provisional")
	}

	quote = Compute(Input{Choice: enums.FulfillmentDelivery, Store: store})
	if quote.FeePaise != 3000 || quote.Source != FeeSourceBase || *quote.EtaMinutes != 60 {
		t.Fatalf("base should win without tier/zone: %+v", quote)
	}

	quote = Compute(Input{Choice: enums.FulfillmentDelivery})
	if quote.FeePaise != 0 || quote.Source != FeeSourceNone || quote.EtaMinutes != nil {
		t.Fatalf("empty config should yield zero fee: %+v", quote)
	}
}

func TestComputeFeeAndEtaResolveIndependently(t *testing.T) {
	t.Parallel()

	// tier resolved a fee but no ETA yet; ETA falls through to the zone
	tier := &gateway.ServiceabilityResult{Serviceable: true, DeliveryFeePaise: int64Ptr(1500)}
	zone := &gateway.ZoneFallback{DeliveryFeePaise: 2500, EtaMinutes: 45}

	quote := Compute(Input{Choice: enums.FulfillmentDelivery, TierResult: tier, Zone: zone})
	if quote.FeePaise != 1500 {
		t.Fatalf("fee = %d", quote.FeePaise)
	}
	if quote.EtaMinutes == nil || *quote.EtaMinutes != 45 {
		t.Fatalf("eta should fall back to zone: %+v", quote.EtaMinutes)
	}
}

func TestComputeFreeDeliveryOverride(t *testing.T) {
	t.Parallel()

	store := gateway.StoreInfo{
		BaseDeliveryFeePaise:       3000,
		FreeDeliveryThresholdPaise: int64Ptr(80000),
	}
	tier := &gateway.ServiceabilityResult{Serviceable: true, DeliveryFeePaise: int64Ptr(99999)}

	quote := Compute(Input{Choice: enums.FulfillmentDelivery, TierResult: tier, Store: store, ItemTotal: 100000})
	if quote.FeePaise != 0 || !quote.FreeApplied {
		t.Fatalf("threshold met must zero the fee regardless of tier: %+v", quote)
	}
	if quote.FeeBeforeFreePaise != 99999 {
		t.Fatalf("pre-override fee lost: %+v", quote)
	}

	quote = Compute(Input{Choice: enums.FulfillmentDelivery, TierResult: tier, Store: store, ItemTotal: 79999})
	if quote.FreeApplied || quote.FeePaise != 99999 {
		t.Fatalf("below threshold must keep tier fee: %+v", quote)
	}
}

func TestComputeScheduledSlotFlatFee(t *testing.T) {
	t.Parallel()

	store := gateway.StoreInfo{
		BaseDeliveryFeePaise: 3000,
		SlotDeliveryFeePaise: int64Ptr(1000),
	}
	tier := &gateway.ServiceabilityResult{Serviceable: true, DeliveryFeePaise: int64Ptr(1800)}

	quote := Compute(Input{Choice: enums.FulfillmentDelivery, Mode: enums.DeliveryModeScheduled, TierResult: tier, Store: store})
	if quote.FeePaise != 1000 || quote.Source != FeeSourceSlot {
		t.Fatalf("scheduled flat fee should replace tier: %+v", quote)
	}

	quote = Compute(Input{Choice: enums.FulfillmentDelivery, Mode: enums.DeliveryModeExpress, TierResult: tier, Store: store})
	if quote.FeePaise != 1800 {
		t.Fatalf("express should keep tier fee: %+v", quote)
	}
}

func TestComputeUnserviceableTierIgnored(t *testing.T) {
	t.Parallel()

	tier := &gateway.ServiceabilityResult{Serviceable: false, DeliveryFeePaise: int64Ptr(1800), Reason: "out of range"}
	zone := &gateway.ZoneFallback{DeliveryFeePaise: 2500, EtaMinutes: 45}

	quote := Compute(Input{Choice: enums.FulfillmentDelivery, TierResult: tier, Zone: zone})
	if quote.Source != FeeSourceZone {
		t.Fatalf("unserviceable tier must not supply a fee: %+v", quote)
	}
	if quote.Provisional {
		t.Fatal("zone fee after a resolved (unserviceable) lookup is not provisional")
	}
}
