package serviceability

import (
	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	"github.com/kailasramasamy/martly-backend/pkg/types"
)

// Decision is the fulfillment correction derived from a serviceability map.
type Decision struct {
	Fulfillment       enums.FulfillmentType
	SelectedAddressID *uuid.UUID
	Switched          bool
}

// Classify applies the auto-correction policy:
//
//   - PICKUP only when the result set is non-empty and zero addresses are
//     serviceable. Unresolved addresses (no result yet) never force pickup.
//   - When at least one address is serviceable, an unserviceable selection is
//     switched to the first serviceable address (in address-book order,
//     default address first) instead of forcing pickup.
//   - An address with no result is "unknown": a selection pointing at it is
//     left alone.
func Classify(results map[uuid.UUID]gateway.ServiceabilityResult, addresses []types.Address, selectedID *uuid.UUID) Decision {
	if len(results) == 0 {
		return Decision{Fulfillment: enums.FulfillmentDelivery, SelectedAddressID: selectedID}
	}

	anyServiceable := false
	for _, result := range results {
		if result.Serviceable {
			anyServiceable = true
			break
		}
	}
	if !anyServiceable {
		return Decision{Fulfillment: enums.FulfillmentPickup, Switched: true}
	}

	if selectedID != nil {
		result, resolved := results[*selectedID]
		if !resolved || result.Serviceable {
			return Decision{Fulfillment: enums.FulfillmentDelivery, SelectedAddressID: selectedID}
		}
	}

	ordered := make([]types.Address, 0, len(addresses))
	for _, addr := range addresses {
		if addr.IsDefault {
			ordered = append([]types.Address{addr}, ordered...)
		} else {
			ordered = append(ordered, addr)
		}
	}
	for _, addr := range ordered {
		if result, ok := results[addr.ID]; ok && result.Serviceable {
			id := addr.ID
			switched := selectedID == nil || *selectedID != id
			return Decision{Fulfillment: enums.FulfillmentDelivery, SelectedAddressID: &id, Switched: switched}
		}
	}

	// unreachable given anyServiceable, but stay safe
	return Decision{Fulfillment: enums.FulfillmentDelivery, SelectedAddressID: selectedID}
}
