package types

import "github.com/google/uuid"

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a delivery address owned by the user. The checkout core reads
// it but never mutates it; geocoding happens in the address book service.
type Address struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Location  *GeoPoint `json:"location,omitempty"`
	IsDefault bool      `json:"is_default"`
}

// HasCoordinates reports whether a precise delivery tier lookup is possible
// for this address. Addresses without coordinates stay "unknown" rather than
// unserviceable.
func (a Address) HasCoordinates() bool {
	return a.Location != nil
}
