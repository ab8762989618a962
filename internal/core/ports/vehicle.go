package ports

import "context"

// VehicleSummary is the lightweight fleet read model preloaded into the
// vehicle cache after login.
type VehicleSummary struct {
	ID          string  `json:"id"`
	Model       string  `json:"model"`
	Category    string  `json:"category"`
	PricePerDay float64 `json:"price_per_day"`
	Available   bool    `json:"available"`
}

// VehicleLister provides fleet summaries for the cache warmer. Admins warm
// the full fleet, customers the featured subset.
type VehicleLister interface {
	ListVehicles(ctx context.Context, featuredOnly bool) ([]VehicleSummary, error)
}
