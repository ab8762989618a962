package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

const (
	vehicleFleetKey    = "vehicles:fleet"
	vehicleFeaturedKey = "vehicles:featured"
	vehicleCacheTTL    = 15 * time.Minute
)

// VehicleCacheWarmer preloads vehicle summaries into Redis so the first
// fleet screen after login renders from cache. Implements
// ports.VehicleCacheWarmer.
type VehicleCacheWarmer struct {
	client *redis.Client
	lister ports.VehicleLister
	log    zerolog.Logger
}

func NewVehicleCacheWarmer(client *redis.Client, lister ports.VehicleLister, log zerolog.Logger) *VehicleCacheWarmer {
	return &VehicleCacheWarmer{client: client, lister: lister, log: log}
}

// Warm loads the fleet view for the given role and writes it under the
// matching cache key with a TTL.
func (w *VehicleCacheWarmer) Warm(ctx context.Context, role domain.Role) error {
	featuredOnly := role != domain.RoleAdmin
	key := vehicleFeaturedKey
	if !featuredOnly {
		key = vehicleFleetKey
	}

	vehicles, err := w.lister.ListVehicles(ctx, featuredOnly)
	if err != nil {
		return fmt.Errorf("vehicle cache warm: list: %w", err)
	}

	payload, err := json.Marshal(vehicles)
	if err != nil {
		return fmt.Errorf("vehicle cache warm: encode: %w", err)
	}
	if err := w.client.Set(ctx, key, payload, vehicleCacheTTL).Err(); err != nil {
		return fmt.Errorf("vehicle cache warm: set: %w", err)
	}

	w.log.Debug().Str("key", key).Int("count", len(vehicles)).Msg("vehicle cache warmed")
	return nil
}
