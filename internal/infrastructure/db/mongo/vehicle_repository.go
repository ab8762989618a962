package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carrent/auth-engine/internal/core/ports"
)

const vehicleCollection = "vehicles"

// VehicleRepository implements ports.VehicleLister on MongoDB. Read-only:
// fleet management lives in another service, this one only feeds the cache
// warmer.
type VehicleRepository struct {
	coll *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) *VehicleRepository {
	return &VehicleRepository{coll: db.Collection(vehicleCollection)}
}

type mongoVehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Model       string             `bson:"model"`
	Category    string             `bson:"category"`
	PricePerDay float64            `bson:"price_per_day"`
	Available   bool               `bson:"available"`
	Featured    bool               `bson:"featured"`
}

func (r *VehicleRepository) ListVehicles(ctx context.Context, featuredOnly bool) ([]ports.VehicleSummary, error) {
	filter := bson.M{}
	if featuredOnly {
		filter["featured"] = true
	}

	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer cur.Close(ctx)

	var out []ports.VehicleSummary
	for cur.Next(ctx) {
		var mv mongoVehicle
		if err := cur.Decode(&mv); err != nil {
			return nil, fmt.Errorf("decode vehicle: %w", err)
		}
		out = append(out, ports.VehicleSummary{
			ID:          mv.ID.Hex(),
			Model:       mv.Model,
			Category:    mv.Category,
			PricePerDay: mv.PricePerDay,
			Available:   mv.Available,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return out, nil
}
