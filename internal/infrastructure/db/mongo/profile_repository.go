package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

const profileCollection = "profiles"

// ProfileRepository implements ports.ProfileRepository on MongoDB.
type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(profileCollection)}
}

type mongoProfile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	AuthID      string             `bson:"auth_id"`
	Email       string             `bson:"email"`
	FullName    string             `bson:"full_name,omitempty"`
	PhoneNumber string             `bson:"phone_number,omitempty"`
	AvatarURL   string             `bson:"avatar_url,omitempty"`
	Role        string             `bson:"role"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
}

// FindByField looks a profile up by one of the supported identity keys.
func (r *ProfileRepository) FindByField(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
	filter, err := fieldFilter(field, value)
	if err != nil {
		return nil, err
	}

	var mp mongoProfile
	if err := r.coll.FindOne(ctx, filter).Decode(&mp); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile by %s: %w", field, err)
	}
	return mp.toDomain(), nil
}

// Insert persists a new profile and returns it with the generated id.
func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	doc := mongoProfile{
		AuthID:      p.AuthID,
		Email:       p.Email,
		FullName:    p.FullName,
		PhoneNumber: p.PhoneNumber,
		AvatarURL:   p.AvatarURL,
		Role:        string(p.Role),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.Unix(),
		UpdatedAt:   p.UpdatedAt.Unix(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	created := *p
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

// Update rewrites the mutable fields of an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return fmt.Errorf("update profile: invalid id %q: %w", p.ID, err)
	}

	update := bson.M{"$set": bson.M{
		"full_name":    p.FullName,
		"phone_number": p.PhoneNumber,
		"avatar_url":   p.AvatarURL,
		"role":         string(p.Role),
		"is_active":    p.IsActive,
		"updated_at":   p.UpdatedAt.Unix(),
	}}

	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func fieldFilter(field ports.ProfileField, value string) (bson.M, error) {
	switch field {
	case ports.ProfileFieldID:
		oid, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			// Not a Mongo object id: the strategy simply cannot match here.
			return nil, domain.ErrProfileNotFound
		}
		return bson.M{"_id": oid}, nil
	case ports.ProfileFieldAuthID:
		return bson.M{"auth_id": value}, nil
	case ports.ProfileFieldEmail:
		return bson.M{"email": value}, nil
	default:
		return nil, fmt.Errorf("unsupported profile lookup field %q", field)
	}
}

func (mp *mongoProfile) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:          mp.ID.Hex(),
		AuthID:      mp.AuthID,
		Email:       mp.Email,
		FullName:    mp.FullName,
		PhoneNumber: mp.PhoneNumber,
		AvatarURL:   mp.AvatarURL,
		Role:        domain.Role(mp.Role),
		IsActive:    mp.IsActive,
		CreatedAt:   unixToTime(mp.CreatedAt),
		UpdatedAt:   unixToTime(mp.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
