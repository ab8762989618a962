// Package identity implements ports.IdentityProvider against MongoDB:
// bcrypt credentials, HS256 access tokens, rotating opaque refresh tokens,
// and an in-process auth-event hub. It mirrors the hosted identity backend
// the mobile app talks to, so the engine runs end-to-end in development and
// in tests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

const (
	identityCollection = "identities"
	refreshCollection  = "refresh_tokens"

	minPasswordLength = 6
)

// Config tunes the reference provider.
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration // default 1h
	RefreshTTL time.Duration // default 30d
	// RequireConfirmation withholds the session on sign-up until the
	// account is confirmed, producing the engine's "pending confirmation"
	// outcome.
	RequireConfirmation bool
}

func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = time.Hour
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
	return c
}

// Provider is a device-scoped identity client plus its backing store: it
// holds the current session the way a mobile SDK does, and persists
// identities and refresh tokens in MongoDB.
type Provider struct {
	cfg        Config
	identities *mongo.Collection
	refresh    *mongo.Collection
	log        zerolog.Logger

	mu      sync.Mutex
	current *domain.Session

	subMu   sync.Mutex
	subs    map[int]func(domain.AuthEvent)
	nextSub int
}

func NewProvider(db *mongo.Database, cfg Config, log zerolog.Logger) *Provider {
	return &Provider{
		cfg:        cfg.withDefaults(),
		identities: db.Collection(identityCollection),
		refresh:    db.Collection(refreshCollection),
		log:        log,
		subs:       make(map[int]func(domain.AuthEvent)),
	}
}

type mongoIdentity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Metadata     map[string]string  `bson:"metadata,omitempty"`
	Confirmed    bool               `bson:"confirmed"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (mi *mongoIdentity) toRecord() *domain.IdentityRecord {
	meta := make(map[string]string, len(mi.Metadata))
	for k, v := range mi.Metadata {
		meta[k] = v
	}
	return &domain.IdentityRecord{
		ID:        mi.ID.Hex(),
		Email:     mi.Email,
		Metadata:  meta,
		CreatedAt: time.Unix(mi.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(mi.UpdatedAt, 0).UTC(),
	}
}

// SignInWithPassword exchanges credentials for a session and emits
// SIGNED_IN.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var mi mongoIdentity
	if err := p.identities.FindOne(ctx, bson.M{"email": email}).Decode(&mi); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(mi.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if p.cfg.RequireConfirmation && !mi.Confirmed {
		return nil, domain.ErrAccountNotConfirmed
	}

	session, err := p.openSession(ctx, &mi)
	if err != nil {
		return nil, err
	}
	p.emit(domain.AuthEvent{Type: domain.EventSignedIn, Session: session, At: time.Now()})
	return session, nil
}

// SignUp creates a new identity. The session is withheld when confirmation
// is required.
func (p *Provider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*ports.SignUpResult, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.New("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("weak password: must be at least %d characters", minPasswordLength)
	}

	if err := p.identities.FindOne(ctx, bson.M{"email": email}).Err(); err == nil {
		return nil, domain.ErrUserExists
	} else if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("check existing identity: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	mi := mongoIdentity{
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
		Confirmed:    !p.cfg.RequireConfirmation,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}
	res, err := p.identities.InsertOne(ctx, mi)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	mi.ID = res.InsertedID.(primitive.ObjectID)

	if p.cfg.RequireConfirmation {
		return &ports.SignUpResult{Identity: mi.toRecord()}, nil
	}

	session, err := p.openSession(ctx, &mi)
	if err != nil {
		return nil, err
	}
	p.emit(domain.AuthEvent{Type: domain.EventSignedIn, Session: session, At: time.Now()})
	return &ports.SignUpResult{Identity: session.Identity, Session: session}, nil
}

// GetSession returns the current session, or (nil, nil) when signed out.
func (p *Provider) GetSession(_ context.Context) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

// RefreshSession rotates the stored refresh token and issues a fresh
// session, emitting TOKEN_REFRESHED. A missing, expired or already-rotated
// token fails with domain.ErrRefreshInvalid.
func (p *Provider) RefreshSession(ctx context.Context) (*domain.Session, error) {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil || cur.RefreshToken == "" {
		return nil, domain.ErrRefreshInvalid
	}

	var rt refreshRecord
	if err := p.refresh.FindOneAndDelete(ctx, bson.M{"token": cur.RefreshToken}).Decode(&rt); err != nil {
		if err == mongo.ErrNoDocuments {
			p.dropCurrent()
			return nil, domain.ErrRefreshInvalid
		}
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if time.Now().After(time.Unix(rt.ExpiresAt, 0)) {
		p.dropCurrent()
		return nil, domain.ErrRefreshInvalid
	}

	oid, err := primitive.ObjectIDFromHex(rt.IdentityID)
	if err != nil {
		return nil, domain.ErrRefreshInvalid
	}
	var mi mongoIdentity
	if err := p.identities.FindOne(ctx, bson.M{"_id": oid}).Decode(&mi); err != nil {
		p.dropCurrent()
		return nil, domain.ErrRefreshInvalid
	}

	session, err := p.openSession(ctx, &mi)
	if err != nil {
		return nil, err
	}
	p.emit(domain.AuthEvent{Type: domain.EventTokenRefreshed, Session: session, At: time.Now()})
	return session, nil
}

// SignOut revokes the refresh token, drops the current session and emits
// SIGNED_OUT.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	cur := p.current
	p.current = nil
	p.mu.Unlock()

	if cur != nil && cur.RefreshToken != "" {
		if _, err := p.refresh.DeleteOne(ctx, bson.M{"token": cur.RefreshToken}); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	p.emit(domain.AuthEvent{Type: domain.EventSignedOut, At: time.Now()})
	return nil
}

// UpdateIdentityMetadata merges keys into the current identity's metadata,
// reloads the record and re-emits USER_UPDATED.
func (p *Provider) UpdateIdentityMetadata(ctx context.Context, metadata map[string]string) error {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil || cur.Identity == nil {
		return domain.ErrSessionNotFound
	}

	oid, err := primitive.ObjectIDFromHex(cur.Identity.ID)
	if err != nil {
		return fmt.Errorf("invalid identity id: %w", err)
	}

	set := bson.M{"updated_at": time.Now().Unix()}
	for k, v := range metadata {
		set["metadata."+k] = v
	}
	if err := p.identities.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}).Err(); err != nil {
		return fmt.Errorf("update identity metadata: %w", err)
	}

	var mi mongoIdentity
	if err := p.identities.FindOne(ctx, bson.M{"_id": oid}).Decode(&mi); err != nil {
		return fmt.Errorf("reload identity: %w", err)
	}

	p.mu.Lock()
	updated := *cur
	updated.Identity = mi.toRecord()
	p.current = &updated
	p.mu.Unlock()

	p.emit(domain.AuthEvent{Type: domain.EventUserUpdated, Session: &updated, At: time.Now()})
	return nil
}

// SubscribeAuthEvents registers a callback on the event hub.
func (p *Provider) SubscribeAuthEvents(fn func(domain.AuthEvent)) func() {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Provider) emit(ev domain.AuthEvent) {
	p.subMu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	// Deliver outside the lock; subscribers enqueue, they do not process
	// inline.
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *Provider) dropCurrent() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}
