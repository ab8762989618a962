package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carrent/auth-engine/internal/core/domain"
)

type refreshRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Token      string             `bson:"token"`
	IdentityID string             `bson:"identity_id"`
	ExpiresAt  int64              `bson:"expires_at"`
}

// openSession issues an access token and a rotating refresh token for the
// identity, stores the refresh record, and installs the session as current.
func (p *Provider) openSession(ctx context.Context, mi *mongoIdentity) (*domain.Session, error) {
	record := mi.toRecord()
	now := time.Now().UTC()
	expiresAt := now.Add(p.cfg.AccessTTL)

	access, err := p.signAccessToken(record, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := p.refresh.InsertOne(ctx, refreshRecord{
		Token:      refreshToken,
		IdentityID: record.ID,
		ExpiresAt:  now.Add(p.cfg.RefreshTTL).Unix(),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	session := &domain.Session{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Identity:     record,
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

func (p *Provider) signAccessToken(record *domain.IdentityRecord, now, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   record.ID,
		"email": record.Email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	if role, ok := record.MetadataRole(); ok {
		claims["role"] = string(role)
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(p.cfg.JWTSecret))
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
