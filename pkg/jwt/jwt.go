package jwt

import (
	"errors"
	"time"

	"go-resto-inventory/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

const issuer = "go-resto-inventory"

// Claims carries the actor context issued by the auth service.
type Claims struct {
	ActorID         uuid.UUID `json:"actor_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	Role            string    `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the core's actor context.
func (c *Claims) Actor() model.Actor {
	return model.Actor{ID: c.ActorID, EstablishmentID: c.EstablishmentID, Role: c.Role}
}

// Manager signs and validates HS256 tokens with one shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// GenerateToken creates a new JWT token for an actor
func (m *Manager) GenerateToken(actor model.Actor) (string, error) {
	now := time.Now()
	claims := &Claims{
		ActorID:         actor.ID,
		EstablishmentID: actor.EstablishmentID,
		Role:            actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT token
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.ActorID == uuid.Nil {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}
