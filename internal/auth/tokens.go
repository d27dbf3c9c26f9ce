package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vidtube/internal/models"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// signing method, expired, malformed.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenConfig carries the two signing secrets and lifetimes. It is built once
// at startup from the environment and passed in explicitly; nothing in this
// package reads process-wide state.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// AccessClaims are embedded in short-lived access tokens and carry the full
// request identity.
type AccessClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the subject id. Profile fields would go stale over
// a refresh token's long lifetime, so they are deliberately left out.
type RefreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func (cfg TokenConfig) IssueAccessToken(user models.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AccessSecret))
}

func (cfg TokenConfig) IssueRefreshToken(userID primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti makes every issued refresh token unique even when two
			// rotations land in the same second.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.RefreshSecret))
}

// ParseAccessToken verifies signature and expiry against the access secret.
func (cfg TokenConfig) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := cfg.parse(raw, claims, cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry against the refresh secret.
func (cfg TokenConfig) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := cfg.parse(raw, claims, cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (cfg TokenConfig) parse(raw string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
