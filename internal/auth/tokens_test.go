package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vidtube/internal/models"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
	}
}

func testUser() models.User {
	return models.User{
		ID:       primitive.NewObjectID(),
		Username: "chaiaurcode",
		Email:    "chai@example.com",
		FullName: "Chai Aur Code",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testTokenConfig()
	user := testUser()

	raw, err := cfg.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := cfg.ParseAccessToken(raw)
	require.NoError(t, err)
	require.Equal(t, user.ID.Hex(), claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.Username, claims.Username)
	require.Equal(t, user.FullName, claims.FullName)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	cfg := testTokenConfig()
	userID := primitive.NewObjectID()

	raw, err := cfg.IssueRefreshToken(userID)
	require.NoError(t, err)

	claims, err := cfg.ParseRefreshToken(raw)
	require.NoError(t, err)
	require.Equal(t, userID.Hex(), claims.UserID)
}

func TestRefreshTokenCarriesOnlySubjectID(t *testing.T) {
	cfg := testTokenConfig()

	raw, err := cfg.IssueRefreshToken(primitive.NewObjectID())
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &body))
	require.NotContains(t, body, "email")
	require.NotContains(t, body, "username")
	require.NotContains(t, body, "fullName")
	require.Contains(t, body, "userId")
}

func TestAccessTokenRejectedWithWrongSecret(t *testing.T) {
	cfg := testTokenConfig()

	raw, err := cfg.IssueAccessToken(testUser())
	require.NoError(t, err)

	other := cfg
	other.AccessSecret = "some-other-secret"
	_, err = other.ParseAccessToken(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenNotAcceptedAsAccessToken(t *testing.T) {
	cfg := testTokenConfig()

	raw, err := cfg.IssueRefreshToken(primitive.NewObjectID())
	require.NoError(t, err)

	// Distinct secrets keep the two token kinds from being interchangeable.
	_, err = cfg.ParseAccessToken(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = -time.Minute

	raw, err := cfg.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = cfg.ParseAccessToken(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMalformedTokenRejected(t *testing.T) {
	cfg := testTokenConfig()

	_, err := cfg.ParseAccessToken("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = cfg.ParseRefreshToken("")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSuccessiveRefreshTokensDiffer(t *testing.T) {
	cfg := testTokenConfig()
	userID := primitive.NewObjectID()

	first, err := cfg.IssueRefreshToken(userID)
	require.NoError(t, err)
	second, err := cfg.IssueRefreshToken(userID)
	require.NoError(t, err)

	// Rotation relies on each issued token being unique even within the same
	// second, otherwise overwriting the stored slot would be a no-op.
	require.NotEqual(t, first, second)
}
