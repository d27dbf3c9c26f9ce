package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

func testTokens() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
	}
}

// run sends req through VerifyJWT alone. The db is nil on purpose: every case
// here must be rejected before any user lookup happens.
func runVerifyJWT(t *testing.T, tokens auth.TokenConfig, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	router := gin.New()
	router.GET("/protected", VerifyJWT(nil, tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestVerifyJWTMissingToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/protected", nil)

	recorder := runVerifyJWT(t, testTokens(), req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", recorder.Code)
	}
}

func TestVerifyJWTExpiredToken(t *testing.T) {
	tokens := testTokens()
	expired := tokens
	expired.AccessTTL = -time.Minute

	raw, err := expired.IssueAccessToken(models.User{ID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	recorder := runVerifyJWT(t, tokens, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", recorder.Code)
	}
}

func TestVerifyJWTWrongSecret(t *testing.T) {
	forged := testTokens()
	forged.AccessSecret = "attacker-secret"

	raw, err := forged.IssueAccessToken(models.User{
		ID:       primitive.NewObjectID(),
		Username: "mallory",
		Email:    "mallory@example.com",
	})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	recorder := runVerifyJWT(t, testTokens(), req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong-secret token, got %d", recorder.Code)
	}
}

func TestVerifyJWTMalformedBearerHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc.def.ghi")

	recorder := runVerifyJWT(t, testTokens(), req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed header, got %d", recorder.Code)
	}
}

func TestAccessTokenFromPrefersCookieOverHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := AccessTokenFrom(c); got != "cookie-token" {
		t.Fatalf("expected cookie token to win, got %q", got)
	}
}

func TestAccessTokenFromFallsBackToBearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := AccessTokenFrom(c); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}
}
