package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshTokenFrom picks the incoming refresh token: the refreshToken cookie
// wins, a refreshToken body field is the fallback.
func refreshTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie("refreshToken"); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	var req refreshRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

// setAuthCookies attaches both token cookies. httpOnly keeps scripts out,
// secure keeps them off plain http.
func setAuthCookies(c *gin.Context, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("accessToken", accessToken, int(accessTTL.Seconds()), "/", "", true, true)
	c.SetCookie("refreshToken", refreshToken, int(refreshTTL.Seconds()), "/", "", true, true)
}

func clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("accessToken", "", -1, "/", "", true, true)
	c.SetCookie("refreshToken", "", -1, "/", "", true, true)
}

var errInvalidPagination = errors.New("invalid pagination params")

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(20)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = l
	}

	return page, limit, nil
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

// Health reports process liveness and database reachability.
func Health(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, http.StatusServiceUnavailable, "HEALTH", "database unreachable")
			return
		}
		respondOK(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	}
}
