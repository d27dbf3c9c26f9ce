package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vidtube/internal/auth"
	"vidtube/internal/models"
)

const (
	// CurrentUserKey holds the resolved models.User for downstream handlers.
	CurrentUserKey = "currentUser"
	// UserIDKey holds the resolved primitive.ObjectID.
	UserIDKey = "userId"
)

// AccessTokenFrom picks the access token out of the request: the accessToken
// cookie wins, the Authorization Bearer header is the fallback.
func AccessTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// VerifyJWT validates the access token, resolves it to a user and injects the
// identity into the context. This is the sole gate in front of every
// identity-scoped route.
func VerifyJWT(db *mongo.Database, tokens auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := AccessTokenFrom(c)
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing access token")
			abortUnauthorized(c, "unauthorized request")
			return
		}

		claims, err := tokens.ParseAccessToken(raw)
		if err != nil {
			log.Println("[AUTH] [ERROR] access token validation failed:", err)
			abortUnauthorized(c, "invalid access token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid userId claim")
			abortUnauthorized(c, "invalid access token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// The token may outlive the account, so the subject must still exist.
		var user models.User
		err = db.Collection("users").FindOne(ctx, bson.M{"_id": userID},
			options.FindOne().SetProjection(bson.M{"passwordHash": 0, "refreshToken": 0}),
		).Decode(&user)
		if err != nil {
			log.Println("[AUTH] [ERROR] token subject not found:", err)
			abortUnauthorized(c, "invalid access token")
			return
		}

		c.Set(CurrentUserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"statusCode": http.StatusUnauthorized,
		"data":       nil,
		"message":    message,
		"success":    false,
		"errors":     []string{message},
	})
}
