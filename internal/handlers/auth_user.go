package handlers

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/middleware"
	"vidtube/internal/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// rotateSession issues a fresh token pair and overwrites the user's single
// stored refresh token. The overwrite is what revokes every previously issued
// refresh token. Only the one field is written, so stale unrelated fields
// never block rotation.
func rotateSession(ctx context.Context, db *mongo.Database, tokens auth.TokenConfig, user models.User) (string, string, error) {
	accessToken, err := tokens.IssueAccessToken(user)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
		"$set": bson.M{"refreshToken": refreshToken},
	})
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Register creates a user from a multipart form: fullName, email, username,
// password plus a required avatar file and an optional coverImage file. The
// two image fields are sourced independently.
func Register(db *mongo.Database, uploader *media.Uploader, tmpDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "AUTH")

		fullName := strings.TrimSpace(c.PostForm("fullName"))
		email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
		username := strings.ToLower(strings.TrimSpace(c.PostForm("username")))
		password := strings.TrimSpace(c.PostForm("password"))

		if fullName == "" || email == "" || username == "" || password == "" {
			respondError(c, http.StatusBadRequest, "AUTH", "all fields are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("users").CountDocuments(ctx, bson.M{
			"$or": []bson.M{{"username": username}, {"email": email}},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] register lookup failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}
		if count > 0 {
			respondError(c, http.StatusConflict, "AUTH", "user with email or username already exists")
			return
		}

		avatarPath, err := saveTempUpload(c, "avatar", tmpDir)
		if err != nil {
			respondError(c, http.StatusBadRequest, "AUTH", "avatar file is required")
			return
		}

		coverImagePath, err := saveTempUpload(c, "coverImage", tmpDir)
		if err != nil && err != errNoFile {
			// The avatar temp file is already on disk and only Upload cleans
			// temp files, so drop it before bailing out.
			if removeErr := os.Remove(avatarPath); removeErr != nil && !os.IsNotExist(removeErr) {
				log.Println("[AUTH] [ERROR] avatar temp cleanup failed:", removeErr)
			}
			respondError(c, http.StatusBadRequest, "AUTH", "invalid cover image file")
			return
		}

		avatarURL, err := uploader.Upload(ctx, avatarPath)
		if err != nil {
			log.Println("[AUTH] [ERROR] avatar upload failed:", err)
			respondError(c, http.StatusBadRequest, "AUTH", "avatar upload failed")
			return
		}

		coverImageURL := ""
		if coverImagePath != "" {
			if coverImageURL, err = uploader.Upload(ctx, coverImagePath); err != nil {
				log.Println("[AUTH] [ERROR] cover image upload failed:", err)
				respondError(c, http.StatusBadRequest, "AUTH", "cover image upload failed")
				return
			}
		}

		passwordHash, err := auth.HashPassword(password)
		if err != nil {
			log.Println("[AUTH] [ERROR] register password hash failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "password hash failed")
			return
		}

		now := time.Now()
		user := models.User{
			Username:     username,
			Email:        email,
			FullName:     fullName,
			Avatar:       avatarURL,
			CoverImage:   coverImageURL,
			PasswordHash: passwordHash,
			WatchHistory: []primitive.ObjectID{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondError(c, http.StatusConflict, "AUTH", "user with email or username already exists")
				return
			}
			log.Println("[AUTH] [ERROR] register insert failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "something went wrong while registering the user")
			return
		}

		user.ID, _ = res.InsertedID.(primitive.ObjectID)
		log.Println("[AUTH] [INFO] user registered:", username)
		respondOK(c, http.StatusCreated, user.Public(), "user registered successfully")
	}
}

// Login authenticates by username or email plus password, rotates the
// session and sets both token cookies.
func Login(db *mongo.Database, tokens auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "AUTH")

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "AUTH", "invalid body")
			return
		}

		username := strings.ToLower(strings.TrimSpace(req.Username))
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if username == "" && email == "" {
			respondError(c, http.StatusBadRequest, "AUTH", "username or email is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"$or": []bson.M{{"username": username}, {"email": email}},
		}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusNotFound, "AUTH", "user does not exist")
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] login lookup failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			log.Println("[AUTH] [ERROR] login invalid credentials for:", user.Username)
			respondError(c, http.StatusUnauthorized, "AUTH", "invalid user credentials")
			return
		}

		accessToken, refreshToken, err := rotateSession(ctx, db, tokens, user)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "something went wrong while generating tokens")
			return
		}

		setAuthCookies(c, accessToken, refreshToken, tokens.AccessTTL, tokens.RefreshTTL)

		log.Println("[AUTH] [INFO] user login succeeded:", user.Username)
		respondOK(c, http.StatusOK, gin.H{
			"user":         user.Public(),
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		}, "user logged in successfully")
	}
}

// Logout clears the stored refresh token slot for the authenticated user and
// discards both token cookies. A cleared slot can never equal a presented
// token, so every outstanding refresh token dies with it.
func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "AUTH")

		userIDValue, ok := c.Get(middleware.UserIDKey)
		if !ok {
			respondError(c, http.StatusUnauthorized, "AUTH", "unauthorized request")
			return
		}
		userID := userIDValue.(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$unset": bson.M{"refreshToken": ""},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] logout failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		clearAuthCookies(c)
		log.Println("[AUTH] [INFO] user logged out")
		respondOK(c, http.StatusOK, gin.H{}, "user logged out")
	}
}

// Refresh exchanges a valid refresh token for a new pair. The stored slot is
// swapped with a compare-and-swap on the presented value: a stale token, a
// cleared slot or a concurrent rotation all fail the filter and get 401.
func Refresh(db *mongo.Database, tokens auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "AUTH")

		incoming := refreshTokenFrom(c)
		if incoming == "" {
			respondError(c, http.StatusUnauthorized, "AUTH", "unauthorized request")
			return
		}

		claims, err := tokens.ParseRefreshToken(incoming)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "AUTH", "invalid refresh token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "AUTH", "invalid refresh token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			if err == mongo.ErrNoDocuments {
				respondError(c, http.StatusUnauthorized, "AUTH", "invalid refresh token")
				return
			}
			// A transient lookup fault is the server's problem, not a bad
			// credential.
			log.Println("[AUTH] [ERROR] refresh lookup failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		accessToken, err := tokens.IssueAccessToken(user)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token generation failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "something went wrong while generating tokens")
			return
		}
		refreshToken, err := tokens.IssueRefreshToken(user.ID)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token generation failed:", err)
			respondError(c, http.StatusInternalServerError, "AUTH", "something went wrong while generating tokens")
			return
		}

		// Atomic swap: succeeds only while the stored slot still byte-equals
		// the presented token.
		swap := db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID, "refreshToken": incoming},
			bson.M{"$set": bson.M{"refreshToken": refreshToken}},
		)
		if swap.Err() == mongo.ErrNoDocuments {
			respondError(c, http.StatusUnauthorized, "AUTH", "refresh token is expired or used")
			return
		}
		if swap.Err() != nil {
			log.Println("[AUTH] [ERROR] refresh rotation failed:", swap.Err())
			respondError(c, http.StatusInternalServerError, "AUTH", "something went wrong while generating tokens")
			return
		}

		setAuthCookies(c, accessToken, refreshToken, tokens.AccessTTL, tokens.RefreshTTL)

		log.Println("[AUTH] [INFO] access token refreshed for:", user.Username)
		respondOK(c, http.StatusOK, gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		}, "access token refreshed")
	}
}
