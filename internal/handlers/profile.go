package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/middleware"
	"vidtube/internal/models"
)

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func currentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(middleware.CurrentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

// GetCurrentUser echoes the identity the middleware resolved.
func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "USER", "unauthorized request")
			return
		}
		respondOK(c, http.StatusOK, user.Public(), "current user fetched successfully")
	}
}

// ChangePassword verifies the old password and stores a hash of the new one.
// Only the passwordHash field is written, and only here, so the stored hash
// is never re-hashed by unrelated profile writes.
func ChangePassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "USER")

		user, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "USER", "unauthorized request")
			return
		}

		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, "USER", err)
			return
		}

		if req.NewPassword != req.ConfirmPassword {
			respondError(c, http.StatusBadRequest, "USER", "password and confirm password do not match")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// The middleware projection drops passwordHash, so load it here.
		var stored models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": user.ID}).Decode(&stored); err != nil {
			log.Println("[USER] [ERROR] change password lookup failed:", err)
			respondError(c, http.StatusNotFound, "USER", "user not found")
			return
		}

		if !auth.CheckPassword(req.OldPassword, stored.PasswordHash) {
			respondError(c, http.StatusBadRequest, "USER", "invalid old password")
			return
		}

		passwordHash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			log.Println("[USER] [ERROR] change password hash failed:", err)
			respondError(c, http.StatusInternalServerError, "USER", "password hash failed")
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"passwordHash": passwordHash,
				"updatedAt":    time.Now(),
			},
		})
		if err != nil {
			log.Println("[USER] [ERROR] change password update failed:", err)
			respondError(c, http.StatusInternalServerError, "USER", "db error")
			return
		}

		log.Println("[USER] [INFO] password changed:", user.Username)
		respondOK(c, http.StatusOK, gin.H{}, "password changed successfully")
	}
}

// UpdateAccount applies a partial fullName/email update and returns the fresh
// projection.
func UpdateAccount(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "USER")

		user, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "USER", "unauthorized request")
			return
		}

		var req updateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "USER", "invalid body")
			return
		}

		fullName := strings.TrimSpace(req.FullName)
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if fullName == "" && email == "" {
			respondError(c, http.StatusBadRequest, "USER", "fullName or email is required")
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		if fullName != "" {
			update["fullName"] = fullName
		}
		if email != "" {
			update["email"] = email
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.PublicProjection
		err := db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$set": update},
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"passwordHash": 0, "refreshToken": 0}),
		).Decode(&updated)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondError(c, http.StatusConflict, "USER", "email already in use")
				return
			}
			log.Println("[USER] [ERROR] account update failed:", err)
			respondError(c, http.StatusInternalServerError, "USER", "db error")
			return
		}

		log.Println("[USER] [INFO] account updated:", user.Username)
		respondOK(c, http.StatusOK, updated, "account details updated successfully")
	}
}

// UpdateAvatar replaces the avatar image: upload the new file, swap the URL,
// then delete the previous asset from the media host.
func UpdateAvatar(db *mongo.Database, uploader *media.Uploader, tmpDir string) gin.HandlerFunc {
	return updateProfileImage(db, uploader, tmpDir, "avatar")
}

// UpdateCoverImage replaces the optional cover image the same way.
func UpdateCoverImage(db *mongo.Database, uploader *media.Uploader, tmpDir string) gin.HandlerFunc {
	return updateProfileImage(db, uploader, tmpDir, "coverImage")
}

func updateProfileImage(db *mongo.Database, uploader *media.Uploader, tmpDir, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "USER")

		user, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "USER", "unauthorized request")
			return
		}

		localPath, err := saveTempUpload(c, field, tmpDir)
		if err != nil {
			respondError(c, http.StatusBadRequest, "USER", field+" file is missing")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		hostedURL, err := uploader.Upload(ctx, localPath)
		if err != nil {
			log.Printf("[USER] [ERROR] %s upload failed: %v", field, err)
			respondError(c, http.StatusBadRequest, "USER", "error while uploading "+field)
			return
		}

		previousURL := user.Avatar
		if field == "coverImage" {
			previousURL = user.CoverImage
		}

		var updated models.PublicProjection
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{field: hostedURL, "updatedAt": time.Now()}},
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"passwordHash": 0, "refreshToken": 0}),
		).Decode(&updated)
		if err != nil {
			log.Printf("[USER] [ERROR] %s update failed: %v", field, err)
			respondError(c, http.StatusInternalServerError, "USER", "db error")
			return
		}

		// Best effort: the new image is already live, a leaked old asset is
		// not worth failing the request over.
		if previousURL != "" {
			_ = uploader.Delete(ctx, previousURL)
		}

		log.Printf("[USER] [INFO] %s updated for: %s", field, user.Username)
		respondOK(c, http.StatusOK, updated, field+" updated successfully")
	}
}
