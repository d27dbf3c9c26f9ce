package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vidtube/internal/auth"
	"vidtube/internal/config"
	"vidtube/internal/database"
	"vidtube/internal/handlers"
	"vidtube/internal/media"
	"vidtube/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureSubscriptionIndexes(db); err != nil {
		log.Printf("subscription index warning: %v", err)
	}
	if err := database.EnsureVideoIndexes(db); err != nil {
		log.Printf("video index warning: %v", err)
	}

	tokens := auth.TokenConfig{
		AccessSecret:  config.AppEnv.AccessTokenSecret,
		AccessTTL:     config.AppEnv.AccessTokenTTL,
		RefreshSecret: config.AppEnv.RefreshTokenSecret,
		RefreshTTL:    config.AppEnv.RefreshTokenTTL,
	}

	uploader, err := media.NewUploader(
		config.AppEnv.CloudinaryCloudName,
		config.AppEnv.CloudinaryAPIKey,
		config.AppEnv.CloudinaryAPISecret,
	)
	if err != nil {
		log.Fatal("cloudinary init failed:", err)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.AppEnv.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Static("/public", "./public")

	r.GET("/healthz", handlers.Health(db))

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", handlers.Register(db, uploader, config.AppEnv.TmpUploadDir))
		users.POST("/login", handlers.Login(db, tokens))
		users.POST("/refresh-token", handlers.Refresh(db, tokens))

		secured := users.Group("")
		secured.Use(middleware.VerifyJWT(db, tokens))
		{
			secured.POST("/logout", handlers.Logout(db))
			secured.GET("/me", handlers.GetCurrentUser())
			secured.POST("/change-password", handlers.ChangePassword(db))
			secured.PATCH("/update-account", handlers.UpdateAccount(db))
			secured.POST("/update-profile/avatar", handlers.UpdateAvatar(db, uploader, config.AppEnv.TmpUploadDir))
			secured.POST("/update-profile/coverImage", handlers.UpdateCoverImage(db, uploader, config.AppEnv.TmpUploadDir))
			secured.GET("/c/:username", handlers.GetChannelProfile(db))
			secured.GET("/history", handlers.GetWatchHistory(db))
		}
	}

	r.Run(":" + config.AppEnv.Port)
}
