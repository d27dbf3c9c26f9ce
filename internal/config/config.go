package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI            string
	DBName              string
	Port                string
	CORSOrigin          string
	AccessTokenSecret   string
	AccessTokenTTL      time.Duration
	RefreshTokenSecret  string
	RefreshTokenTTL     time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	TmpUploadDir        string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:            requireEnv("MONGO_URI"),
		DBName:              getEnvOrDefault("DB_NAME", "vidtube"),
		Port:                getEnvOrDefault("PORT", "8080"),
		CORSOrigin:          getEnvOrDefault("CORS_ORIGIN", "*"),
		AccessTokenSecret:   requireEnv("ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:      getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenSecret:  requireEnv("REFRESH_TOKEN_SECRET"),
		RefreshTokenTTL:     getDurationEnv("REFRESH_TOKEN_TTL", 10, 24*time.Hour),
		CloudinaryCloudName: getEnvOrDefault("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnvOrDefault("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnvOrDefault("CLOUDINARY_API_SECRET", ""),
		TmpUploadDir:        getEnvOrDefault("TMP_UPLOAD_DIR", "./public/temp"),
	}

	// A refresh token signed with the same key as access tokens could be
	// replayed as an access token, so the two secrets must differ.
	if AppEnv.AccessTokenSecret == AppEnv.RefreshTokenSecret {
		log.Fatal("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
}

func requireEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		log.Fatalf("ENV %s is required", key)
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
