package handlers

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

	"vidtube/internal/models"
)

// channelProfilePipeline joins the subscriptions collection twice: once for
// who follows the channel, once for who the channel follows, and marks
// whether the viewer is among the subscribers.
func channelProfilePipeline(username string, viewerID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{
				"$in": bson.A{viewerID, "$subscribers.subscriber"},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"fullName":                  1,
			"username":                  1,
			"email":                     1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}
}

// watchHistoryPipeline resolves the user's watched video ids into video
// documents with their owner's public fields attached. Pagination applies to
// the joined videos.
func watchHistoryPipeline(userID primitive.ObjectID, page, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "videos",
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "watchHistory",
			"pipeline": mongo.Pipeline{
				{{Key: "$skip", Value: (page - 1) * limit}},
				{{Key: "$limit", Value: limit}},
				{{Key: "$lookup", Value: bson.M{
					"from":         "users",
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": mongo.Pipeline{
						{{Key: "$project", Value: bson.M{
							"fullName": 1,
							"username": 1,
							"avatar":   1,
						}}},
					},
				}}},
				{{Key: "$addFields", Value: bson.M{
					"owner": bson.M{"$first": "$owner"},
				}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{"watchHistory": 1}}},
	}
}

// GetChannelProfile returns subscriber statistics for the named channel as
// seen by the authenticated viewer.
func GetChannelProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "CHANNEL")

		viewer, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "CHANNEL", "unauthorized request")
			return
		}

		username := strings.ToLower(strings.TrimSpace(c.Param("username")))
		if username == "" {
			respondError(c, http.StatusBadRequest, "CHANNEL", "username is missing")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("users").Aggregate(ctx, channelProfilePipeline(username, viewer.ID))
		if err != nil {
			log.Println("[CHANNEL] [ERROR] profile aggregation failed:", err)
			respondError(c, http.StatusInternalServerError, "CHANNEL", "db error")
			return
		}
		defer cursor.Close(ctx)

		var channels []bson.M
		if err := cursor.All(ctx, &channels); err != nil {
			log.Println("[CHANNEL] [ERROR] profile decode failed:", err)
			respondError(c, http.StatusInternalServerError, "CHANNEL", "db error")
			return
		}

		if len(channels) == 0 {
			respondError(c, http.StatusNotFound, "CHANNEL", "channel does not exist")
			return
		}

		respondOK(c, http.StatusOK, channels[0], "user channel fetched successfully")
	}
}

// GetWatchHistory returns the authenticated user's watched videos with their
// owners resolved.
func GetWatchHistory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, "HISTORY")

		user, ok := currentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "HISTORY", "unauthorized request")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "HISTORY", "invalid pagination params")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("users").Aggregate(ctx, watchHistoryPipeline(user.ID, page, limit))
		if err != nil {
			log.Println("[HISTORY] [ERROR] aggregation failed:", err)
			respondError(c, http.StatusInternalServerError, "HISTORY", "db error")
			return
		}
		defer cursor.Close(ctx)

		var results []struct {
			WatchHistory []models.WatchedVideo `bson:"watchHistory"`
		}
		if err := cursor.All(ctx, &results); err != nil {
			log.Println("[HISTORY] [ERROR] decode failed:", err)
			respondError(c, http.StatusInternalServerError, "HISTORY", "db error")
			return
		}

		history := []models.WatchedVideo{}
		if len(results) > 0 && results[0].WatchHistory != nil {
			history = results[0].WatchHistory
		}

		respondOK(c, http.StatusOK, history, "watch history fetched successfully")
	}
}
