package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Video mirrors a document in the videos collection. This service never
// writes videos; watchHistory ids on User resolve to these documents, and
// EnsureVideoIndexes keeps the owner join behind watch history cheap.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VideoFile   string             `bson:"videoFile" json:"videoFile"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VideoOwner is the public slice of a video's owner joined in by the
// watch-history lookup.
type VideoOwner struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"fullName" json:"fullName"`
	Username string             `bson:"username" json:"username"`
	Avatar   string             `bson:"avatar" json:"avatar"`
}

// WatchedVideo is a Video as the watch-history pipeline returns it, with the
// owner id replaced by the joined owner document.
type WatchedVideo struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	VideoFile   string             `bson:"videoFile" json:"videoFile"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	Owner       VideoOwner         `bson:"owner" json:"owner"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
