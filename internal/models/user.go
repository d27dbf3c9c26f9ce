package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered channel owner. The passwordHash and
// refreshToken fields never leave the server: refreshToken holds the single
// currently valid refresh token for the account, so overwriting it revokes
// every previously issued one.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	FullName     string               `bson:"fullName" json:"fullName"`
	Avatar       string               `bson:"avatar" json:"avatar"`
	CoverImage   string               `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	PasswordHash string               `bson:"passwordHash" json:"-"`
	RefreshToken string               `bson:"refreshToken,omitempty" json:"-"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory" json:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PublicProjection is the field selection returned to clients. It mirrors the
// json tags above: passwordHash and refreshToken are always excluded.
type PublicProjection struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	FullName     string               `bson:"fullName" json:"fullName"`
	Avatar       string               `bson:"avatar" json:"avatar"`
	CoverImage   string               `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory" json:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Public returns the client-safe view of the user.
func (u User) Public() PublicProjection {
	return PublicProjection{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: u.WatchHistory,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
