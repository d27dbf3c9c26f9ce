package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName("username_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
	}

	log.Println("EnsureUserIndexes: creating username_unique and email_unique indexes")
	_, err := indexes.CreateMany(ctx, userIndexes)
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: indexes created")
	return nil
}

func EnsureSubscriptionIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("subscriptions").Indexes()

	pairIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "channel", Value: 1},
			{Key: "subscriber", Value: 1},
		},
		Options: options.Index().
			SetName("channel_subscriber_unique").
			SetUnique(true),
	}

	log.Println("EnsureSubscriptionIndexes: creating channel_subscriber_unique index")
	_, err := indexes.CreateOne(ctx, pairIndex)
	if err != nil {
		log.Println("EnsureSubscriptionIndexes: index error:", err)
		return err
	}
	log.Println("EnsureSubscriptionIndexes: channel_subscriber_unique index created")
	return nil
}

func EnsureVideoIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("videos").Indexes()

	ownerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}},
		Options: options.Index().SetName("owner_index"),
	}

	log.Println("EnsureVideoIndexes: creating owner_index index")
	_, err := indexes.CreateOne(ctx, ownerIndex)
	if err != nil {
		log.Println("EnsureVideoIndexes: owner index error:", err)
		return err
	}
	log.Println("EnsureVideoIndexes: owner_index index created")
	return nil
}
