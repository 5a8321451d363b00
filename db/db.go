package db

import (
	"context"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	SessionsCollection    *mongo.Collection
	MembershipsCollection *mongo.Collection
	RoomCodesCollection   *mongo.Collection
	ProfilesCollection    *mongo.Collection
	Client                *mongo.Client
)

// Initialize MongoDB connection
func init() {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("tablematch")
	SessionsCollection = database.Collection("sessions")
	MembershipsCollection = database.Collection("memberships")
	RoomCodesCollection = database.Collection("roomcodes")
	ProfilesCollection = database.Collection("profiles")

	ensureIndexes()
}

// ensureIndexes sets up TTL indexes so documents orphaned by a crash still
// expire server-side. Sessions and room codes carry their own expiresAt;
// memberships age out on updatedAt after the session lifetime.
func ensureIndexes() {
	ctx := context.TODO()
	ttlAt := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.M{field: 1},
			Options: options.Index().SetExpireAfterSeconds(0),
		}
	}

	if _, err := SessionsCollection.Indexes().CreateOne(ctx, ttlAt("expiresAt")); err != nil {
		log.Printf("sessions TTL index: %v", err)
	}
	if _, err := RoomCodesCollection.Indexes().CreateOne(ctx, ttlAt("expiresAt")); err != nil {
		log.Printf("roomcodes TTL index: %v", err)
	}
	if _, err := MembershipsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"updatedAt": 1},
		Options: options.Index().SetExpireAfterSeconds(int32(24 * 60 * 60)),
	}); err != nil {
		log.Printf("memberships TTL index: %v", err)
	}
}
