package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tablematch/db"
	"tablematch/models"
	"tablematch/rdx"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cacheTTL = 5 * time.Minute

var ErrNotFound = errors.New("profile not found")

func cacheKey(userID string) string { return "profile:" + userID }

// Get loads a user's profile, creating a default one on first sight so a
// fresh user can join a session immediately.
func Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if cached, err := rdx.RdxGet(cacheKey(userID)); err == nil && cached != "" {
		var p models.UserProfile
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
	}

	var p models.UserProfile
	err := db.ProfilesCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		now := time.Now()
		p = models.UserProfile{
			UserID:     userID,
			Defaults:   models.DefaultPreferences(),
			CreatedAt:  now,
			LastActive: now,
		}
		if _, err := db.ProfilesCollection.InsertOne(ctx, p); err != nil {
			return nil, fmt.Errorf("create profile %s: %w", userID, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	cache(&p)
	return &p, nil
}

// Update applies a partial profile edit and refreshes lastActive.
type Update struct {
	DisplayName    *string                 `json:"displayName,omitempty"`
	Defaults       *models.PreferenceSet   `json:"defaultPreferences,omitempty"`
	StartLocation  *models.Location        `json:"startLocation,omitempty"`
	SavedLocations *[]models.SavedLocation `json:"savedLocations,omitempty"`
}

func Apply(ctx context.Context, userID string, upd Update) (*models.UserProfile, error) {
	set := bson.M{"lastActive": time.Now()}
	if upd.DisplayName != nil {
		set["displayName"] = *upd.DisplayName
	}
	if upd.Defaults != nil {
		set["defaultPreferences"] = *upd.Defaults
	}
	if upd.StartLocation != nil {
		set["startLocation"] = *upd.StartLocation
	}
	if upd.SavedLocations != nil {
		set["savedLocations"] = *upd.SavedLocations
	}

	res, err := db.ProfilesCollection.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	invalidate(userID)
	return Get(ctx, userID)
}

// AddFavorite pins a venue from past results onto the profile.
func AddFavorite(ctx context.Context, userID string, fav models.FavoriteVenue) error {
	if fav.AddedAt.IsZero() {
		fav.AddedAt = time.Now()
	}
	_, err := db.ProfilesCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"favoriteRestaurants": bson.M{"placeId": fav.PlaceID}},
		})
	if err != nil {
		return fmt.Errorf("dedupe favorite: %w", err)
	}
	res, err := db.ProfilesCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$push": bson.M{"favoriteRestaurants": fav}})
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	invalidate(userID)
	return nil
}

// BumpStats increments usage counters. Best effort: a failed bump never
// fails the request that triggered it.
func BumpStats(ctx context.Context, userID string, sessionsJoined, searches int) {
	_, err := db.ProfilesCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$inc": bson.M{
				"stats.sessionsJoined": sessionsJoined,
				"stats.totalSearches":  searches,
			},
			"$set": bson.M{"lastActive": time.Now()},
		},
		options.Update().SetUpsert(false))
	if err != nil {
		log.Printf("bump stats for %s: %v", userID, err)
		return
	}
	invalidate(userID)
}

func cache(p *models.UserProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := rdx.RdxSet(cacheKey(p.UserID), string(data), cacheTTL); err != nil {
		log.Printf("cache profile %s: %v", p.UserID, err)
	}
}

func invalidate(userID string) {
	if err := rdx.RdxDel(cacheKey(userID)); err != nil {
		log.Printf("drop profile cache %s: %v", userID, err)
	}
}
