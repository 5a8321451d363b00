package models

import "time"

// SavedLocation is a named place a user keeps for quick reuse.
type SavedLocation struct {
	Name        string   `json:"name" bson:"name"`
	Address     string   `json:"address" bson:"address"`
	Coordinates GeoPoint `json:"coordinates" bson:"coordinates"`
}

// FavoriteVenue is a restaurant a user pinned from past results.
type FavoriteVenue struct {
	PlaceID string    `json:"placeId" bson:"placeId"`
	Name    string    `json:"name" bson:"name"`
	AddedAt time.Time `json:"addedAt" bson:"addedAt"`
}

type ProfileStats struct {
	SessionsJoined int `json:"sessionsJoined" bson:"sessionsJoined"`
	TotalSearches  int `json:"totalSearches" bson:"totalSearches"`
}

// UserProfile is a user's persistent state across sessions: default
// preferences seed a participant on join when the client sends none.
type UserProfile struct {
	UserID         string          `json:"userId" bson:"userId"`
	DisplayName    string          `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Defaults       PreferenceSet   `json:"defaultPreferences" bson:"defaultPreferences"`
	StartLocation  *Location       `json:"startLocation,omitempty" bson:"startLocation,omitempty"`
	SavedLocations []SavedLocation `json:"savedLocations,omitempty" bson:"savedLocations,omitempty"`
	Favorites      []FavoriteVenue `json:"favoriteRestaurants,omitempty" bson:"favoriteRestaurants,omitempty"`
	Stats          ProfileStats    `json:"stats" bson:"stats"`
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
	LastActive     time.Time       `json:"lastActive" bson:"lastActive"`
}

// DefaultPreferences is what a profile starts with before the user touches
// anything.
func DefaultPreferences() PreferenceSet {
	return PreferenceSet{Cuisines: []string{}, Price: PriceModerate, OpenNow: true}
}
