package models

import "time"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Location is a participant's starting point plus its free-text label.
type Location struct {
	Lat   float64 `json:"lat" bson:"lat"`
	Lng   float64 `json:"lng" bson:"lng"`
	Label string  `json:"label,omitempty" bson:"label,omitempty"`
}

func (l Location) Point() GeoPoint {
	return GeoPoint{Lat: l.Lat, Lng: l.Lng}
}

// PriceTier is one of the four ordered price levels, or "any".
type PriceTier string

const (
	PriceAny      PriceTier = "any"
	PriceCheap    PriceTier = "$"
	PriceModerate PriceTier = "$$"
	PriceUpscale  PriceTier = "$$$"
	PricePremium  PriceTier = "$$$$"
)

// PriceLevel maps a tier to the numeric level used by the places provider
// (1..4). Returns 0 for "any" or anything unrecognized.
func (p PriceTier) Level() int {
	switch p {
	case PriceCheap:
		return 1
	case PriceModerate:
		return 2
	case PriceUpscale:
		return 3
	case PricePremium:
		return 4
	}
	return 0
}

func (p PriceTier) Valid() bool {
	switch p {
	case PriceAny, PriceCheap, PriceModerate, PriceUpscale, PricePremium:
		return true
	}
	return false
}

// PreferenceSet is one participant's dining preferences. An empty cuisine
// list means "any cuisine".
type PreferenceSet struct {
	Cuisines []string  `json:"cuisines" bson:"cuisines"`
	Price    PriceTier `json:"price" bson:"price"`
	OpenNow  bool      `json:"openNow" bson:"openNow"`
}

// Participant is one user's state inside a session. Keyed by the opaque
// user ID issued by the identity provider.
type Participant struct {
	ID          string        `json:"id" bson:"id"`
	Preferences PreferenceSet `json:"preferences" bson:"preferences"`
	Location    *Location     `json:"location,omitempty" bson:"location,omitempty"`
	JoinedAt    time.Time     `json:"joinedAt" bson:"joinedAt"`
	LastActive  time.Time     `json:"lastActive" bson:"lastActive"`
}

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
)

// Venue is one candidate restaurant in a ranked result set.
type Venue struct {
	ExternalID      string   `json:"placeId" bson:"placeId"`
	Name            string   `json:"name" bson:"name"`
	Address         string   `json:"address" bson:"address"`
	Rating          float64  `json:"rating" bson:"rating"`
	PriceLevel      int      `json:"priceLevel" bson:"priceLevel"`
	Location        GeoPoint `json:"location" bson:"location"`
	Cuisines        []string `json:"cuisines,omitempty" bson:"cuisines,omitempty"`
	MatchedCuisines []string `json:"matchedCuisines,omitempty" bson:"matchedCuisines,omitempty"`
	SatisfiedCount  int      `json:"satisfiedCount" bson:"satisfiedCount"`
	FairnessScore   float64  `json:"fairnessScore" bson:"fairnessScore"`
}

// CachedResult is a session's last computed ranking. Replaced wholesale on
// each recompute, never patched.
type CachedResult struct {
	Venues    []Venue   `json:"venues" bson:"venues"`
	CachedAt  time.Time `json:"cachedAt" bson:"cachedAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Session groups participants hunting for a restaurant together.
type Session struct {
	ID           string                  `json:"sessionId" bson:"sessionId"`
	RoomCode     string                  `json:"roomCode,omitempty" bson:"roomCode,omitempty"`
	Participants map[string]*Participant `json:"participants" bson:"participants"`
	Status       SessionStatus           `json:"status" bson:"status"`
	CreatedAt    time.Time               `json:"createdAt" bson:"createdAt"`
	LastActivity time.Time               `json:"lastActivity" bson:"lastActivity"`
	ExpiresAt    time.Time               `json:"expiresAt" bson:"expiresAt"`
	Results      *CachedResult           `json:"results,omitempty" bson:"results,omitempty"`
}

// RoomCodeDoc is the persisted form of a room-code reservation.
type RoomCodeDoc struct {
	Code      string    `json:"code" bson:"code"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// CuisineCount is one cuisine's tally across a session's participants.
type CuisineCount struct {
	Tag        string  `json:"tag"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PreferenceAnalysis is the derived group view of a participant set. Never
// persisted; recomputed from a snapshot on every match.
type PreferenceAnalysis struct {
	Cuisines          []CuisineCount `json:"cuisines"`
	Priority          []string       `json:"priority"`
	Fallback          []string       `json:"fallback"`
	DominantPrice     PriceTier      `json:"dominantPrice"`
	OpenNowPercentage float64        `json:"openNowPercentage"`
	FilterOpenNow     bool           `json:"filterOpenNow"`
}

// MatchResult is what findMatches hands back to the caller.
type MatchResult struct {
	SessionID string    `json:"sessionId"`
	Venues    []Venue   `json:"venues"`
	Cached    bool      `json:"cached"`
	CachedAt  time.Time `json:"cachedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
