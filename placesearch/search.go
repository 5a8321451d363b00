package placesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tablematch/models"
)

// ErrSearchUnavailable wraps any provider failure or timeout. The engine
// surfaces it without retrying and without touching the cache.
var ErrSearchUnavailable = errors.New("places search unavailable")

// Query is one search against the places provider.
type Query struct {
	Location   models.GeoPoint
	Term       string
	RadiusM    int
	OpenNow    bool
	PriceLevel int // 1..4, 0 for any
	Limit      int
}

// Searcher is the capability contract: given a location and a term, return
// candidate venues. May fail or time out; no retry contract.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]models.Venue, error)
}

const (
	defaultBaseURL = "https://api.foursquare.com/v3/places/search"
	defaultTimeout = 8 * time.Second
	defaultLimit   = 20
)

// Client talks to the Foursquare places API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

type fsqResponse struct {
	Results []fsqPlace `json:"results"`
}

type fsqPlace struct {
	FsqID      string  `json:"fsq_id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Price      int     `json:"price"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
}

func (c *Client) Search(ctx context.Context, q Query) ([]models.Venue, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := url.Values{}
	params.Set("ll", fmt.Sprintf("%f,%f", q.Location.Lat, q.Location.Lng))
	params.Set("query", q.Term)
	params.Set("radius", strconv.Itoa(q.RadiusM))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "RELEVANCE")
	if q.OpenNow {
		params.Set("open_now", "true")
	}
	if q.PriceLevel > 0 {
		params.Set("min_price", strconv.Itoa(q.PriceLevel))
		params.Set("max_price", strconv.Itoa(q.PriceLevel))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearchUnavailable, err)
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var body fsqResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchUnavailable, err)
	}

	venues := make([]models.Venue, 0, len(body.Results))
	for _, p := range body.Results {
		venues = append(venues, models.Venue{
			ExternalID: p.FsqID,
			Name:       p.Name,
			Address:    p.Location.FormattedAddress,
			Rating:     p.Rating,
			PriceLevel: p.Price,
			Location: models.GeoPoint{
				Lat: p.Geocodes.Main.Latitude,
				Lng: p.Geocodes.Main.Longitude,
			},
			Cuisines: inferCuisines(p),
		})
	}
	return venues, nil
}

// inferCuisines turns provider categories into normalized cuisine tags,
// e.g. "Italian Restaurant" -> "italian".
func inferCuisines(p fsqPlace) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, cat := range p.Categories {
		tag := strings.ToLower(strings.TrimSpace(cat.Name))
		tag = strings.TrimSuffix(tag, " restaurant")
		if tag == "" || tag == "restaurant" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
