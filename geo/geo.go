package geo

import (
	"errors"
	"fmt"
	"math"

	"tablematch/models"
)

var ErrInsufficientData = errors.New("no points to average")

const earthRadiusKm = 6371

// ValidatePoint rejects non-finite or out-of-range coordinates. Bad input is
// a caller bug, never silently clamped.
func ValidatePoint(p models.GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("non-finite coordinate (%v, %v)", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	return nil
}

// DistanceKm returns the great-circle (haversine) distance between two
// points in kilometers.
func DistanceKm(p1, p2 models.GeoPoint) (float64, error) {
	if err := ValidatePoint(p1); err != nil {
		return 0, err
	}
	if err := ValidatePoint(p2); err != nil {
		return 0, err
	}
	dLat := (p2.Lat - p1.Lat) * math.Pi / 180
	dLng := (p2.Lng - p1.Lng) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p1.Lat*math.Pi/180)*math.Cos(p2.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c, nil
}

// Centroid averages latitudes and longitudes over a non-empty point list.
// Good enough at city scale; not a geodesic centroid.
func Centroid(points []models.GeoPoint) (models.GeoPoint, error) {
	if len(points) == 0 {
		return models.GeoPoint{}, ErrInsufficientData
	}
	var sumLat, sumLng float64
	for _, p := range points {
		if err := ValidatePoint(p); err != nil {
			return models.GeoPoint{}, err
		}
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return models.GeoPoint{Lat: sumLat / n, Lng: sumLng / n}, nil
}
