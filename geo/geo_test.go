package geo

import (
	"math"
	"testing"

	"tablematch/models"
)

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	points := []models.GeoPoint{
		{Lat: 0, Lng: 0},
		{Lat: 32.90, Lng: -97.04},
		{Lat: -45.5, Lng: 170.2},
	}
	for _, p := range points {
		d, err := DistanceKm(p, p)
		if err != nil {
			t.Fatalf("DistanceKm(%v, %v): %v", p, p, err)
		}
		if d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := models.GeoPoint{Lat: 32.90, Lng: -97.04}
	b := models.GeoPoint{Lat: 32.80, Lng: -97.10}
	d1, err := DistanceKm(a, b)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := DistanceKm(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
	// ~12.5 km between these two DFW-area points
	if d1 < 11 || d1 > 14 {
		t.Errorf("distance %v km outside plausible range", d1)
	}
}

func TestDistanceKmRejectsBadInput(t *testing.T) {
	good := models.GeoPoint{Lat: 10, Lng: 10}
	bad := []models.GeoPoint{
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, p := range bad {
		if _, err := DistanceKm(good, p); err == nil {
			t.Errorf("DistanceKm accepted bad point %v", p)
		}
		if _, err := DistanceKm(p, good); err == nil {
			t.Errorf("DistanceKm accepted bad point %v", p)
		}
	}
}

func TestCentroid(t *testing.T) {
	got, err := Centroid([]models.GeoPoint{
		{Lat: 32.90, Lng: -97.04},
		{Lat: 32.80, Lng: -97.10},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := models.GeoPoint{Lat: 32.85, Lng: -97.07}
	if math.Abs(got.Lat-want.Lat) > 1e-9 || math.Abs(got.Lng-want.Lng) > 1e-9 {
		t.Errorf("Centroid = %v, want %v", got, want)
	}
}

func TestCentroidEmpty(t *testing.T) {
	if _, err := Centroid(nil); err != ErrInsufficientData {
		t.Errorf("Centroid(nil) err = %v, want ErrInsufficientData", err)
	}
}
