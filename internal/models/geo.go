package models

import (
	"errors"
	"math"
)

// earthRadiusMeters matches the sphere MongoDB uses for $nearSphere on GeoJSON points,
// so the in-memory store and live pushes agree with Mongo searches at the radius edge.
const earthRadiusMeters = 6378100.0

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// GeoPoint is a GeoJSON Point. Coordinates are stored as [longitude, latitude],
// which is the order the 2dsphere index expects.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint takes latitude first, the way clients send it, and stores it the GeoJSON way.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Validate reports whether the point would be accepted by a 2dsphere index.
func (p GeoPoint) Validate() error {
	if p.Type != "Point" || len(p.Coordinates) != 2 {
		return ErrInvalidCoordinates
	}
	if !ValidLatitude(p.Latitude()) || !ValidLongitude(p.Longitude()) {
		return ErrInvalidCoordinates
	}
	return nil
}

func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

// DistanceMeters is the great-circle (haversine) distance between two points.
func DistanceMeters(a, b GeoPoint) float64 {
	lat1Rad := a.Latitude() * math.Pi / 180
	lat2Rad := b.Latitude() * math.Pi / 180
	deltaLat := (b.Latitude() - a.Latitude()) * math.Pi / 180
	deltaLon := (b.Longitude() - a.Longitude()) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
