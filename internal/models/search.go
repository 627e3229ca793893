package models

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultSearchRadiusMeters = 10000
	MaxSearchRadiusMeters     = 100000
	DefaultSearchLimit        = 100
)

// SearchQuery is a proximity + tag search. The same record backs a live-channel subscription.
type SearchQuery struct {
	Center       GeoPoint `json:"center"`
	Techs        []string `json:"techs"`
	RadiusMeters float64  `json:"radius_meters"`
	Limit        int      `json:"limit"`
}

// Matches reports whether dev would appear in the results of this query.
func (q SearchQuery) Matches(dev *Developer) bool {
	if dev == nil {
		return false
	}
	if !TechsMatch(dev.Techs, q.Techs) {
		return false
	}
	return DistanceMeters(q.Center, dev.Location) <= q.RadiusMeters
}

// ParseSearchQuery reads latitude, longitude, techs, radius and limit from a query string.
// defaultRadius is used when radius is absent; non-positive means DefaultSearchRadiusMeters.
func ParseSearchQuery(values url.Values, defaultRadius float64) (SearchQuery, map[string]string) {
	errors := make(map[string]string)
	if defaultRadius <= 0 {
		defaultRadius = DefaultSearchRadiusMeters
	}

	lat, latErr := parseCoordinate(values.Get("latitude"))
	lng, lngErr := parseCoordinate(values.Get("longitude"))
	if latErr != "" {
		errors["latitude"] = "Latitude " + latErr
	} else if !ValidLatitude(lat) {
		errors["latitude"] = "Latitude must be between -90 and 90"
	}
	if lngErr != "" {
		errors["longitude"] = "Longitude " + lngErr
	} else if !ValidLongitude(lng) {
		errors["longitude"] = "Longitude must be between -180 and 180"
	}

	q := SearchQuery{
		Center:       NewGeoPoint(lat, lng),
		Techs:        NormalizeTechs(values["techs"]...),
		RadiusMeters: defaultRadius,
		Limit:        DefaultSearchLimit,
	}

	if raw := strings.TrimSpace(values.Get("radius")); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			errors["radius"] = "Radius must be a positive number of meters"
		} else {
			q.RadiusMeters = r
		}
	}
	if q.RadiusMeters > MaxSearchRadiusMeters {
		q.RadiusMeters = MaxSearchRadiusMeters
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v < DefaultSearchLimit {
			q.Limit = v
		}
	}

	return q, errors
}

func parseCoordinate(raw string) (float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "is required"
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "must be a number"
	}
	return v, ""
}
