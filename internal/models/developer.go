package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Developer is a registered profile, keyed by GitHub username.
type Developer struct {
	ID             string    `json:"_id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	GithubUsername string    `json:"github_username" bson:"github_username"`
	Bio            string    `json:"bio" bson:"bio"`
	AvatarURL      string    `json:"avatar_url" bson:"avatar_url"`
	Techs          []string  `json:"techs" bson:"techs"`
	Location       GeoPoint  `json:"location" bson:"location"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// MarshalJSON adds flat latitude/longitude next to the GeoJSON location so clients
// never have to index into coordinates themselves.
func (d Developer) MarshalJSON() ([]byte, error) {
	type alias Developer
	return json.Marshal(struct {
		alias
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}{
		alias:     alias(d),
		Latitude:  d.Location.Latitude(),
		Longitude: d.Location.Longitude(),
	})
}

var githubUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)

// NormalizeUsername lowercases and trims; GitHub logins are case-insensitive.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func ValidUsername(u string) bool {
	return githubUsernamePattern.MatchString(u)
}

type CreateDevRequest struct {
	GithubUsername string   `json:"github_username"`
	Techs          TechList `json:"techs"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

func (r *CreateDevRequest) Validate() map[string]string {
	errors := make(map[string]string)

	r.GithubUsername = NormalizeUsername(r.GithubUsername)
	if r.GithubUsername == "" {
		errors["github_username"] = "GitHub username is required"
	} else if !ValidUsername(r.GithubUsername) {
		errors["github_username"] = "GitHub username is invalid"
	}
	r.Techs = NormalizeTechs(r.Techs...)
	if len(r.Techs) == 0 {
		errors["techs"] = "At least one tech is required"
	}
	if r.Latitude == nil {
		errors["latitude"] = "Latitude is required"
	} else if !ValidLatitude(*r.Latitude) {
		errors["latitude"] = "Latitude must be between -90 and 90"
	}
	if r.Longitude == nil {
		errors["longitude"] = "Longitude is required"
	} else if !ValidLongitude(*r.Longitude) {
		errors["longitude"] = "Longitude must be between -180 and 180"
	}

	return errors
}

// UpdateDevRequest only touches the fields that are present.
// Latitude and longitude must be sent together.
type UpdateDevRequest struct {
	Name      *string   `json:"name"`
	Bio       *string   `json:"bio"`
	AvatarURL *string   `json:"avatar_url"`
	Techs     *TechList `json:"techs"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
}

func (r *UpdateDevRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		errors["name"] = "Name cannot be empty"
	}
	if r.Techs != nil {
		*r.Techs = NormalizeTechs(*r.Techs...)
	}
	if r.Techs != nil && len(*r.Techs) == 0 {
		errors["techs"] = "At least one tech is required"
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		errors["location"] = "Latitude and longitude must be provided together"
	}
	if r.Latitude != nil && !ValidLatitude(*r.Latitude) {
		errors["latitude"] = "Latitude must be between -90 and 90"
	}
	if r.Longitude != nil && !ValidLongitude(*r.Longitude) {
		errors["longitude"] = "Longitude must be between -180 and 180"
	}

	return errors
}

// Location returns the new point if the request moves the developer.
func (r *UpdateDevRequest) Location() (GeoPoint, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return GeoPoint{}, false
	}
	return NewGeoPoint(*r.Latitude, *r.Longitude), true
}

// GitHubProfile is the subset of the GitHub users API that a registration imports.
type GitHubProfile struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
}

// DisplayName falls back to the login when the profile has no name set.
func (p *GitHubProfile) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.Login
}
