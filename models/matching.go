package models

import "time"

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// Instant request statuses.
const (
	InstantRequestOpen    = "open"
	InstantRequestMatched = "matched"
	InstantRequestFailed  = "failed"
)

// InstantRequest is a guest's on-the-spot photo request: find an available
// photographer near a location and pair them automatically.
type InstantRequest struct {
	ID             string    `bson:"id" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	LocationGeo    GeoPoint  `bson:"location_geo" json:"location_geo"`
	RadiusKm       float64   `bson:"radius_km" json:"radius_km"`
	Status         string    `bson:"status" json:"status"`
	PhotographerID string    `bson:"photographer_id,omitempty" json:"photographer_id,omitempty"`
	Message        string    `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// PhotographerDTO is the public projection of a photographer returned by
// matching, without auth or contact internals.
type PhotographerDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Rating          float64  `json:"rating"`
	CompletedShoots int      `json:"completed_shoots"`
	Verified        bool     `json:"verified"`
	DistanceKm      float64  `json:"distance_km"`
	LocationGeo     GeoPoint `json:"location_geo"`
}
