// Package user provides the User domain entity.
package user

import (
	"fmt"
	"math"

	"github.com/osa030/tunemap/internal/domain/track"
)

// earthRadiusKm is the mean Earth radius used for distance estimates.
const earthRadiusKm = 6371.0

// Location is a geographic coordinate.
type Location struct {
	Latitude  float64
	Longitude float64
	Fallback  bool // true when the default coordinate was used
}

// String returns "lat,lon" with five decimals.
func (l Location) String() string {
	return fmt.Sprintf("%.5f,%.5f", l.Latitude, l.Longitude)
}

// DistanceKm returns the great-circle distance to other in kilometres.
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// User represents a service member and the tracks they published.
type User struct {
	ID       string
	Username string
	Location *Location // nil when the user never shared a position
	Tracks   []track.Track
}

// HasLocation reports whether the user shared a position.
func (u *User) HasLocation() bool {
	return u.Location != nil
}

// PlayableTracks returns the published tracks that have a resource locator.
func (u *User) PlayableTracks() []track.Track {
	result := make([]track.Track, 0, len(u.Tracks))
	for _, t := range u.Tracks {
		if t.Playable() {
			result = append(result, t)
		}
	}
	return result
}
