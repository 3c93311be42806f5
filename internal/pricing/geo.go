package pricing

import (
	"math"

	"dispatch/internal/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates
// in kilometers using the haversine formula.
func DistanceKm(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dlat := (b.Lat - a.Lat) * math.Pi / 180.0
	dlng := (b.Lng - a.Lng) * math.Pi / 180.0

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// RouteDistanceKm returns the total itinerary distance: the sum of
// consecutive leg distances from pickup through every stop in order,
// not the direct pickup-to-final-stop distance.
func RouteDistanceKm(pickup domain.Coordinate, stops []domain.Stop) float64 {
	total := 0.0
	prev := pickup
	for _, s := range stops {
		next := domain.Coordinate{Lat: s.Lat, Lng: s.Lng}
		total += DistanceKm(prev, next)
		prev = next
	}
	return total
}

// ETAMinutes estimates travel time for a distance assuming an average
// speed of 30 km/h (0.5 km per minute).
func ETAMinutes(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm / 0.5))
}

// Geofence is a rectangular lat/lng region. Orders touching it pay a
// city-center multiplier.
type Geofence struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether the coordinate falls inside the rectangle.
func (g Geofence) Contains(c domain.Coordinate) bool {
	return c.Lat >= g.MinLat && c.Lat <= g.MaxLat &&
		c.Lng >= g.MinLng && c.Lng <= g.MaxLng
}
