package pricing

import (
	"errors"
	"math"

	"dispatch/internal/domain"
)

var (
	// ErrUnknownTariff is returned for a tariff missing from the rate table.
	ErrUnknownTariff = errors.New("unknown tariff")

	// ErrUnknownVehicleType is returned for a vehicle type missing from the rate table.
	ErrUnknownVehicleType = errors.New("unknown vehicle type")

	// ErrNoStops is returned when an itinerary has no destination stops.
	ErrNoStops = errors.New("itinerary has no stops")
)

// Calculator computes distance, ETA and price for an itinerary. It is
// pure: identical inputs always yield identical results.
type Calculator struct {
	rates RateTable
	zone  Geofence
}

// NewCalculator creates a Calculator with the given rate table and
// city-center geofence.
func NewCalculator(rates RateTable, zone Geofence) *Calculator {
	return &Calculator{rates: rates, zone: zone}
}

// QuoteRequest contains the pricing inputs for one itinerary.
type QuoteRequest struct {
	Pickup domain.Coordinate
	Stops  []domain.Stop
	Kind   domain.ActionKind
	// Tariff selects ride pricing, VehicleType delivery pricing.
	Tariff      domain.Tariff
	VehicleType domain.VehicleType
	PetAllowed  bool
	ChildSeat   bool
}

// Quote is a computed fare estimate.
type Quote struct {
	DistanceKm float64
	ETAMinutes int
	Price      float64
}

// Quote prices an itinerary: distance and ETA over the full stop
// sequence, then Price over the result.
func (c *Calculator) Quote(req QuoteRequest) (Quote, error) {
	if len(req.Stops) == 0 {
		return Quote{}, ErrNoStops
	}

	distanceKm := RouteDistanceKm(req.Pickup, req.Stops)
	etaMinutes := ETAMinutes(distanceKm)

	price, err := c.Price(req, distanceKm, etaMinutes)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		DistanceKm: distanceKm,
		ETAMinutes: etaMinutes,
		Price:      price,
	}, nil
}

// Price computes the fare for a known distance and ETA:
// subtotal = base + km*perKm + min*perMinute, flat pet/child surcharges,
// the city-center multiplier when pickup or final destination falls
// inside the geofence, a clamp to the tier's minimum floor, and rounding
// to the nearest whole currency unit.
func (c *Calculator) Price(req QuoteRequest, distanceKm float64, etaMinutes int) (float64, error) {
	if len(req.Stops) == 0 {
		return 0, ErrNoStops
	}

	rate, err := c.rate(req)
	if err != nil {
		return 0, err
	}

	price := rate.BaseFare + distanceKm*rate.PerKm + float64(etaMinutes)*rate.PerMinute

	if req.PetAllowed {
		price += PetSurcharge
	}
	if req.ChildSeat {
		price += ChildSeatSurcharge
	}

	last := req.Stops[len(req.Stops)-1]
	destination := domain.Coordinate{Lat: last.Lat, Lng: last.Lng}
	if c.zone.Contains(req.Pickup) || c.zone.Contains(destination) {
		price *= CityCenterMultiplier
	}

	if price < rate.MinimumPrice {
		price = rate.MinimumPrice
	}

	return math.Round(price), nil
}

func (c *Calculator) rate(req QuoteRequest) (Rate, error) {
	if req.Kind == domain.ActionKindDelivery {
		rate, ok := c.rates.Vehicles[req.VehicleType]
		if !ok {
			return Rate{}, ErrUnknownVehicleType
		}
		return rate, nil
	}
	rate, ok := c.rates.Tariffs[req.Tariff]
	if !ok {
		return Rate{}, ErrUnknownTariff
	}
	return rate, nil
}
