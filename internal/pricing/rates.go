package pricing

import "dispatch/internal/domain"

// Rate holds the fare parameters for one tariff tier or vehicle type.
type Rate struct {
	BaseFare     float64
	PerKm        float64
	PerMinute    float64
	MinimumPrice float64
}

// RateTable maps pricing selectors to their rates. Ride orders price by
// tariff tier, delivery orders by vehicle type; the two are mutually
// exclusive.
type RateTable struct {
	Tariffs  map[domain.Tariff]Rate
	Vehicles map[domain.VehicleType]Rate
}

// Flat surcharges and the city-center multiplier, in whole currency units.
const (
	PetSurcharge         = 100.0
	ChildSeatSurcharge   = 50.0
	CityCenterMultiplier = 1.10
)

// DefaultRateTable returns the standard rate table. Ride tiers share the
// car base fare of 400 plus a fixed tier surcharge; each tier sets its
// own minimum price floor.
func DefaultRateTable() RateTable {
	const (
		rideBase  = 400.0
		ridePerKm = 60.0
		ridePerMn = 20.0
	)
	return RateTable{
		Tariffs: map[domain.Tariff]Rate{
			domain.TariffEconomy:  {BaseFare: rideBase, PerKm: ridePerKm, PerMinute: ridePerMn, MinimumPrice: 600},
			domain.TariffComfort:  {BaseFare: rideBase + 300, PerKm: ridePerKm, PerMinute: ridePerMn, MinimumPrice: 1000},
			domain.TariffBusiness: {BaseFare: rideBase + 600, PerKm: ridePerKm, PerMinute: ridePerMn, MinimumPrice: 1400},
			domain.TariffPremium:  {BaseFare: rideBase + 1000, PerKm: ridePerKm, PerMinute: ridePerMn, MinimumPrice: 2000},
		},
		Vehicles: map[domain.VehicleType]Rate{
			domain.VehicleTypeMoto: {BaseFare: 250, PerKm: 40, PerMinute: 15, MinimumPrice: 500},
			domain.VehicleTypeCar:  {BaseFare: 400, PerKm: 60, PerMinute: 20, MinimumPrice: 800},
			domain.VehicleTypeVan:  {BaseFare: 700, PerKm: 90, PerMinute: 30, MinimumPrice: 1200},
		},
	}
}
