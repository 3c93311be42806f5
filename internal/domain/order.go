package domain

import "time"

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusScheduled OrderStatus = "SCHEDULED"
	OrderStatusSearching OrderStatus = "SEARCHING"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusOnTrip    OrderStatus = "ON_TRIP"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// AllowedTransitions represents the order state flow as code.
// COMPLETED and CANCELLED are terminal and have no outgoing edges.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusScheduled: {OrderStatusSearching, OrderStatusCancelled},
	OrderStatusSearching: {OrderStatusAssigned, OrderStatusCancelled},
	OrderStatusAssigned:  {OrderStatusOnTrip, OrderStatusCancelled},
	OrderStatusOnTrip:    {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ActionKind distinguishes ride-hailing orders from delivery orders.
type ActionKind string

const (
	ActionKindRide     ActionKind = "RIDE"
	ActionKindDelivery ActionKind = "DELIVERY"
)

// Tariff is a pricing tier for ride orders.
type Tariff string

const (
	TariffEconomy  Tariff = "ECONOMY"
	TariffComfort  Tariff = "COMFORT"
	TariffBusiness Tariff = "BUSINESS"
	TariffPremium  Tariff = "PREMIUM"
)

// VehicleType is a pricing selector for delivery orders.
type VehicleType string

const (
	VehicleTypeMoto VehicleType = "MOTO"
	VehicleTypeCar  VehicleType = "CAR"
	VehicleTypeVan  VehicleType = "VAN"
)

// PaymentMethod represents the payment method for an order.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// Coordinate is a WGS-84 lat/lng pair.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Stop is one destination in an order's itinerary.
type Stop struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// DriverSnapshot is the driver's profile copied onto an order at
// assignment time. It is frozen there: later profile edits do not
// change who drove a historical trip.
type DriverSnapshot struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Vehicle string `json:"vehicle"`
	Plate   string `json:"plate"`
}

// Order represents a single trip request and its execution.
type Order struct {
	ID      string
	RiderID string

	// DriverID is empty until the order is assigned.
	DriverID       string
	DriverSnapshot DriverSnapshot

	PickupAddress string
	PickupLat     float64
	PickupLng     float64
	// Stops is the ordered itinerary (one or more). The final stop is
	// mirrored into the Destination fields for display.
	Stops              []Stop
	DestinationAddress string
	DestinationLat     float64
	DestinationLng     float64

	Kind          ActionKind
	Tariff        Tariff
	VehicleType   VehicleType
	PaymentMethod PaymentMethod
	PetAllowed    bool
	ChildSeat     bool

	// Computed once at creation, never silently recomputed.
	DistanceKm float64
	ETAMinutes int
	Price      float64

	// PickupETAMinutes is set at assignment time.
	PickupETAMinutes int

	Status       OrderStatus
	RequestedFor time.Time // zero = immediate
	CreatedAt    time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	CancelReason string

	Rating *int
	Review string
}

// Terminal reports whether the order is in a terminal status.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// ReviewEntry is a rider review projected from a completed, rated order.
type ReviewEntry struct {
	OrderID     string
	RiderID     string
	DriverID    string
	Rating      int
	Review      string
	CompletedAt time.Time
}
