package domain

import "time"

// ScheduleEntry is one recurring trip template inside a plan. Entries
// are addressed by their position within the plan; the index is stable
// because updates replace the entry list wholesale.
type ScheduleEntry struct {
	PickupAddress      string         `json:"pickup_address"`
	PickupLat          float64        `json:"pickup_lat"`
	PickupLng          float64        `json:"pickup_lng"`
	DestinationAddress string         `json:"destination_address"`
	DestinationLat     float64        `json:"destination_lat"`
	DestinationLng     float64        `json:"destination_lng"`
	Weekdays           []time.Weekday `json:"weekdays"`
	TimeOfDay          string         `json:"time_of_day"` // "HH:MM", local time
	Tariff             Tariff         `json:"tariff"`
	PaymentMethod      PaymentMethod  `json:"payment_method"`
	PetAllowed         bool           `json:"pet_allowed"`
	ChildSeat          bool           `json:"child_seat"`
}

// ScheduledPlan is a named, user-owned template of recurring trips.
type ScheduledPlan struct {
	ID        string
	OwnerID   string
	Name      string
	Entries   []ScheduleEntry
	CreatedAt time.Time
}

// PlanExecution is one row of the materialization idempotency ledger.
// At most one row exists per (plan id, entry index, occurrence date).
type PlanExecution struct {
	PlanID         string
	EntryIndex     int
	OccurrenceDate string // "2006-01-02"
	OrderID        string
	FiredAt        time.Time
}
