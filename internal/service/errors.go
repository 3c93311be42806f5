package service

import "errors"

// Validation errors: rejected before any state change.
var (
	// ErrInvalidRiderID is returned when the rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidOrderID is returned when the order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidPlanID is returned when the plan ID is empty.
	ErrInvalidPlanID = errors.New("invalid plan id")

	// ErrMissingStops is returned when an itinerary has no destination stops.
	ErrMissingStops = errors.New("itinerary requires at least one stop")

	// ErrInvalidCoordinate is returned when a lat/lng pair is out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidPlanName is returned when a plan has no display name.
	ErrInvalidPlanName = errors.New("plan name is required")

	// ErrPlanHasNoEntries is returned when a plan carries no entries.
	ErrPlanHasNoEntries = errors.New("plan requires at least one entry")

	// ErrInvalidWeekday is returned when an entry has no valid weekdays.
	ErrInvalidWeekday = errors.New("entry requires valid weekdays")

	// ErrInvalidTimeOfDay is returned when an entry's time is not HH:MM.
	ErrInvalidTimeOfDay = errors.New("entry time must be HH:MM")
)

// Permission errors: the actor is not a party allowed to act. Kept
// distinct from state errors so callers can tell "you may not" from
// "not right now".
var (
	// ErrNotOrderParty is returned when the actor is neither the rider
	// nor the assigned driver.
	ErrNotOrderParty = errors.New("actor is not a party to this order")

	// ErrNotOrderRider is returned when a rider-only action is attempted
	// by someone else.
	ErrNotOrderRider = errors.New("actor is not the order's rider")

	// ErrNotAssignedDriver is returned when a driver-side action is
	// attempted by anyone but the assigned driver.
	ErrNotAssignedDriver = errors.New("actor is not the assigned driver")

	// ErrNotPlanOwner is returned when a plan mutation is attempted by a
	// non-owner.
	ErrNotPlanOwner = errors.New("actor does not own this plan")
)

// State errors.
var (
	// ErrInvalidOrderState is returned for a transition the state machine
	// forbids. Callers wrap it with the current state.
	ErrInvalidOrderState = errors.New("invalid order state transition")

	// ErrOrderNotCompleted is returned when rating an order that has not
	// completed.
	ErrOrderNotCompleted = errors.New("order is not completed")
)

// Matching errors.
var (
	// ErrNoDriverAvailable is returned when no eligible driver can be matched.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrOrderNotSearching is returned when trying to match an order that
	// is not in SEARCHING state.
	ErrOrderNotSearching = errors.New("order not in searching state")

	// ErrDriverNotEligible is returned when a driver self-assigns without
	// a complete profile.
	ErrDriverNotEligible = errors.New("driver is not eligible")
)
