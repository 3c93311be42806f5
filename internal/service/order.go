package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/notifier"
	"dispatch/internal/pricing"
	"dispatch/internal/repository"
)

// immediateCutoff separates immediate orders from scheduled ones: a
// requested-for time within this horizon starts searching right away.
const immediateCutoff = 5 * time.Minute

// MatchingServiceInterface defines the matching service contract.
// This interface allows for testing with mock implementations.
type MatchingServiceInterface interface {
	Match(ctx context.Context, req MatchRequest) (*MatchResult, error)
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

// Notifier delivers best-effort events to the parties of an order.
// Failures never surface as an operation's failure.
type Notifier interface {
	NotifyOrder(order *domain.Order, name string, payload map[string]any)
}

// OrderService enforces the order state machine.
type OrderService struct {
	orderRepo  repository.OrderRepository
	driverRepo repository.DriverRepository
	matching   MatchingServiceInterface
	calc       *pricing.Calculator
	events     Notifier
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repository.OrderRepository,
	driverRepo repository.DriverRepository,
	matching MatchingServiceInterface,
	calc *pricing.Calculator,
	events Notifier,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		driverRepo: driverRepo,
		matching:   matching,
		calc:       calc,
		events:     events,
	}
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	// ID is optional; the materializer pre-generates it so the
	// execution ledger can reference the order before it exists.
	ID            string
	RiderID       string
	PickupAddress string
	PickupLat     float64
	PickupLng     float64
	Stops         []domain.Stop
	Kind          domain.ActionKind
	Tariff        domain.Tariff
	VehicleType   domain.VehicleType
	PaymentMethod domain.PaymentMethod
	PetAllowed    bool
	ChildSeat     bool
	RequestedFor  time.Time // zero = immediate
}

// CreateOrderResponse contains the result of creating an order.
type CreateOrderResponse struct {
	Order          *domain.Order
	DriverAssigned bool
}

// CreateOrder prices the itinerary once, persists the order, and if it
// starts searching, attempts dispatch. No driver available is not an
// error: the order simply stays in SEARCHING.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	order, err := s.buildOrder(req)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusSearching {
		return &CreateOrderResponse{Order: order}, nil
	}

	s.notify(order, notifier.EventTaxiFinding, map[string]any{
		"price":       order.Price,
		"eta_minutes": order.ETAMinutes,
	})

	return s.dispatch(ctx, order)
}

// dispatch runs matching for a searching order and emits taxiFound on
// success. The order is already committed when dispatch runs, so a
// matching failure of any kind leaves it in SEARCHING and is not the
// operation's failure: infrastructure errors are logged and the caller
// still gets the created order.
func (s *OrderService) dispatch(ctx context.Context, order *domain.Order) (*CreateOrderResponse, error) {
	result, err := s.matching.Match(ctx, MatchRequest{OrderID: order.ID})
	if err != nil {
		if !errors.Is(err, ErrNoDriverAvailable) {
			log.Printf("[DISPATCH] matching order %s failed: %v", order.ID, err)
		}
		return &CreateOrderResponse{Order: order}, nil
	}

	s.notify(result.Order, notifier.EventTaxiFound, map[string]any{
		"driver_id":          result.DriverID,
		"driver_name":        result.Order.DriverSnapshot.Name,
		"vehicle":            result.Order.DriverSnapshot.Vehicle,
		"plate":              result.Order.DriverSnapshot.Plate,
		"pickup_eta_minutes": result.Order.PickupETAMinutes,
	})

	return &CreateOrderResponse{Order: result.Order, DriverAssigned: true}, nil
}

// AcceptOrder creates an order already assigned to the calling driver
// (driver self-assignment at creation time).
func (s *OrderService) AcceptOrder(ctx context.Context, driverID string, req CreateOrderRequest) (*domain.Order, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.ProfileComplete() {
		return nil, ErrDriverNotEligible
	}

	req.RequestedFor = time.Time{}
	order, err := s.buildOrder(req)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusAssigned
	order.DriverID = driver.ID
	order.DriverSnapshot = driver.Snapshot()

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.notify(order, notifier.EventTaxiFound, map[string]any{
		"driver_id":   driver.ID,
		"driver_name": driver.Name,
		"vehicle":     driver.Vehicle,
		"plate":       driver.Plate,
	})

	return order, nil
}

// CancelOrder cancels an order on behalf of its rider or assigned
// driver and notifies both parties.
func (s *OrderService) CancelOrder(ctx context.Context, actorID, orderID, reason string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	byRider := actorID == order.RiderID
	byDriver := order.DriverID != "" && actorID == order.DriverID
	if !byRider && !byDriver {
		return nil, ErrNotOrderParty
	}

	if !domain.CanTransition(order.Status, domain.OrderStatusCancelled) {
		return nil, invalidStateErr(order.Status)
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = time.Now()
	order.CancelReason = reason

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	event := notifier.EventCancelUser
	if byDriver {
		event = notifier.EventCancelDriver
	}
	s.notify(order, event, map[string]any{
		"cancelled_by": actorID,
		"reason":       reason,
	})

	return order, nil
}

// StartTrip moves an assigned order to ON_TRIP. Driver action.
func (s *OrderService) StartTrip(ctx context.Context, driverID, orderID string) (*domain.Order, error) {
	order, err := s.driverTransition(ctx, driverID, orderID, domain.OrderStatusOnTrip, nil)
	if err != nil {
		return nil, err
	}

	s.notify(order, notifier.EventStart, nil)
	return order, nil
}

// CompleteTrip moves an on-trip order to COMPLETED and stamps the
// completion time. Driver action.
func (s *OrderService) CompleteTrip(ctx context.Context, driverID, orderID string) (*domain.Order, error) {
	order, err := s.driverTransition(ctx, driverID, orderID, domain.OrderStatusCompleted, func(o *domain.Order) {
		o.CompletedAt = time.Now()
	})
	if err != nil {
		return nil, err
	}

	s.notify(order, notifier.EventComplete, map[string]any{
		"price": order.Price,
	})
	return order, nil
}

// DriverArrived announces pickup arrival on an assigned order. Event
// only, no state change.
func (s *OrderService) DriverArrived(ctx context.Context, driverID, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if order.Status != domain.OrderStatusAssigned {
		return nil, invalidStateErr(order.Status)
	}

	s.notify(order, notifier.EventArrive, nil)
	return order, nil
}

// driverTransition applies a status change restricted to the order's
// assigned driver. Permission is checked before state, so a stranger
// gets a permission error even on a terminal order.
func (s *OrderService) driverTransition(ctx context.Context, driverID, orderID string, to domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}

	if !domain.CanTransition(order.Status, to) {
		return nil, invalidStateErr(order.Status)
	}

	order.Status = to
	if mutate != nil {
		mutate(order)
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// RateOrder attaches a rating and optional review to a completed order.
// Rider action, completed orders only.
func (s *OrderService) RateOrder(ctx context.Context, riderID, orderID string, rating int, review string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.RiderID != riderID {
		return nil, ErrNotOrderRider
	}

	if order.Status != domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotCompleted, order.Status)
	}

	order.Rating = &rating
	order.Review = review

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ActivateScheduled moves a due SCHEDULED order into SEARCHING and
// attempts dispatch. Used by the materializer tick.
func (s *OrderService) ActivateScheduled(ctx context.Context, orderID string) (*CreateOrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, domain.OrderStatusSearching) {
		return nil, invalidStateErr(order.Status)
	}

	order.Status = domain.OrderStatusSearching
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.notify(order, notifier.EventTaxiFinding, map[string]any{
		"price":       order.Price,
		"eta_minutes": order.ETAMinutes,
	})

	return s.dispatch(ctx, order)
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	return s.orderRepo.GetByID(ctx, orderID)
}

// Estimate prices an itinerary without persisting anything.
func (s *OrderService) Estimate(req CreateOrderRequest) (pricing.Quote, error) {
	if err := validateItinerary(req); err != nil {
		return pricing.Quote{}, err
	}
	return s.calc.Quote(quoteRequest(req))
}

// ListTrips retrieves an actor's trip history, optionally filtered by status.
func (s *OrderService) ListTrips(ctx context.Context, actorID string, asDriver bool, status domain.OrderStatus) ([]*domain.Order, error) {
	if actorID == "" {
		return nil, ErrInvalidRiderID
	}
	if asDriver {
		return s.orderRepo.ListByDriver(ctx, actorID, status)
	}
	return s.orderRepo.ListByRider(ctx, actorID, status)
}

// ListReviews retrieves reviews from completed, rated orders.
func (s *OrderService) ListReviews(ctx context.Context, driverID string, minRating int) ([]*domain.ReviewEntry, error) {
	return s.orderRepo.ListReviews(ctx, driverID, minRating)
}

// buildOrder validates the request, prices it, and assembles the order
// with all computed attributes set together.
func (s *OrderService) buildOrder(req CreateOrderRequest) (*domain.Order, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if err := validateItinerary(req); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}

	quote, err := s.calc.Quote(quoteRequest(req))
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	status := domain.OrderStatusSearching
	if !req.RequestedFor.IsZero() && req.RequestedFor.After(time.Now().Add(immediateCutoff)) {
		status = domain.OrderStatusScheduled
	}

	last := req.Stops[len(req.Stops)-1]

	kind := req.Kind
	if kind == "" {
		kind = domain.ActionKindRide
	}

	return &domain.Order{
		ID:                 id,
		RiderID:            req.RiderID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		Stops:              req.Stops,
		DestinationAddress: last.Address,
		DestinationLat:     last.Lat,
		DestinationLng:     last.Lng,
		Kind:               kind,
		Tariff:             req.Tariff,
		VehicleType:        req.VehicleType,
		PaymentMethod:      req.PaymentMethod,
		PetAllowed:         req.PetAllowed,
		ChildSeat:          req.ChildSeat,
		DistanceKm:         quote.DistanceKm,
		ETAMinutes:         quote.ETAMinutes,
		Price:              quote.Price,
		Status:             status,
		RequestedFor:       req.RequestedFor,
		CreatedAt:          time.Now(),
	}, nil
}

// notify is best-effort: a nil notifier or failed delivery never fails
// the operation.
func (s *OrderService) notify(order *domain.Order, event string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.NotifyOrder(order, event, payload)
}

func validateItinerary(req CreateOrderRequest) error {
	if len(req.Stops) == 0 {
		return ErrMissingStops
	}
	if !isValidLatitude(req.PickupLat) || !isValidLongitude(req.PickupLng) {
		return ErrInvalidCoordinate
	}
	for _, stop := range req.Stops {
		if !isValidLatitude(stop.Lat) || !isValidLongitude(stop.Lng) {
			return ErrInvalidCoordinate
		}
	}
	return nil
}

func validatePaymentMethod(method domain.PaymentMethod) error {
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodWallet:
		return nil
	default:
		return ErrInvalidPaymentMethod
	}
}

func quoteRequest(req CreateOrderRequest) pricing.QuoteRequest {
	kind := req.Kind
	if kind == "" {
		kind = domain.ActionKindRide
	}
	return pricing.QuoteRequest{
		Pickup:      domain.Coordinate{Lat: req.PickupLat, Lng: req.PickupLng},
		Stops:       req.Stops,
		Kind:        kind,
		Tariff:      req.Tariff,
		VehicleType: req.VehicleType,
		PetAllowed:  req.PetAllowed,
		ChildSeat:   req.ChildSeat,
	}
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// invalidStateErr wraps ErrInvalidOrderState with the order's current
// status so the caller sees what the order actually is.
func invalidStateErr(status domain.OrderStatus) error {
	return fmt.Errorf("%w: order is %s", ErrInvalidOrderState, status)
}
