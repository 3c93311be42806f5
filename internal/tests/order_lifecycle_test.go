package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/notifier"
	"dispatch/internal/pricing"
	"dispatch/internal/service"
)

var testZone = pricing.Geofence{MinLat: 41.28, MaxLat: 41.34, MinLng: 69.22, MaxLng: 69.30}

func newOrderService(orderRepo *MockOrderRepository, driverRepo *MockDriverRepository, matching service.MatchingServiceInterface, events *RecordingNotifier) *service.OrderService {
	calc := pricing.NewCalculator(pricing.DefaultRateTable(), testZone)
	return service.NewOrderService(orderRepo, driverRepo, matching, calc, events)
}

func baseRequest() service.CreateOrderRequest {
	return service.CreateOrderRequest{
		RiderID:       "rider-1",
		PickupAddress: "Amir Temur 1",
		PickupLat:     41.00,
		PickupLng:     69.00,
		Stops:         []domain.Stop{{Address: "Bunyodkor 7", Lat: 41.05, Lng: 69.05}},
		Tariff:        domain.TariffEconomy,
		PaymentMethod: domain.PaymentMethodCash,
	}
}

func completeDriver(id string) *domain.Driver {
	return &domain.Driver{ID: id, Name: "Aziz", Phone: "+99890", Vehicle: "Cobalt", Plate: "01A123BB"}
}

func TestCreateOrder_ImmediateStartsSearching(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	driverRepo := NewMockDriverRepository()
	events := NewRecordingNotifier()
	matching := NewMockMatching(orderRepo)
	matching.MatchError = service.ErrNoDriverAvailable

	svc := newOrderService(orderRepo, driverRepo, matching, events)

	resp, err := svc.CreateOrder(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.DriverAssigned {
		t.Error("expected no driver assigned")
	}
	if resp.Order.Status != domain.OrderStatusSearching {
		t.Errorf("expected SEARCHING, got %s", resp.Order.Status)
	}
	if resp.Order.Price <= 0 || resp.Order.DistanceKm <= 0 {
		t.Errorf("expected computed price and distance, got price=%f distance=%f", resp.Order.Price, resp.Order.DistanceKm)
	}

	names := events.Names()
	if len(names) != 1 || names[0] != notifier.EventTaxiFinding {
		t.Errorf("expected single taxiFinding event, got %v", names)
	}
}

func TestCreateOrder_MatchedOrderEmitsTaxiFound(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	driverRepo := NewMockDriverRepository()
	events := NewRecordingNotifier()
	matching := NewMockMatching(orderRepo)
	matching.Assign = func(order *domain.Order) {
		order.DriverID = "driver-1"
		order.DriverSnapshot = completeDriver("driver-1").Snapshot()
		order.PickupETAMinutes = 5
	}

	svc := newOrderService(orderRepo, driverRepo, matching, events)

	resp, err := svc.CreateOrder(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.DriverAssigned {
		t.Fatal("expected a driver to be assigned")
	}
	if resp.Order.Status != domain.OrderStatusAssigned {
		t.Errorf("expected ASSIGNED, got %s", resp.Order.Status)
	}
	if resp.Order.DriverSnapshot.Name == "" {
		t.Error("expected driver snapshot on the order")
	}

	names := events.Names()
	if len(names) != 2 || names[0] != notifier.EventTaxiFinding || names[1] != notifier.EventTaxiFound {
		t.Errorf("expected taxiFinding then taxiFound, got %v", names)
	}
}

func TestCreateOrder_MatchingInfrastructureFailureKeepsOrder(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	driverRepo := NewMockDriverRepository()
	events := NewRecordingNotifier()
	matching := NewMockMatching(orderRepo)
	matching.MatchError = errors.New("redis connection refused")

	svc := newOrderService(orderRepo, driverRepo, matching, events)

	// The order commits before matching runs, so a broken claim store
	// must not turn a created order into a caller-visible failure.
	resp, err := svc.CreateOrder(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil || resp.Order == nil {
		t.Fatal("expected the created order back")
	}
	if resp.DriverAssigned {
		t.Error("expected no driver assigned")
	}
	if resp.Order.Status != domain.OrderStatusSearching {
		t.Errorf("expected SEARCHING, got %s", resp.Order.Status)
	}

	stored, err := orderRepo.GetByID(context.Background(), resp.Order.ID)
	if err != nil {
		t.Fatalf("expected the order persisted: %v", err)
	}
	if stored.Status != domain.OrderStatusSearching {
		t.Errorf("expected persisted order SEARCHING, got %s", stored.Status)
	}
}

func TestCreateOrder_FutureRequestIsScheduled(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	matching := NewMockMatching(orderRepo)

	svc := newOrderService(orderRepo, NewMockDriverRepository(), matching, events)

	req := baseRequest()
	req.RequestedFor = time.Now().Add(2 * time.Hour)

	resp, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Order.Status != domain.OrderStatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", resp.Order.Status)
	}
	if got := matching.MatchCallCount; got != 0 {
		t.Errorf("expected no matching attempt for a scheduled order, got %d", got)
	}
	if len(events.Names()) != 0 {
		t.Errorf("expected no events for a scheduled order, got %v", events.Names())
	}
	// The fare is still computed at creation time.
	if resp.Order.Price <= 0 {
		t.Errorf("expected scheduled order to carry its price, got %f", resp.Order.Price)
	}
}

func TestCreateOrder_NearFutureRequestStartsImmediately(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	matching := NewMockMatching(orderRepo)
	matching.MatchError = service.ErrNoDriverAvailable

	svc := newOrderService(orderRepo, NewMockDriverRepository(), matching, NewRecordingNotifier())

	req := baseRequest()
	// Inside the cutoff: treated as an immediate order.
	req.RequestedFor = time.Now().Add(2 * time.Minute)

	resp, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Order.Status != domain.OrderStatusSearching {
		t.Errorf("expected SEARCHING, got %s", resp.Order.Status)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	tests := []struct {
		name    string
		mutate  func(*service.CreateOrderRequest)
		wantErr error
	}{
		{"missing rider", func(r *service.CreateOrderRequest) { r.RiderID = "" }, service.ErrInvalidRiderID},
		{"no stops", func(r *service.CreateOrderRequest) { r.Stops = nil }, service.ErrMissingStops},
		{"bad pickup latitude", func(r *service.CreateOrderRequest) { r.PickupLat = 91 }, service.ErrInvalidCoordinate},
		{"bad stop longitude", func(r *service.CreateOrderRequest) { r.Stops[0].Lng = 200 }, service.ErrInvalidCoordinate},
		{"bad payment method", func(r *service.CreateOrderRequest) { r.PaymentMethod = "CRYPTO" }, service.ErrInvalidPaymentMethod},
		{"unknown tariff", func(r *service.CreateOrderRequest) { r.Tariff = "LUXURY" }, pricing.ErrUnknownTariff},
	}

	// Runs after the parallel subtests finish.
	t.Cleanup(func() {
		if got := orderRepo.CreateCallCount; got != 0 {
			t.Errorf("expected no orders persisted on validation failure, got %d", got)
		}
	})

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := baseRequest()
			tt.mutate(&req)
			if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCancelOrder_ByRider(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), events)

	orderRepo.AddOrder(&domain.Order{
		ID:      "order-1",
		RiderID: "rider-1",
		Status:  domain.OrderStatusSearching,
	})

	order, err := svc.CancelOrder(context.Background(), "rider-1", "order-1", "changed my mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", order.Status)
	}
	if order.CancelledAt.IsZero() {
		t.Error("expected cancellation timestamp")
	}
	if order.CancelReason != "changed my mind" {
		t.Errorf("unexpected reason: %s", order.CancelReason)
	}

	names := events.Names()
	if len(names) != 1 || names[0] != notifier.EventCancelUser {
		t.Errorf("expected cancelUser event, got %v", names)
	}
}

func TestCancelOrder_ByAssignedDriverEmitsCancelDriver(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), events)

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusAssigned,
	})

	if _, err := svc.CancelOrder(context.Background(), "driver-1", "order-1", "car trouble"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := events.Names()
	if len(names) != 1 || names[0] != notifier.EventCancelDriver {
		t.Errorf("expected cancelDriver event, got %v", names)
	}
}

func TestCancelOrder_StrangerForbidden(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	orderRepo.AddOrder(&domain.Order{
		ID:      "order-1",
		RiderID: "rider-1",
		Status:  domain.OrderStatusSearching,
	})

	_, err := svc.CancelOrder(context.Background(), "someone-else", "order-1", "")
	if !errors.Is(err, service.ErrNotOrderParty) {
		t.Errorf("expected ErrNotOrderParty, got %v", err)
	}

	// Permission failure must not mutate the order.
	if got := orderRepo.GetOrder("order-1").Status; got != domain.OrderStatusSearching {
		t.Errorf("order mutated on rejected cancel: %s", got)
	}
}

func TestCancelOrder_TerminalStatesRejected(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusCancelled} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			orderRepo := NewMockOrderRepository()
			svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

			orderRepo.AddOrder(&domain.Order{ID: "order-1", RiderID: "rider-1", Status: status})

			_, err := svc.CancelOrder(context.Background(), "rider-1", "order-1", "")
			if !errors.Is(err, service.ErrInvalidOrderState) {
				t.Errorf("expected ErrInvalidOrderState, got %v", err)
			}
		})
	}
}

func TestStartAndCompleteTrip(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), events)

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusAssigned,
		Price:    1700,
	})

	order, err := svc.StartTrip(context.Background(), "driver-1", "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusOnTrip {
		t.Errorf("expected ON_TRIP, got %s", order.Status)
	}

	order, err = svc.CompleteTrip(context.Background(), "driver-1", "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", order.Status)
	}
	if order.CompletedAt.IsZero() {
		t.Error("expected completion timestamp")
	}

	names := events.Names()
	if len(names) != 2 || names[0] != notifier.EventStart || names[1] != notifier.EventComplete {
		t.Errorf("expected start then complete events, got %v", names)
	}
}

func TestStartTrip_WrongDriverForbidden(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusAssigned,
	})

	_, err := svc.StartTrip(context.Background(), "driver-2", "order-1")
	if !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestStartTrip_IllegalFromSearching(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusSearching,
	})

	_, err := svc.StartTrip(context.Background(), "driver-1", "order-1")
	if !errors.Is(err, service.ErrInvalidOrderState) {
		t.Errorf("expected ErrInvalidOrderState, got %v", err)
	}
}

func TestDriverArrived_EmitsEventWithoutStateChange(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), events)

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusAssigned,
	})

	if _, err := svc.DriverArrived(context.Background(), "driver-1", "order-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := orderRepo.GetOrder("order-1").Status; got != domain.OrderStatusAssigned {
		t.Errorf("arrive must not change state, got %s", got)
	}
	names := events.Names()
	if len(names) != 1 || names[0] != notifier.EventArrive {
		t.Errorf("expected arrive event, got %v", names)
	}
}

func TestRateOrder(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusCompleted,
	})

	order, err := svc.RateOrder(context.Background(), "rider-1", "order-1", 5, "smooth ride")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Rating == nil || *order.Rating != 5 {
		t.Errorf("expected rating 5, got %v", order.Rating)
	}
	if order.Review != "smooth ride" {
		t.Errorf("unexpected review: %s", order.Review)
	}
}

func TestRateOrder_Rules(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo, NewMockDriverRepository(), NewMockMatching(orderRepo), NewRecordingNotifier())

	orderRepo.AddOrder(&domain.Order{
		ID:       "completed",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusCompleted,
	})
	orderRepo.AddOrder(&domain.Order{
		ID:      "on-trip",
		RiderID: "rider-1",
		Status:  domain.OrderStatusOnTrip,
	})

	if _, err := svc.RateOrder(context.Background(), "rider-1", "completed", 0, ""); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating for 0, got %v", err)
	}
	if _, err := svc.RateOrder(context.Background(), "rider-1", "completed", 6, ""); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating for 6, got %v", err)
	}
	if _, err := svc.RateOrder(context.Background(), "driver-1", "completed", 4, ""); !errors.Is(err, service.ErrNotOrderRider) {
		t.Errorf("expected ErrNotOrderRider, got %v", err)
	}
	if _, err := svc.RateOrder(context.Background(), "rider-1", "on-trip", 4, ""); !errors.Is(err, service.ErrOrderNotCompleted) {
		t.Errorf("expected ErrOrderNotCompleted, got %v", err)
	}
}

func TestAcceptOrder_DriverSelfAssignment(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	driverRepo := NewMockDriverRepository()
	events := NewRecordingNotifier()
	svc := newOrderService(orderRepo, driverRepo, NewMockMatching(orderRepo), events)

	driverRepo.AddDriver(completeDriver("driver-1"))

	order, err := svc.AcceptOrder(context.Background(), "driver-1", baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusAssigned {
		t.Errorf("expected ASSIGNED, got %s", order.Status)
	}
	if order.DriverID != "driver-1" || order.DriverSnapshot.Name != "Aziz" {
		t.Errorf("expected driver snapshot, got %+v", order.DriverSnapshot)
	}

	names := events.Names()
	if len(names) != 1 || names[0] != notifier.EventTaxiFound {
		t.Errorf("expected taxiFound event, got %v", names)
	}
}

func TestAcceptOrder_IncompleteProfileRejected(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	driverRepo := NewMockDriverRepository()
	svc := newOrderService(orderRepo, driverRepo, NewMockMatching(orderRepo), NewRecordingNotifier())

	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Name: "Aziz"})

	_, err := svc.AcceptOrder(context.Background(), "driver-1", baseRequest())
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible, got %v", err)
	}
}
