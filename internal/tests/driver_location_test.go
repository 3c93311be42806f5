package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/notifier"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

func newDriverService(driverRepo *MockDriverRepository, userRepo *MockUserRepository, orderRepo *MockOrderRepository, locationStore *MockLocationStore, events *RecordingNotifier) *service.DriverService {
	return service.NewDriverService(driverRepo, userRepo, orderRepo, locationStore, nil, events)
}

func TestReportLocation_StoresPosition(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), locationStore, NewRecordingNotifier())

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.30, 69.25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := locationStore.GetLocation(context.Background(), "driver-1")
	if err != nil || loc == nil {
		t.Fatalf("expected stored location, got loc=%v err=%v", loc, err)
	}
	if loc.Lat != 41.30 || loc.Lng != 69.25 {
		t.Errorf("unexpected position: %+v", loc)
	}
}

func TestReportLocation_ForwardsCarLocationWhileAssigned(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), orderRepo, NewMockLocationStore(), events)

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusAssigned,
	})

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.30, 69.25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := events.Events()
	if len(sent) != 1 || sent[0].Name != notifier.EventCarLocation {
		t.Fatalf("expected carLocation event, got %+v", sent)
	}
	if sent[0].Payload["lat"] != 41.30 || sent[0].Payload["lng"] != 69.25 {
		t.Errorf("unexpected payload: %+v", sent[0].Payload)
	}
}

func TestReportLocation_ForwardsDriverLocationOnTrip(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), orderRepo, NewMockLocationStore(), events)

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.OrderStatusOnTrip,
	})

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.31, 69.26); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := events.Events()
	if len(sent) != 1 || sent[0].Name != notifier.EventDriverLocation {
		t.Fatalf("expected driverLocation event, got %+v", sent)
	}
}

func TestReportLocation_NoActiveOrderNoEvent(t *testing.T) {
	t.Parallel()

	events := NewRecordingNotifier()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), NewMockLocationStore(), events)

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.30, 69.25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.Events()) != 0 {
		t.Errorf("expected no events, got %+v", events.Events())
	}
}

func TestReportLocation_RejectsBadCoordinates(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), locationStore, NewRecordingNotifier())

	if err := svc.ReportLocation(context.Background(), "driver-1", 120, 69.25); !errors.Is(err, service.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
	if got := locationStore.UpdateCallCount; got != 0 {
		t.Errorf("expected no position stored, got %d updates", got)
	}
}

func TestRegisterDriver_SetsDriverFlag(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	userRepo := NewMockUserRepository()
	svc := newDriverService(driverRepo, userRepo, NewMockOrderRepository(), NewMockLocationStore(), NewRecordingNotifier())

	userRepo.AddUser(&domain.User{ID: "user-1", Name: "Aziz", Phone: "+99890"})

	driver, err := svc.RegisterDriver(context.Background(), service.RegisterDriverRequest{
		UserID:  "user-1",
		Name:    "Aziz",
		Phone:   "+99890",
		Vehicle: "Cobalt",
		Plate:   "01A123BB",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver.ID != "user-1" {
		t.Errorf("expected driver id to match user id, got %s", driver.ID)
	}

	user, err := userRepo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.IsDriver {
		t.Error("expected user flagged as driver")
	}
}

func TestRegisterDriver_IncompleteProfileRejected(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	svc := newDriverService(NewMockDriverRepository(), userRepo, NewMockOrderRepository(), NewMockLocationStore(), NewRecordingNotifier())

	userRepo.AddUser(&domain.User{ID: "user-1", Name: "Aziz", Phone: "+99890"})

	_, err := svc.RegisterDriver(context.Background(), service.RegisterDriverRequest{
		UserID: "user-1",
		Name:   "Aziz",
	})
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible, got %v", err)
	}
}

func TestDriverLocation_ReturnsLastReportedPosition(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), locationStore, NewRecordingNotifier())

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.31, 69.24); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := svc.DriverLocation(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.DriverID != "driver-1" || loc.Lat != 41.31 || loc.Lng != 69.24 {
		t.Errorf("unexpected position: %+v", loc)
	}
}

func TestDriverLocation_NotFoundWhenNeverReported(t *testing.T) {
	t.Parallel()

	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), NewMockLocationStore(), NewRecordingNotifier())

	_, err := svc.DriverLocation(context.Background(), "driver-unknown")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClearLocation_RemovesPosition(t *testing.T) {
	t.Parallel()

	locationStore := NewMockLocationStore()
	svc := newDriverService(NewMockDriverRepository(), NewMockUserRepository(), NewMockOrderRepository(), locationStore, NewRecordingNotifier())

	if err := svc.ReportLocation(context.Background(), "driver-1", 41.31, 69.24); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.ClearLocation(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.DriverLocation(context.Background(), "driver-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clearing, got %v", err)
	}
}
