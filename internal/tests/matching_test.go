package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// newMatcher wires a MatchingService against mocks. The db and cache
// are nil: claiming never touches them, only assignment does.
func newMatcher(driverRepo *MockDriverRepository, orderRepo *MockOrderRepository, lockStore *MockLockStore) *service.MatchingService {
	return service.NewMatchingService(nil, driverRepo, orderRepo, lockStore, nil, 5)
}

func claimDriver(ctx context.Context, t *testing.T, matcher *service.MatchingService) *domain.Driver {
	t.Helper()

	driver, err := matcher.ClaimDriver(ctx)
	if err != nil {
		t.Fatalf("claiming driver: %v", err)
	}
	return driver
}

func TestMatching_SkipsIncompleteProfiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	// Missing plate: not eligible.
	driverRepo.AddDriver(&domain.Driver{ID: "driver-incomplete", Name: "A", Phone: "+1", Vehicle: "Car"})
	driverRepo.AddDriver(completeDriver("driver-complete"))

	matched := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore))
	if matched == nil || matched.ID != "driver-complete" {
		t.Fatalf("expected driver-complete, got %+v", matched)
	}
}

func TestMatching_FirstEligibleWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	driverRepo.AddDriver(completeDriver("driver-1"))
	driverRepo.AddDriver(completeDriver("driver-2"))

	matched := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore))
	if matched == nil || matched.ID != "driver-1" {
		t.Fatalf("expected first driver, got %+v", matched)
	}
}

func TestMatching_SkipsDriverWithActiveOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	driverRepo.AddDriver(completeDriver("driver-busy"))
	driverRepo.AddDriver(completeDriver("driver-free"))

	orderRepo.AddOrder(&domain.Order{
		ID:       "order-active",
		RiderID:  "rider-1",
		DriverID: "driver-busy",
		Status:   domain.OrderStatusOnTrip,
	})

	matched := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore))
	if matched == nil || matched.ID != "driver-free" {
		t.Fatalf("expected driver-free, got %+v", matched)
	}
}

func TestMatching_SkipsClaimedDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	driverRepo.AddDriver(completeDriver("driver-claimed"))
	driverRepo.AddDriver(completeDriver("driver-free"))

	// Another matcher already holds the first driver's claim.
	if ok, err := lockStore.AcquireDriverClaim(ctx, "driver-claimed", 10*time.Second); err != nil || !ok {
		t.Fatalf("seeding claim failed: ok=%v err=%v", ok, err)
	}

	matched := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore))
	if matched == nil || matched.ID != "driver-free" {
		t.Fatalf("expected driver-free, got %+v", matched)
	}
}

func TestMatching_NoDriverAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	// Only an ineligible driver exists.
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Name: "A"})

	if matched := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore)); matched != nil {
		t.Fatalf("expected no claim, got %+v", matched)
	}
}

func TestMatching_ClaimHeldAfterSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	orderRepo := NewMockOrderRepository()
	lockStore := NewMockLockStore()

	driverRepo.AddDriver(completeDriver("driver-1"))

	matcher := newMatcher(driverRepo, orderRepo, lockStore)

	matched := claimDriver(ctx, t, matcher)
	if matched == nil {
		t.Fatal("expected a claim")
	}
	if !lockStore.Held("driver-1") {
		t.Error("expected the claim lock to be held after claiming")
	}

	// A second matcher running concurrently must not claim the same driver.
	if second := claimDriver(ctx, t, newMatcher(driverRepo, orderRepo, lockStore)); second != nil {
		t.Fatalf("expected second matcher to find nobody, got %+v", second)
	}
}
