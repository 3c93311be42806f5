package service

import (
	"context"
	"database/sql"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/repository/postgres"
)

// driverClaimTTL bounds how long a claim can outlive a crashed matcher.
const driverClaimTTL = 10 * time.Second

// MatchingService selects a driver for a searching order.
//
// Policy: first eligible driver. Eligibility is a complete driver
// profile on a user flagged as driver; no proximity or load balancing.
// A redis claim lock makes the match exclusive while assignment is in
// flight, and drivers with an active order are skipped, so one driver
// cannot be booked onto two concurrent orders.
type MatchingService struct {
	db               *sql.DB
	driverRepo       repository.DriverRepository
	orderRepo        repository.OrderRepository
	lockStore        redis.LockStoreInterface
	cacheStore       *redis.CacheStore
	pickupETAMinutes int
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	db *sql.DB,
	driverRepo repository.DriverRepository,
	orderRepo repository.OrderRepository,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	pickupETAMinutes int,
) *MatchingService {
	return &MatchingService{
		db:               db,
		driverRepo:       driverRepo,
		orderRepo:        orderRepo,
		lockStore:        lockStore,
		cacheStore:       cacheStore,
		pickupETAMinutes: pickupETAMinutes,
	}
}

// MatchRequest contains the parameters for matching an order.
type MatchRequest struct {
	OrderID string
}

// MatchResult contains the result of a successful match.
type MatchResult struct {
	DriverID string
	Order    *domain.Order
}

// Match finds a driver for a searching order and assigns it.
func (s *MatchingService) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusSearching {
		return nil, ErrOrderNotSearching
	}

	driver, err := s.ClaimDriver(ctx)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrNoDriverAvailable
	}

	result, err := s.assignDriver(ctx, order.ID, driver)
	if err != nil {
		_ = s.lockStore.ReleaseDriverClaim(ctx, driver.ID)
		return nil, err
	}

	s.cacheDriverAsync(driver)

	// Success - the claim expires via TTL.
	return result, nil
}

// ClaimDriver walks the eligible drivers in order and claims the first
// free one. Returns nil when nobody is free. The caller owns the claim
// until assignment commits (TTL expiry) or releases it on failure.
func (s *MatchingService) ClaimDriver(ctx context.Context) (*domain.Driver, error) {
	drivers, err := s.driverRepo.FindEligible(ctx)
	if err != nil {
		return nil, err
	}

	for _, driver := range drivers {
		// A driver already on an order is not offerable, claim or not.
		active, err := s.orderRepo.GetActiveByDriverID(ctx, driver.ID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			continue
		}

		locked, err := s.lockStore.AcquireDriverClaim(ctx, driver.ID, driverClaimTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			// Another matcher is assigning this driver.
			continue
		}

		return driver, nil
	}

	return nil, nil
}

// assignDriver atomically assigns a driver to an order. The order is
// re-read inside the transaction so a concurrent cancel or a competing
// assignment loses cleanly.
func (s *MatchingService) assignDriver(ctx context.Context, orderID string, driver *domain.Driver) (*MatchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txOrderRepo := postgres.NewOrderRepositoryWithTx(tx)

	order, err := txOrderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusSearching {
		err = ErrOrderNotSearching
		return nil, err
	}

	order.Status = domain.OrderStatusAssigned
	order.DriverID = driver.ID
	order.DriverSnapshot = driver.Snapshot()
	order.PickupETAMinutes = s.pickupETAMinutes

	if err = txOrderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &MatchResult{
		DriverID: driver.ID,
		Order:    order,
	}, nil
}

// cacheDriverAsync caches a driver profile (fire and forget).
func (s *MatchingService) cacheDriverAsync(driver *domain.Driver) {
	if s.cacheStore == nil {
		return
	}
	go func() {
		cached := &redis.CachedDriver{
			ID:      driver.ID,
			Name:    driver.Name,
			Phone:   driver.Phone,
			Vehicle: driver.Vehicle,
			Plate:   driver.Plate,
		}
		_ = s.cacheStore.SetDriver(context.Background(), cached)
	}()
}
