package service

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/internal/notifier"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService manages driver profiles and location reports.
type DriverService struct {
	driverRepo    repository.DriverRepository
	userRepo      repository.UserRepository
	orderRepo     repository.OrderRepository
	locationStore redis.LocationStoreInterface
	cacheStore    *redis.CacheStore
	events        Notifier
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	events Notifier,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		userRepo:      userRepo,
		orderRepo:     orderRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		events:        events,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	UserID  string
	Name    string
	Phone   string
	Vehicle string
	Plate   string
}

// RegisterDriver creates a driver profile for an existing user and
// flags the user as a driver.
func (s *DriverService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.UserID == "" {
		return nil, ErrInvalidDriverID
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	driver := &domain.Driver{
		ID:      user.ID,
		Name:    req.Name,
		Phone:   req.Phone,
		Vehicle: req.Vehicle,
		Plate:   req.Plate,
	}
	if !driver.ProfileComplete() {
		return nil, ErrDriverNotEligible
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}

	if err := s.userRepo.SetDriverFlag(ctx, user.ID, true); err != nil {
		return nil, err
	}

	return driver, nil
}

// UpdateProfile replaces a driver's profile fields and invalidates the
// cached copy so fresh assignments snapshot the new values.
func (s *DriverService) UpdateProfile(ctx context.Context, driver *domain.Driver) (*domain.Driver, error) {
	if driver.ID == "" {
		return nil, ErrInvalidDriverID
	}
	if !driver.ProfileComplete() {
		return nil, ErrDriverNotEligible
	}

	if err := s.driverRepo.Update(ctx, driver); err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		// Stale cache self-heals via TTL; invalidation is best-effort.
		_ = s.cacheStore.InvalidateDriver(ctx, driver.ID)
	}

	return driver, nil
}

// GetDriver retrieves a driver profile, cache first.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetDriver(ctx, driverID)
		if err == nil && cached != nil {
			return &domain.Driver{
				ID:      cached.ID,
				Name:    cached.Name,
				Phone:   cached.Phone,
				Vehicle: cached.Vehicle,
				Plate:   cached.Plate,
			}, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, &redis.CachedDriver{
			ID:      driver.ID,
			Name:    driver.Name,
			Phone:   driver.Phone,
			Vehicle: driver.Vehicle,
			Plate:   driver.Plate,
		})
	}

	return driver, nil
}

// ListDrivers retrieves all driver profiles.
func (s *DriverService) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// DriverLocation retrieves a driver's last reported position. Returns
// repository.ErrNotFound if the driver has never reported one or has
// gone off shift.
func (s *DriverService) DriverLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	loc, err := s.locationStore.GetLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, repository.ErrNotFound
	}
	return loc, nil
}

// ClearLocation removes a driver's position when they go off shift, so
// stale coordinates are never served or forwarded.
func (s *DriverService) ClearLocation(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return s.locationStore.RemoveLocation(ctx, driverID)
}

// ReportLocation stores a driver's position and, when the driver is on
// an active order, forwards it to the rider: carLocation while the car
// is en route to pickup, driverLocation during the trip.
func (s *DriverService) ReportLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidCoordinate
	}

	if err := s.locationStore.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		return err
	}

	order, err := s.orderRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil || order == nil {
		return err
	}

	event := notifier.EventCarLocation
	if order.Status == domain.OrderStatusOnTrip {
		event = notifier.EventDriverLocation
	}

	if s.events != nil {
		s.events.NotifyOrder(order, event, map[string]any{
			"lat": lat,
			"lng": lng,
		})
	}

	return nil
}
