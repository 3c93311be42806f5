package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*domain.Order)}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

// GetOrder returns an order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderRepository) ListByRider(ctx context.Context, riderID string, status domain.OrderStatus) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool {
		return o.RiderID == riderID && (status == "" || o.Status == status)
	}), nil
}

func (m *MockOrderRepository) ListByDriver(ctx context.Context, driverID string, status domain.OrderStatus) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool {
		return o.DriverID == driverID && (status == "" || o.Status == status)
	}), nil
}

func (m *MockOrderRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.DriverID == driverID &&
			(o.Status == domain.OrderStatusAssigned || o.Status == domain.OrderStatusOnTrip) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockOrderRepository) ListDueScheduled(ctx context.Context, before time.Time) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusScheduled && !o.RequestedFor.After(before)
	}), nil
}

func (m *MockOrderRepository) ListReviews(ctx context.Context, driverID string, minRating int) ([]*domain.ReviewEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var reviews []*domain.ReviewEntry
	for _, o := range m.orders {
		if o.Status != domain.OrderStatusCompleted || o.Rating == nil {
			continue
		}
		if driverID != "" && o.DriverID != driverID {
			continue
		}
		if minRating > 0 && *o.Rating < minRating {
			continue
		}
		reviews = append(reviews, &domain.ReviewEntry{
			OrderID:  o.ID,
			DriverID: o.DriverID,
			RiderID:  o.RiderID,
			Rating:   *o.Rating,
			Review:   o.Review,
		})
	}
	return reviews, nil
}

func (m *MockOrderRepository) list(match func(*domain.Order) bool) []*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Order
	for _, o := range m.orders {
		if match(o) {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
	order   []string

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository. Insertion order is
// preserved so "first eligible" is deterministic in tests.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		m.order = append(m.order, driver.ID)
	}
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddDriver(driver)
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.drivers[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockDriverRepository) FindEligible(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, id := range m.order {
		if m.drivers[id].ProfileComplete() {
			cp := *m.drivers[id]
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *driver
	m.drivers[driver.ID] = &cp
	return nil
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.AddUser(user)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockUserRepository) SetDriverFlag(ctx context.Context, id string, isDriver bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsDriver = isDriver
	return nil
}

// ──────────────────────────────────────────────
// MOCK PLAN + EXECUTION REPOSITORIES
// ──────────────────────────────────────────────

// MockPlanRepository is a mock implementation of PlanRepository.
type MockPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*domain.ScheduledPlan

	GetAllError error
}

// NewMockPlanRepository creates a new mock plan repository.
func NewMockPlanRepository() *MockPlanRepository {
	return &MockPlanRepository{plans: make(map[string]*domain.ScheduledPlan)}
}

// AddPlan adds a plan to the mock repository.
func (m *MockPlanRepository) AddPlan(plan *domain.ScheduledPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = plan
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.ScheduledPlan) error {
	m.AddPlan(plan)
	return nil
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (m *MockPlanRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ScheduledPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ScheduledPlan
	for _, p := range m.plans {
		if p.OwnerID == ownerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockPlanRepository) GetAll(ctx context.Context) ([]*domain.ScheduledPlan, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ScheduledPlan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockPlanRepository) Update(ctx context.Context, plan *domain.ScheduledPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[plan.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *plan
	m.plans[plan.ID] = &cp
	return nil
}

func (m *MockPlanRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

// MockExecutionRepository is a mock implementation of ExecutionRepository.
// Insert mirrors the ON CONFLICT DO NOTHING semantics of the real one.
type MockExecutionRepository struct {
	mu    sync.Mutex
	rows  map[string]*domain.PlanExecution
	order []string

	InsertCallCount int32
	InsertError     error
}

// NewMockExecutionRepository creates a new mock execution repository.
func NewMockExecutionRepository() *MockExecutionRepository {
	return &MockExecutionRepository{rows: make(map[string]*domain.PlanExecution)}
}

func executionKey(exec *domain.PlanExecution) string {
	return fmt.Sprintf("%s|%d|%s", exec.PlanID, exec.EntryIndex, exec.OccurrenceDate)
}

func (m *MockExecutionRepository) Insert(ctx context.Context, exec *domain.PlanExecution) (bool, error) {
	atomic.AddInt32(&m.InsertCallCount, 1)
	if m.InsertError != nil {
		return false, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := executionKey(exec)
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	cp := *exec
	m.rows[key] = &cp
	m.order = append(m.order, key)
	return true, nil
}

func (m *MockExecutionRepository) ListByPlan(ctx context.Context, planID string) ([]*domain.PlanExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.PlanExecution
	for _, key := range m.order {
		if m.rows[key].PlanID == planID {
			cp := *m.rows[key]
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Executions returns all recorded executions for assertions.
func (m *MockExecutionRepository) Executions() []*domain.PlanExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.PlanExecution, 0, len(m.order))
	for _, key := range m.order {
		cp := *m.rows[key]
		result = append(result, &cp)
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK LOCK + LOCATION STORES
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireDriverClaim(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[driverID] {
		return false, nil
	}
	m.locks[driverID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseDriverClaim(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, driverID)
	return nil
}

// Held reports whether a claim lock is currently held.
func (m *MockLockStore) Held(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[driverID]
}

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	positions map[string][2]float64

	UpdateCallCount int32
	UpdateError     error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{positions: make(map[string][2]float64)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = [2]float64{lat, lng}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[driverID]
	if !ok {
		return nil, nil
	}
	return &redis.DriverLocation{DriverID: driverID, Lat: pos[0], Lng: pos[1]}, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, driverID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK MATCHING SERVICE
// ──────────────────────────────────────────────

// MockMatching is a mock implementation of the matching service.
type MockMatching struct {
	mu sync.Mutex

	MatchCallCount int32

	// Result and MatchError control the outcome. When Assign is set it
	// is applied to the order before returning.
	MatchError error
	Assign     func(order *domain.Order)

	orderRepo *MockOrderRepository
}

// NewMockMatching creates a mock matching service backed by the given
// order repository.
func NewMockMatching(orderRepo *MockOrderRepository) *MockMatching {
	return &MockMatching{orderRepo: orderRepo}
}

func (m *MockMatching) Match(ctx context.Context, req service.MatchRequest) (*service.MatchResult, error) {
	atomic.AddInt32(&m.MatchCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MatchError != nil {
		return nil, m.MatchError
	}

	order, err := m.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusAssigned
	if m.Assign != nil {
		m.Assign(order)
	}
	if err := m.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	return &service.MatchResult{DriverID: order.DriverID, Order: order}, nil
}

// ──────────────────────────────────────────────
// RECORDING NOTIFIER
// ──────────────────────────────────────────────

// SentEvent is one event captured by the RecordingNotifier.
type SentEvent struct {
	OrderID string
	Name    string
	Payload map[string]any
}

// RecordingNotifier captures events instead of delivering them.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []SentEvent
}

// NewRecordingNotifier creates a new RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) NotifyOrder(order *domain.Order, name string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, SentEvent{OrderID: order.ID, Name: name, Payload: payload})
}

// Events returns the captured events.
func (n *RecordingNotifier) Events() []SentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentEvent(nil), n.events...)
}

// Names returns just the captured event names, in order.
func (n *RecordingNotifier) Names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.events))
	for _, e := range n.events {
		names = append(names, e.Name)
	}
	return names
}

// Compile-time interface checks.
var (
	_ repository.OrderRepository       = (*MockOrderRepository)(nil)
	_ repository.DriverRepository      = (*MockDriverRepository)(nil)
	_ repository.UserRepository        = (*MockUserRepository)(nil)
	_ repository.PlanRepository        = (*MockPlanRepository)(nil)
	_ repository.ExecutionRepository   = (*MockExecutionRepository)(nil)
	_ redis.LockStoreInterface         = (*MockLockStore)(nil)
	_ redis.LocationStoreInterface     = (*MockLocationStore)(nil)
	_ service.MatchingServiceInterface = (*MockMatching)(nil)
	_ service.Notifier                 = (*RecordingNotifier)(nil)
)
