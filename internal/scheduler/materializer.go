package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// OrderCreator is the slice of the order service the materializer needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResponse, error)
	ActivateScheduled(ctx context.Context, orderID string) (*service.CreateOrderResponse, error)
}

// Materializer turns scheduled plans into real orders. A single loop
// scans all plans on every tick; the execution ledger, not the loop,
// guarantees each occurrence fires at most once, so running several
// instances is safe.
type Materializer struct {
	planRepo  repository.PlanRepository
	execRepo  repository.ExecutionRepository
	orderRepo repository.OrderRepository
	orders    OrderCreator
	window    time.Duration
	interval  time.Duration
}

// NewMaterializer creates a new Materializer. window is how far ahead of
// its fire time an occurrence may be materialized; interval is the tick
// period.
func NewMaterializer(
	planRepo repository.PlanRepository,
	execRepo repository.ExecutionRepository,
	orderRepo repository.OrderRepository,
	orders OrderCreator,
	window time.Duration,
	interval time.Duration,
) *Materializer {
	return &Materializer{
		planRepo:  planRepo,
		execRepo:  execRepo,
		orderRepo: orderRepo,
		orders:    orders,
		window:    window,
		interval:  interval,
	}
}

// Run ticks until the context is cancelled.
func (m *Materializer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("[SCHEDULER] materializer started (interval %s, window %s)", m.interval, m.window)

	for {
		select {
		case <-ctx.Done():
			log.Println("[SCHEDULER] materializer stopped")
			return
		case now := <-ticker.C:
			m.Tick(ctx, now)
		}
	}
}

// occurrence is one due (plan, entry) firing.
type occurrence struct {
	plan   *domain.ScheduledPlan
	entry  domain.ScheduleEntry
	index  int
	fireAt time.Time
}

// Tick runs one materialization pass for the given wall-clock time. It
// is exported so tests can drive the loop deterministically.
func (m *Materializer) Tick(ctx context.Context, now time.Time) {
	plans, err := m.planRepo.GetAll(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] loading plans: %v", err)
		return
	}

	due := collectDue(plans, now, m.window)

	// Earliest fire time first, so a long pass burns the most overdue
	// occurrences before the fresher ones.
	sort.Slice(due, func(i, j int) bool {
		return due[i].fireAt.Before(due[j].fireAt)
	})

	for _, occ := range due {
		if err := m.fire(ctx, occ); err != nil {
			log.Printf("[SCHEDULER] plan %s entry %d: %v", occ.plan.ID, occ.index, err)
		}
	}

	m.promoteDue(ctx, now)
}

// fire materializes one occurrence. The ledger insert is the atomicity
// point: exactly one concurrent caller wins it, so a crash after the
// insert burns the occurrence rather than risking a duplicate order.
func (m *Materializer) fire(ctx context.Context, occ occurrence) error {
	orderID := uuid.New().String()

	inserted, err := m.execRepo.Insert(ctx, &domain.PlanExecution{
		PlanID:         occ.plan.ID,
		EntryIndex:     occ.index,
		OccurrenceDate: occ.fireAt.Format("2006-01-02"),
		OrderID:        orderID,
		FiredAt:        time.Now(),
	})
	if err != nil {
		return fmt.Errorf("recording execution: %w", err)
	}
	if !inserted {
		// Already handled, this tick or a previous one.
		return nil
	}

	_, err = m.orders.CreateOrder(ctx, service.CreateOrderRequest{
		ID:            orderID,
		RiderID:       occ.plan.OwnerID,
		PickupAddress: occ.entry.PickupAddress,
		PickupLat:     occ.entry.PickupLat,
		PickupLng:     occ.entry.PickupLng,
		Stops: []domain.Stop{{
			Address: occ.entry.DestinationAddress,
			Lat:     occ.entry.DestinationLat,
			Lng:     occ.entry.DestinationLng,
		}},
		Kind:          domain.ActionKindRide,
		Tariff:        occ.entry.Tariff,
		PaymentMethod: occ.entry.PaymentMethod,
		PetAllowed:    occ.entry.PetAllowed,
		ChildSeat:     occ.entry.ChildSeat,
	})
	if err != nil {
		// The ledger row stands: this occurrence is burned, not retried.
		return fmt.Errorf("creating order %s: %w", orderID, err)
	}

	log.Printf("[SCHEDULER] plan %s entry %d fired order %s", occ.plan.ID, occ.index, orderID)
	return nil
}

// promoteDue moves SCHEDULED one-shot orders whose requested-for time
// has arrived into SEARCHING and dispatches them.
func (m *Materializer) promoteDue(ctx context.Context, now time.Time) {
	orders, err := m.orderRepo.ListDueScheduled(ctx, now.Add(m.window))
	if err != nil {
		log.Printf("[SCHEDULER] loading due orders: %v", err)
		return
	}

	for _, order := range orders {
		if _, err := m.orders.ActivateScheduled(ctx, order.ID); err != nil {
			log.Printf("[SCHEDULER] activating order %s: %v", order.ID, err)
		}
	}
}

// collectDue computes the occurrences of every plan entry that fall
// within (now-window, now+window].
func collectDue(plans []*domain.ScheduledPlan, now time.Time, window time.Duration) []occurrence {
	var due []occurrence
	for _, plan := range plans {
		for i, entry := range plan.Entries {
			for _, day := range entry.Weekdays {
				fireAt, err := NextOccurrence(now.Add(-window), day, entry.TimeOfDay, now.Location())
				if err != nil {
					log.Printf("[SCHEDULER] plan %s entry %d: bad time of day %q", plan.ID, i, entry.TimeOfDay)
					continue
				}
				if fireAt.After(now.Add(window)) {
					continue
				}
				due = append(due, occurrence{plan: plan, entry: entry, index: i, fireAt: fireAt})
			}
		}
	}
	return due
}

// NextOccurrence returns the first instant at or after `after` that
// falls on the given weekday at the given "HH:MM" local time. If the
// weekday's slot earlier in the current week has already passed, it
// rolls forward seven days.
func NextOccurrence(after time.Time, day time.Weekday, timeOfDay string, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	after = after.In(loc)
	daysAhead := (int(day) - int(after.Weekday()) + 7) % 7
	candidate := time.Date(
		after.Year(), after.Month(), after.Day()+daysAhead,
		clock.Hour(), clock.Minute(), 0, 0, loc,
	)
	if candidate.Before(after) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, nil
}
