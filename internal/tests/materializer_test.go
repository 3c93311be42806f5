package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/scheduler"
	"dispatch/internal/service"
)

func newMaterializer(planRepo *MockPlanRepository, execRepo *MockExecutionRepository, orderRepo *MockOrderRepository, events *RecordingNotifier) *scheduler.Materializer {
	matching := NewMockMatching(orderRepo)
	matching.MatchError = service.ErrNoDriverAvailable
	orders := newOrderService(orderRepo, NewMockDriverRepository(), matching, events)
	return scheduler.NewMaterializer(planRepo, execRepo, orderRepo, orders, time.Minute, 30*time.Second)
}

// planDueAt builds a single-entry plan whose occurrence falls exactly on
// the given instant.
func planDueAt(id, owner string, at time.Time) *domain.ScheduledPlan {
	return &domain.ScheduledPlan{
		ID:      id,
		OwnerID: owner,
		Name:    "commute",
		Entries: []domain.ScheduleEntry{{
			PickupAddress:      "home",
			PickupLat:          41.00,
			PickupLng:          69.00,
			DestinationAddress: "office",
			DestinationLat:     41.05,
			DestinationLng:     69.05,
			Weekdays:           []time.Weekday{at.Weekday()},
			TimeOfDay:          at.Format("15:04"),
			Tariff:             domain.TariffEconomy,
			PaymentMethod:      domain.PaymentMethodCard,
		}},
		CreatedAt: at.Add(-24 * time.Hour),
	}
}

func TestMaterializer_FiresDueOccurrenceOnce(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	execRepo := NewMockExecutionRepository()
	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()

	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC) // Monday
	planRepo.AddPlan(planDueAt("plan-1", "rider-1", now))

	m := newMaterializer(planRepo, execRepo, orderRepo, events)
	m.Tick(context.Background(), now)

	execs := execRepo.Executions()
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if execs[0].OccurrenceDate != "2025-03-03" {
		t.Errorf("unexpected occurrence date: %s", execs[0].OccurrenceDate)
	}

	order := orderRepo.GetOrder(execs[0].OrderID)
	if order == nil {
		t.Fatal("expected the materialized order to exist")
	}
	if order.RiderID != "rider-1" {
		t.Errorf("expected owner as rider, got %s", order.RiderID)
	}
	if order.Status != domain.OrderStatusSearching {
		t.Errorf("expected SEARCHING, got %s", order.Status)
	}
	if order.Price <= 0 {
		t.Errorf("expected priced order, got %f", order.Price)
	}
}

func TestMaterializer_OverlappingTicksFireOnce(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	execRepo := NewMockExecutionRepository()
	orderRepo := NewMockOrderRepository()

	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)
	planRepo.AddPlan(planDueAt("plan-1", "rider-1", now))

	m := newMaterializer(planRepo, execRepo, orderRepo, NewRecordingNotifier())

	// Two ticks whose windows both cover the 08:30 occurrence.
	m.Tick(context.Background(), now)
	m.Tick(context.Background(), now.Add(30*time.Second))

	if got := len(execRepo.Executions()); got != 1 {
		t.Errorf("expected exactly 1 execution across overlapping ticks, got %d", got)
	}
	if got := orderRepo.CreateCallCount; got != 1 {
		t.Errorf("expected exactly 1 order created, got %d", got)
	}
}

func TestMaterializer_PreseededLedgerRowSkips(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	execRepo := NewMockExecutionRepository()
	orderRepo := NewMockOrderRepository()

	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)
	planRepo.AddPlan(planDueAt("plan-1", "rider-1", now))

	// Another instance already claimed this occurrence.
	if ok, err := execRepo.Insert(context.Background(), &domain.PlanExecution{
		PlanID: "plan-1", EntryIndex: 0, OccurrenceDate: "2025-03-03",
		OrderID: "order-elsewhere", FiredAt: now,
	}); err != nil || !ok {
		t.Fatalf("seeding ledger failed: ok=%v err=%v", ok, err)
	}

	m := newMaterializer(planRepo, execRepo, orderRepo, NewRecordingNotifier())
	m.Tick(context.Background(), now)

	if got := orderRepo.CreateCallCount; got != 0 {
		t.Errorf("expected no order created for a claimed occurrence, got %d", got)
	}
}

func TestMaterializer_NotDueOutsideWindow(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	execRepo := NewMockExecutionRepository()
	orderRepo := NewMockOrderRepository()

	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)
	// Occurrence is an hour ahead of the tick.
	planRepo.AddPlan(planDueAt("plan-1", "rider-1", now.Add(time.Hour)))

	m := newMaterializer(planRepo, execRepo, orderRepo, NewRecordingNotifier())
	m.Tick(context.Background(), now)

	if got := len(execRepo.Executions()); got != 0 {
		t.Errorf("expected no executions, got %d", got)
	}
}

func TestMaterializer_PromotesDueScheduledOrder(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	execRepo := NewMockExecutionRepository()
	orderRepo := NewMockOrderRepository()
	events := NewRecordingNotifier()

	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)
	orderRepo.AddOrder(&domain.Order{
		ID:           "order-1",
		RiderID:      "rider-1",
		Status:       domain.OrderStatusScheduled,
		RequestedFor: now.Add(-time.Minute),
		Price:        600,
	})

	m := newMaterializer(planRepo, execRepo, orderRepo, events)
	m.Tick(context.Background(), now)

	if got := orderRepo.GetOrder("order-1").Status; got != domain.OrderStatusSearching {
		t.Errorf("expected promoted order to be SEARCHING, got %s", got)
	}
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	monday0800 := time.Date(2025, time.March, 3, 8, 0, 0, 0, loc)

	tests := []struct {
		name      string
		after     time.Time
		day       time.Weekday
		timeOfDay string
		want      time.Time
	}{
		{
			"same day later slot",
			monday0800,
			time.Monday, "09:30",
			time.Date(2025, time.March, 3, 9, 30, 0, 0, loc),
		},
		{
			"same day exact instant",
			monday0800,
			time.Monday, "08:00",
			monday0800,
		},
		{
			"slot already passed rolls a week",
			monday0800,
			time.Monday, "07:00",
			time.Date(2025, time.March, 10, 7, 0, 0, 0, loc),
		},
		{
			"later weekday this week",
			monday0800,
			time.Friday, "18:00",
			time.Date(2025, time.March, 7, 18, 0, 0, 0, loc),
		},
		{
			"earlier weekday wraps to next week",
			monday0800,
			time.Sunday, "10:00",
			time.Date(2025, time.March, 9, 10, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := scheduler.NextOccurrence(tt.after, tt.day, tt.timeOfDay, loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := scheduler.NextOccurrence(monday0800, time.Monday, "25:99", loc); err == nil {
		t.Error("expected error for malformed time of day")
	}
}
