package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PlanService manages scheduled plans. All mutations are restricted to
// the plan's owner.
type PlanService struct {
	planRepo repository.PlanRepository
	execRepo repository.ExecutionRepository
}

// NewPlanService creates a new PlanService.
func NewPlanService(planRepo repository.PlanRepository, execRepo repository.ExecutionRepository) *PlanService {
	return &PlanService{planRepo: planRepo, execRepo: execRepo}
}

// CreatePlanRequest contains the parameters for creating a plan.
type CreatePlanRequest struct {
	OwnerID string
	Name    string
	Entries []domain.ScheduleEntry
}

// CreatePlan validates and persists a new scheduled plan.
func (s *PlanService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*domain.ScheduledPlan, error) {
	if req.OwnerID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Name == "" {
		return nil, ErrInvalidPlanName
	}
	if err := validateEntries(req.Entries); err != nil {
		return nil, err
	}

	plan := &domain.ScheduledPlan{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Entries:   req.Entries,
		CreatedAt: time.Now(),
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// GetPlan retrieves a plan, visible only to its owner.
func (s *PlanService) GetPlan(ctx context.Context, ownerID, planID string) (*domain.ScheduledPlan, error) {
	plan, err := s.ownedPlan(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListPlans retrieves all plans owned by a user.
func (s *PlanService) ListPlans(ctx context.Context, ownerID string) ([]*domain.ScheduledPlan, error) {
	if ownerID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.planRepo.ListByOwner(ctx, ownerID)
}

// UpdatePlanRequest contains the parameters for updating a plan. The
// entry list is replaced wholesale.
type UpdatePlanRequest struct {
	Name    string
	Entries []domain.ScheduleEntry
}

// UpdatePlan replaces a plan's name and entries. Owner only.
func (s *PlanService) UpdatePlan(ctx context.Context, ownerID, planID string, req UpdatePlanRequest) (*domain.ScheduledPlan, error) {
	plan, err := s.ownedPlan(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, ErrInvalidPlanName
	}
	if err := validateEntries(req.Entries); err != nil {
		return nil, err
	}

	plan.Name = req.Name
	plan.Entries = req.Entries

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// DeletePlan removes a plan. Owner only. The execution ledger is kept:
// past occurrences stay burned even if an identical plan is recreated.
func (s *PlanService) DeletePlan(ctx context.Context, ownerID, planID string) error {
	if _, err := s.ownedPlan(ctx, ownerID, planID); err != nil {
		return err
	}
	return s.planRepo.Delete(ctx, planID)
}

// ListExecutions retrieves the materialization history of a plan. Owner only.
func (s *PlanService) ListExecutions(ctx context.Context, ownerID, planID string) ([]*domain.PlanExecution, error) {
	if _, err := s.ownedPlan(ctx, ownerID, planID); err != nil {
		return nil, err
	}
	return s.execRepo.ListByPlan(ctx, planID)
}

func (s *PlanService) ownedPlan(ctx context.Context, ownerID, planID string) (*domain.ScheduledPlan, error) {
	if planID == "" {
		return nil, ErrInvalidPlanID
	}
	if ownerID == "" {
		return nil, ErrInvalidRiderID
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.OwnerID != ownerID {
		return nil, ErrNotPlanOwner
	}
	return plan, nil
}

func validateEntries(entries []domain.ScheduleEntry) error {
	if len(entries) == 0 {
		return ErrPlanHasNoEntries
	}

	for _, entry := range entries {
		if len(entry.Weekdays) == 0 {
			return ErrInvalidWeekday
		}
		for _, day := range entry.Weekdays {
			if day < time.Sunday || day > time.Saturday {
				return ErrInvalidWeekday
			}
		}
		if _, err := time.Parse("15:04", entry.TimeOfDay); err != nil {
			return ErrInvalidTimeOfDay
		}
		if !isValidLatitude(entry.PickupLat) || !isValidLongitude(entry.PickupLng) ||
			!isValidLatitude(entry.DestinationLat) || !isValidLongitude(entry.DestinationLng) {
			return ErrInvalidCoordinate
		}
		if err := validatePaymentMethod(entry.PaymentMethod); err != nil {
			return err
		}
	}

	return nil
}
