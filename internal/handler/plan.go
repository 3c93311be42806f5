package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// PlanHandler handles HTTP requests for scheduled plans.
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// ScheduleEntryRequest is one recurring trip template in a plan request.
type ScheduleEntryRequest struct {
	PickupAddress      string  `json:"pickup_address"`
	PickupLat          float64 `json:"pickup_lat"`
	PickupLng          float64 `json:"pickup_lng"`
	DestinationAddress string  `json:"destination_address"`
	DestinationLat     float64 `json:"destination_lat"`
	DestinationLng     float64 `json:"destination_lng"`
	Weekdays           []int   `json:"weekdays"` // 0=Sunday .. 6=Saturday
	TimeOfDay          string  `json:"time_of_day"`
	Tariff             string  `json:"tariff,omitempty"`
	PaymentMethod      string  `json:"payment_method"`
	PetAllowed         bool    `json:"pet_allowed,omitempty"`
	ChildSeat          bool    `json:"child_seat,omitempty"`
}

// PlanRequest is the HTTP request body for creating or updating a plan.
type PlanRequest struct {
	OwnerID string                 `json:"owner_id"`
	Name    string                 `json:"name"`
	Entries []ScheduleEntryRequest `json:"entries"`
}

// PlanResponse is the HTTP representation of a plan.
type PlanResponse struct {
	ID        string                 `json:"id"`
	OwnerID   string                 `json:"owner_id"`
	Name      string                 `json:"name"`
	Entries   []ScheduleEntryRequest `json:"entries"`
	CreatedAt string                 `json:"created_at"`
}

// ExecutionResponse is the HTTP representation of one fired occurrence.
type ExecutionResponse struct {
	PlanID         string `json:"plan_id"`
	EntryIndex     int    `json:"entry_index"`
	OccurrenceDate string `json:"occurrence_date"`
	OrderID        string `json:"order_id"`
	FiredAt        string `json:"fired_at"`
}

// CreatePlan handles POST /v1/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), service.CreatePlanRequest{
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Entries: toEntries(req.Entries),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPlanResponse(plan))
}

// GetPlan handles GET /v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planService.GetPlan(c.Request.Context(), c.Query("owner_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPlanResponse(plan))
}

// ListPlans handles GET /v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Request.Context(), c.Query("owner_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		responses = append(responses, toPlanResponse(plan))
	}
	respondJSON(c, http.StatusOK, gin.H{"plans": responses, "count": len(responses)})
}

// UpdatePlan handles PUT /v1/plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), req.OwnerID, c.Param("id"), service.UpdatePlanRequest{
		Name:    req.Name,
		Entries: toEntries(req.Entries),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPlanResponse(plan))
}

// DeletePlan handles DELETE /v1/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	if err := h.planService.DeletePlan(c.Request.Context(), c.Query("owner_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListExecutions handles GET /v1/plans/:id/executions
func (h *PlanHandler) ListExecutions(c *gin.Context) {
	execs, err := h.planService.ListExecutions(c.Request.Context(), c.Query("owner_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]ExecutionResponse, 0, len(execs))
	for _, exec := range execs {
		responses = append(responses, ExecutionResponse{
			PlanID:         exec.PlanID,
			EntryIndex:     exec.EntryIndex,
			OccurrenceDate: exec.OccurrenceDate,
			OrderID:        exec.OrderID,
			FiredAt:        exec.FiredAt.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, gin.H{"executions": responses, "count": len(responses)})
}

func toEntries(reqs []ScheduleEntryRequest) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0, len(reqs))
	for _, e := range reqs {
		weekdays := make([]time.Weekday, 0, len(e.Weekdays))
		for _, d := range e.Weekdays {
			weekdays = append(weekdays, time.Weekday(d))
		}
		entries = append(entries, domain.ScheduleEntry{
			PickupAddress:      e.PickupAddress,
			PickupLat:          e.PickupLat,
			PickupLng:          e.PickupLng,
			DestinationAddress: e.DestinationAddress,
			DestinationLat:     e.DestinationLat,
			DestinationLng:     e.DestinationLng,
			Weekdays:           weekdays,
			TimeOfDay:          e.TimeOfDay,
			Tariff:             domain.Tariff(e.Tariff),
			PaymentMethod:      domain.PaymentMethod(e.PaymentMethod),
			PetAllowed:         e.PetAllowed,
			ChildSeat:          e.ChildSeat,
		})
	}
	return entries
}

func toPlanResponse(plan *domain.ScheduledPlan) PlanResponse {
	entries := make([]ScheduleEntryRequest, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		weekdays := make([]int, 0, len(e.Weekdays))
		for _, d := range e.Weekdays {
			weekdays = append(weekdays, int(d))
		}
		entries = append(entries, ScheduleEntryRequest{
			PickupAddress:      e.PickupAddress,
			PickupLat:          e.PickupLat,
			PickupLng:          e.PickupLng,
			DestinationAddress: e.DestinationAddress,
			DestinationLat:     e.DestinationLat,
			DestinationLng:     e.DestinationLng,
			Weekdays:           weekdays,
			TimeOfDay:          e.TimeOfDay,
			Tariff:             string(e.Tariff),
			PaymentMethod:      string(e.PaymentMethod),
			PetAllowed:         e.PetAllowed,
			ChildSeat:          e.ChildSeat,
		})
	}

	return PlanResponse{
		ID:        plan.ID,
		OwnerID:   plan.OwnerID,
		Name:      plan.Name,
		Entries:   entries,
		CreatedAt: plan.CreatedAt.Format(time.RFC3339),
	}
}
