package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// StopRequest is one destination stop in an order request.
type StopRequest struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	RiderID       string        `json:"rider_id"`
	PickupAddress string        `json:"pickup_address"`
	PickupLat     float64       `json:"pickup_lat"`
	PickupLng     float64       `json:"pickup_lng"`
	Stops         []StopRequest `json:"stops"`
	Kind          string        `json:"kind,omitempty"`         // RIDE, DELIVERY
	Tariff        string        `json:"tariff,omitempty"`       // ECONOMY, COMFORT, BUSINESS, PREMIUM
	VehicleType   string        `json:"vehicle_type,omitempty"` // MOTO, CAR, VAN
	PaymentMethod string        `json:"payment_method"`         // CASH, CARD, WALLET
	PetAllowed    bool          `json:"pet_allowed,omitempty"`
	ChildSeat     bool          `json:"child_seat,omitempty"`
	RequestedFor  string        `json:"requested_for,omitempty"` // RFC 3339; empty = now
}

// CancelOrderRequest is the HTTP request body for cancelling an order.
type CancelOrderRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// DriverActionRequest is the HTTP request body for driver-side order actions.
type DriverActionRequest struct {
	DriverID string `json:"driver_id"`
}

// RateOrderRequest is the HTTP request body for rating a completed order.
type RateOrderRequest struct {
	RiderID string `json:"rider_id"`
	Rating  int    `json:"rating"`
	Review  string `json:"review,omitempty"`
}

// OrderResponse is the HTTP representation of an order.
type OrderResponse struct {
	ID                 string        `json:"id"`
	RiderID            string        `json:"rider_id"`
	PickupAddress      string        `json:"pickup_address,omitempty"`
	PickupLat          float64       `json:"pickup_lat"`
	PickupLng          float64       `json:"pickup_lng"`
	Stops              []StopRequest `json:"stops"`
	Kind               string        `json:"kind"`
	Tariff             string        `json:"tariff,omitempty"`
	VehicleType        string        `json:"vehicle_type,omitempty"`
	PaymentMethod      string        `json:"payment_method"`
	DistanceKm         float64       `json:"distance_km"`
	ETAMinutes         int           `json:"eta_minutes"`
	Price              float64       `json:"price"`
	Status             string        `json:"status"`
	DriverID           string        `json:"driver_id,omitempty"`
	DriverName         string        `json:"driver_name,omitempty"`
	DriverVehicle      string        `json:"driver_vehicle,omitempty"`
	DriverPlate        string        `json:"driver_plate,omitempty"`
	PickupETAMinutes   int           `json:"pickup_eta_minutes,omitempty"`
	RequestedFor       string        `json:"requested_for,omitempty"`
	CompletedAt        string        `json:"completed_at,omitempty"`
	CancelledAt        string        `json:"cancelled_at,omitempty"`
	CancelReason       string        `json:"cancel_reason,omitempty"`
	Rating             *int          `json:"rating,omitempty"`
	Review             string        `json:"review,omitempty"`
	DriverAssigned     bool          `json:"driver_assigned"`
	DestinationAddress string        `json:"destination_address,omitempty"`
}

// EstimateResponse is the HTTP response for a fare estimate.
type EstimateResponse struct {
	DistanceKm float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
	Price      float64 `json:"price"`
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := toServiceRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(result.Order, result.DriverAssigned))
}

// Estimate handles POST /v1/orders/estimate
func (h *OrderHandler) Estimate(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := toServiceRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	// Estimation has no principal.
	svcReq.RiderID = ""

	quote, err := h.orderService.Estimate(svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateResponse{
		DistanceKm: quote.DistanceKm,
		ETAMinutes: quote.ETAMinutes,
		Price:      quote.Price,
	})
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toOrderResponse(order, order.DriverID != ""))
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), req.ActorID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order, order.DriverID != ""))
}

// StartTrip handles POST /v1/orders/:id/start
func (h *OrderHandler) StartTrip(c *gin.Context) {
	h.driverAction(c, h.orderService.StartTrip)
}

// CompleteTrip handles POST /v1/orders/:id/complete
func (h *OrderHandler) CompleteTrip(c *gin.Context) {
	h.driverAction(c, h.orderService.CompleteTrip)
}

// DriverArrived handles POST /v1/orders/:id/arrive
func (h *OrderHandler) DriverArrived(c *gin.Context) {
	h.driverAction(c, h.orderService.DriverArrived)
}

func (h *OrderHandler) driverAction(c *gin.Context, action func(ctx context.Context, driverID, orderID string) (*domain.Order, error)) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := action(c.Request.Context(), req.DriverID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order, order.DriverID != ""))
}

// RateOrder handles POST /v1/orders/:id/rate
func (h *OrderHandler) RateOrder(c *gin.Context) {
	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.RateOrder(c.Request.Context(), req.RiderID, c.Param("id"), req.Rating, req.Review)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order, order.DriverID != ""))
}

// AcceptOrder handles POST /v1/drivers/:id/orders - a driver creating an
// order already assigned to themself (street hail).
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := toServiceRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	order, err := h.orderService.AcceptOrder(c.Request.Context(), c.Param("id"), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(order, true))
}

// ListTrips handles GET /v1/trips
func (h *OrderHandler) ListTrips(c *gin.Context) {
	userID := c.Query("user_id")
	asDriver := c.Query("role") == "driver"
	status := domain.OrderStatus(c.Query("status"))

	orders, err := h.orderService.ListTrips(c.Request.Context(), userID, asDriver, status)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order, order.DriverID != ""))
	}
	respondJSON(c, http.StatusOK, gin.H{"trips": responses, "count": len(responses)})
}

// ReviewResponse is the HTTP representation of one rider review.
type ReviewResponse struct {
	OrderID     string `json:"order_id"`
	RiderID     string `json:"rider_id"`
	DriverID    string `json:"driver_id"`
	Rating      int    `json:"rating"`
	Review      string `json:"review,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ListReviews handles GET /v1/drivers/:id/reviews
func (h *OrderHandler) ListReviews(c *gin.Context) {
	minRating := 0
	if raw := c.Query("min_rating"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid min_rating"})
			return
		}
		minRating = parsed
	}

	reviews, err := h.orderService.ListReviews(c.Request.Context(), c.Param("id"), minRating)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		resp := ReviewResponse{
			OrderID:  r.OrderID,
			RiderID:  r.RiderID,
			DriverID: r.DriverID,
			Rating:   r.Rating,
			Review:   r.Review,
		}
		if !r.CompletedAt.IsZero() {
			resp.CompletedAt = r.CompletedAt.Format(time.RFC3339)
		}
		responses = append(responses, resp)
	}
	respondJSON(c, http.StatusOK, gin.H{"reviews": responses, "count": len(responses)})
}

func toServiceRequest(req CreateOrderRequest) (service.CreateOrderRequest, error) {
	stops := make([]domain.Stop, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, domain.Stop{Address: s.Address, Lat: s.Lat, Lng: s.Lng})
	}

	var requestedFor time.Time
	if req.RequestedFor != "" {
		parsed, err := time.Parse(time.RFC3339, req.RequestedFor)
		if err != nil {
			return service.CreateOrderRequest{}, err
		}
		requestedFor = parsed
	}

	return service.CreateOrderRequest{
		RiderID:       req.RiderID,
		PickupAddress: req.PickupAddress,
		PickupLat:     req.PickupLat,
		PickupLng:     req.PickupLng,
		Stops:         stops,
		Kind:          domain.ActionKind(req.Kind),
		Tariff:        domain.Tariff(req.Tariff),
		VehicleType:   domain.VehicleType(req.VehicleType),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PetAllowed:    req.PetAllowed,
		ChildSeat:     req.ChildSeat,
		RequestedFor:  requestedFor,
	}, nil
}

func toOrderResponse(order *domain.Order, assigned bool) OrderResponse {
	stops := make([]StopRequest, 0, len(order.Stops))
	for _, s := range order.Stops {
		stops = append(stops, StopRequest{Address: s.Address, Lat: s.Lat, Lng: s.Lng})
	}

	resp := OrderResponse{
		ID:                 order.ID,
		RiderID:            order.RiderID,
		PickupAddress:      order.PickupAddress,
		PickupLat:          order.PickupLat,
		PickupLng:          order.PickupLng,
		Stops:              stops,
		Kind:               string(order.Kind),
		Tariff:             string(order.Tariff),
		VehicleType:        string(order.VehicleType),
		PaymentMethod:      string(order.PaymentMethod),
		DistanceKm:         order.DistanceKm,
		ETAMinutes:         order.ETAMinutes,
		Price:              order.Price,
		Status:             string(order.Status),
		DriverID:           order.DriverID,
		DriverName:         order.DriverSnapshot.Name,
		DriverVehicle:      order.DriverSnapshot.Vehicle,
		DriverPlate:        order.DriverSnapshot.Plate,
		PickupETAMinutes:   order.PickupETAMinutes,
		CancelReason:       order.CancelReason,
		Rating:             order.Rating,
		Review:             order.Review,
		DriverAssigned:     assigned,
		DestinationAddress: order.DestinationAddress,
	}

	if !order.RequestedFor.IsZero() {
		resp.RequestedFor = order.RequestedFor.Format(time.RFC3339)
	}
	if !order.CompletedAt.IsZero() {
		resp.CompletedAt = order.CompletedAt.Format(time.RFC3339)
	}
	if !order.CancelledAt.IsZero() {
		resp.CancelledAt = order.CancelledAt.Format(time.RFC3339)
	}

	return resp
}
