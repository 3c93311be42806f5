package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const orderColumns = `id, rider_id, driver_id, driver_name, driver_phone, driver_vehicle, driver_plate,
		pickup_address, pickup_lat, pickup_lng, stops, destination_address, destination_lat, destination_lng,
		kind, tariff, vehicle_type, payment_method, pet_allowed, child_seat,
		distance_km, eta_minutes, price, pickup_eta_minutes,
		status, requested_for, created_at, completed_at, cancelled_at, cancel_reason, rating, review`

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	`

	stops, err := json.Marshal(order.Stops)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		order.ID,
		order.RiderID,
		nullString(order.DriverID),
		nullString(order.DriverSnapshot.Name),
		nullString(order.DriverSnapshot.Phone),
		nullString(order.DriverSnapshot.Vehicle),
		nullString(order.DriverSnapshot.Plate),
		order.PickupAddress,
		order.PickupLat,
		order.PickupLng,
		stops,
		order.DestinationAddress,
		order.DestinationLat,
		order.DestinationLng,
		order.Kind,
		nullString(string(order.Tariff)),
		nullString(string(order.VehicleType)),
		order.PaymentMethod,
		order.PetAllowed,
		order.ChildSeat,
		order.DistanceKm,
		order.ETAMinutes,
		order.Price,
		order.PickupETAMinutes,
		order.Status,
		nullTime(order.RequestedFor),
		order.CreatedAt,
		nullTime(order.CompletedAt),
		nullTime(order.CancelledAt),
		nullString(order.CancelReason),
		nullInt(order.Rating),
		nullString(order.Review),
	)

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// Update updates an existing order in a single atomic write.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET driver_id = $1, driver_name = $2, driver_phone = $3, driver_vehicle = $4, driver_plate = $5,
			pickup_eta_minutes = $6, status = $7, completed_at = $8, cancelled_at = $9, cancel_reason = $10,
			rating = $11, review = $12
		WHERE id = $13
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(order.DriverID),
		nullString(order.DriverSnapshot.Name),
		nullString(order.DriverSnapshot.Phone),
		nullString(order.DriverSnapshot.Vehicle),
		nullString(order.DriverSnapshot.Plate),
		order.PickupETAMinutes,
		order.Status,
		nullTime(order.CompletedAt),
		nullTime(order.CancelledAt),
		nullString(order.CancelReason),
		nullInt(order.Rating),
		nullString(order.Review),
		order.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByRider retrieves a rider's orders, newest first.
func (r *OrderRepository) ListByRider(ctx context.Context, riderID string, status domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(ctx, "rider_id", riderID, status)
}

// ListByDriver retrieves a driver's orders, newest first.
func (r *OrderRepository) ListByDriver(ctx context.Context, driverID string, status domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(ctx, "driver_id", driverID, status)
}

func (r *OrderRepository) list(ctx context.Context, column, id string, status domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1`
	args := []any{id}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetActiveByDriverID retrieves the driver's ASSIGNED or ON_TRIP order.
// Returns nil if no active order exists.
func (r *OrderRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE driver_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, driverID, domain.OrderStatusAssigned, domain.OrderStatusOnTrip))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// ListDueScheduled retrieves SCHEDULED orders due at or before the given instant.
func (r *OrderRepository) ListDueScheduled(ctx context.Context, before time.Time) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND requested_for IS NOT NULL AND requested_for <= $2
		ORDER BY requested_for ASC
	`

	rows, err := r.q.QueryContext(ctx, query, domain.OrderStatusScheduled, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ListReviews retrieves reviews projected from completed, rated orders.
func (r *OrderRepository) ListReviews(ctx context.Context, driverID string, minRating int) ([]*domain.ReviewEntry, error) {
	query := `
		SELECT id, rider_id, driver_id, rating, COALESCE(review, ''), completed_at
		FROM orders
		WHERE status = $1 AND rating IS NOT NULL AND rating >= $2
	`
	args := []any{domain.OrderStatusCompleted, minRating}
	if driverID != "" {
		query += ` AND driver_id = $3`
		args = append(args, driverID)
	}
	query += ` ORDER BY completed_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.ReviewEntry
	for rows.Next() {
		var rev domain.ReviewEntry
		if err := rows.Scan(&rev.OrderID, &rev.RiderID, &rev.DriverID, &rev.Rating, &rev.Review, &rev.CompletedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, &rev)
	}
	return reviews, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order        domain.Order
		driverID     sql.NullString
		driverName   sql.NullString
		driverPhone  sql.NullString
		driverVeh    sql.NullString
		driverPlate  sql.NullString
		stops        []byte
		tariff       sql.NullString
		vehicleType  sql.NullString
		requestedFor sql.NullTime
		completedAt  sql.NullTime
		cancelledAt  sql.NullTime
		cancelReason sql.NullString
		rating       sql.NullInt64
		review       sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.RiderID,
		&driverID,
		&driverName,
		&driverPhone,
		&driverVeh,
		&driverPlate,
		&order.PickupAddress,
		&order.PickupLat,
		&order.PickupLng,
		&stops,
		&order.DestinationAddress,
		&order.DestinationLat,
		&order.DestinationLng,
		&order.Kind,
		&tariff,
		&vehicleType,
		&order.PaymentMethod,
		&order.PetAllowed,
		&order.ChildSeat,
		&order.DistanceKm,
		&order.ETAMinutes,
		&order.Price,
		&order.PickupETAMinutes,
		&order.Status,
		&requestedFor,
		&order.CreatedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
		&rating,
		&review,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stops, &order.Stops); err != nil {
		return nil, err
	}

	order.DriverID = driverID.String
	order.DriverSnapshot = domain.DriverSnapshot{
		Name:    driverName.String,
		Phone:   driverPhone.String,
		Vehicle: driverVeh.String,
		Plate:   driverPlate.String,
	}
	order.Tariff = domain.Tariff(tariff.String)
	order.VehicleType = domain.VehicleType(vehicleType.String)
	if requestedFor.Valid {
		order.RequestedFor = requestedFor.Time
	}
	if completedAt.Valid {
		order.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = cancelledAt.Time
	}
	order.CancelReason = cancelReason.String
	if rating.Valid {
		v := int(rating.Int64)
		order.Rating = &v
	}
	order.Review = review.String

	return &order, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Ensure OrderRepository implements repository.OrderRepository.
var _ repository.OrderRepository = (*OrderRepository)(nil)
