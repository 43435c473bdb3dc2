package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Book(ctx context.Context, inventoryID int64, seatCount int, seatNumbers []string, booking *domain.Booking) error
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
	Cancel(ctx context.Context, pnr string, at time.Time) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// Book runs the whole seat-allocation sequence in one transaction.
// The SELECT ... FOR UPDATE on the inventory row serializes concurrent
// bookings per inventory, so the availability check, the committed
// seat-label set and the counter decrement are read and written under
// the same lock. On a reservation-code collision the transaction rolls
// back and domain.ErrPNRConflict is returned for the caller to retry.
func (r *PGBookingRepository) Book(ctx context.Context, inventoryID int64, seatCount int, seatNumbers []string, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var inv domain.FlightInventory
	row := tx.QueryRow(ctx, `SELECT id, departure_time, arrival_time, price, total_seats, available_seats
		FROM flight_inventory WHERE id=$1 AND active FOR UPDATE`, inventoryID)
	if err := row.Scan(&inv.ID, &inv.DepartureTime, &inv.ArrivalTime, &inv.Price, &inv.TotalSeats, &inv.AvailableSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFlightNotFound
		}
		return err
	}

	if inv.AvailableSeats < seatCount {
		return domain.ErrNotEnoughSeats
	}

	taken, err := r.bookedSeats(ctx, tx, inventoryID)
	if err != nil {
		return err
	}
	for _, seat := range seatNumbers {
		if taken[seat] {
			return fmt.Errorf("seat %s: %w", seat, domain.ErrSeatAlreadyBooked)
		}
	}

	cmd, err := tx.Exec(ctx, `UPDATE flight_inventory
		SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND available_seats >= $2`, inventoryID, seatCount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotEnoughSeats
	}

	var pnrTaken bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE pnr=$1)`, booking.PNR).Scan(&pnrTaken); err != nil {
		return err
	}
	if pnrTaken {
		return domain.ErrPNRConflict
	}

	booking.InventoryID = inv.ID
	booking.DepartureTime = inv.DepartureTime
	booking.ArrivalTime = inv.ArrivalTime
	booking.TotalPrice = inv.Price * float64(seatCount)
	booking.Cancelled = false

	if err := tx.QueryRow(ctx, `INSERT INTO bookings
			(pnr, email, booking_time, departure_time, arrival_time, total_price, meal_option, cancelled, inventory_id)
		VALUES ($1, $2, now(), $3, $4, $5, $6, false, $7)
		RETURNING id, booking_time`,
		booking.PNR, booking.Email, booking.DepartureTime, booking.ArrivalTime, booking.TotalPrice, booking.MealOption, booking.InventoryID).
		Scan(&booking.ID, &booking.BookingTime); err != nil {
		// Уникальный индекс по pnr — последняя инстанция проверки.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPNRConflict
		}
		return err
	}

	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		if err := tx.QueryRow(ctx, `INSERT INTO passengers (booking_id, name, gender, age, seat_number, meal_option)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			booking.ID, p.Name, p.Gender, p.Age, p.SeatNumber, p.MealOption).Scan(&p.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Cancel flips the cancellation flag and restores the seats in one
// transaction. The booking row is locked so a concurrent cancel of the
// same pnr observes the flag already set.
func (r *PGBookingRepository) Cancel(ctx context.Context, pnr string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		bookingID   int64
		inventoryID int64
		cancelled   bool
	)
	row := tx.QueryRow(ctx, `SELECT id, inventory_id, cancelled FROM bookings WHERE pnr=$1 FOR UPDATE`, pnr)
	if err := row.Scan(&bookingID, &inventoryID, &cancelled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		return err
	}
	if cancelled {
		return domain.ErrAlreadyCancelled
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET cancelled=true, cancelled_at=$2 WHERE id=$1`, bookingID, at); err != nil {
		return err
	}

	var seats int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM passengers WHERE booking_id=$1`, bookingID).Scan(&seats); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `UPDATE flight_inventory
		SET available_seats = available_seats + $2, updated_at = now()
		WHERE id=$1 AND available_seats + $2 <= total_seats`, inventoryID, seats)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("restore %d seats on inventory %d: %w", seats, inventoryID, domain.ErrSeatRestoreOverflow)
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT id, pnr, email, booking_time, departure_time, arrival_time, total_price, meal_option, cancelled, cancelled_at, inventory_id
		FROM bookings WHERE pnr=$1`, pnr)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.loadPassengers(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT id, pnr, email, booking_time, departure_time, arrival_time, total_price, meal_option, cancelled, cancelled_at, inventory_id
		FROM bookings WHERE email=$1 ORDER BY booking_time DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		if err := r.loadPassengers(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *PGBookingRepository) bookedSeats(ctx context.Context, tx pgx.Tx, inventoryID int64) (map[string]bool, error) {
	rows, err := tx.Query(ctx, `SELECT p.seat_number FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.inventory_id=$1 AND NOT b.cancelled`, inventoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		taken[seat] = true
	}
	return taken, rows.Err()
}

func (r *PGBookingRepository) loadPassengers(ctx context.Context, booking *domain.Booking) error {
	rows, err := r.db.Query(ctx, `SELECT id, name, gender, age, seat_number, meal_option
		FROM passengers WHERE booking_id=$1 ORDER BY id`, booking.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.Name, &p.Gender, &p.Age, &p.SeatNumber, &p.MealOption); err != nil {
			return err
		}
		booking.Passengers = append(booking.Passengers, p)
	}
	return rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.PNR, &b.Email, &b.BookingTime, &b.DepartureTime, &b.ArrivalTime, &b.TotalPrice, &b.MealOption, &b.Cancelled, &b.CancelledAt, &b.InventoryID); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
