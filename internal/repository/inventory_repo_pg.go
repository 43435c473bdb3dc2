package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InventoryRepository interface {
	Create(ctx context.Context, inv *domain.FlightInventory) error
	SearchByRoute(ctx context.Context, from, to string, start, end time.Time) ([]domain.FlightInventory, error)
}

type PGInventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) InventoryRepository {
	return &PGInventoryRepository{db: db}
}

// Create persists a new inventory row. The duplicate check on
// (airline, flight number, route, departure time) and the insert run in
// one transaction so two identical definitions cannot both pass the check.
func (r *PGInventoryRepository) Create(ctx context.Context, inv *domain.FlightInventory) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM flight_inventory
			WHERE airline_name=$1 AND flight_number=$2 AND from_place=$3 AND to_place=$4 AND departure_time=$5 AND active)`,
		inv.AirlineName, inv.FlightNumber, inv.FromPlace, inv.ToPlace, inv.DepartureTime).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrFlightExists
	}

	inv.Active = true
	if err := tx.QueryRow(ctx, `INSERT INTO flight_inventory
			(airline_name, flight_number, from_place, to_place, departure_time, arrival_time, price, total_seats, available_seats, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		inv.AirlineName, inv.FlightNumber, inv.FromPlace, inv.ToPlace, inv.DepartureTime, inv.ArrivalTime, inv.Price, inv.TotalSeats, inv.AvailableSeats, inv.Active).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGInventoryRepository) SearchByRoute(ctx context.Context, from, to string, start, end time.Time) ([]domain.FlightInventory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, airline_name, flight_number, from_place, to_place, departure_time, arrival_time, price, total_seats, available_seats, active, created_at, updated_at
		FROM flight_inventory
		WHERE from_place=$1 AND to_place=$2 AND departure_time BETWEEN $3 AND $4 AND active
		ORDER BY departure_time`, from, to, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.FlightInventory, 0)
	for rows.Next() {
		var inv domain.FlightInventory
		if err := rows.Scan(&inv.ID, &inv.AirlineName, &inv.FlightNumber, &inv.FromPlace, &inv.ToPlace, &inv.DepartureTime, &inv.ArrivalTime, &inv.Price, &inv.TotalSeats, &inv.AvailableSeats, &inv.Active, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, inv)
	}
	return flights, rows.Err()
}

var _ InventoryRepository = (*PGInventoryRepository)(nil)
