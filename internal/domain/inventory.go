package domain

import "time"

// FlightInventory is a bookable instance of a flight on a specific
// departure: its own seat pool, price and schedule.
type FlightInventory struct {
	ID             int64
	AirlineName    string
	FlightNumber   string
	FromPlace      string
	ToPlace        string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	Price          float64
	TotalSeats     int
	AvailableSeats int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
