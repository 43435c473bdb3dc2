package domain

import "time"

type MealOption string

const (
	MealVeg    MealOption = "VEG"
	MealNonVeg MealOption = "NON_VEG"
	MealMix    MealOption = "MIX"
)

type TripType string

const (
	TripOneWay    TripType = "ONE_WAY"
	TripRoundTrip TripType = "ROUND_TRIP"
)

type Passenger struct {
	ID         int64
	Name       string
	Gender     string
	Age        int
	SeatNumber string
	MealOption MealOption
}

// Booking snapshots the journey timestamps and price at booking time,
// so later inventory edits never alter historical bookings. Passengers
// are owned by the booking and created together with it.
type Booking struct {
	ID            int64
	PNR           string
	Email         string
	BookingTime   time.Time
	DepartureTime time.Time
	ArrivalTime   time.Time
	TotalPrice    float64
	MealOption    MealOption
	Cancelled     bool
	CancelledAt   *time.Time
	InventoryID   int64
	Passengers    []Passenger
}
