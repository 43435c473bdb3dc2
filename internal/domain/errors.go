package domain

import "errors"

var (
	// Not found
	ErrFlightNotFound   = errors.New("flight not found")
	ErrNoFlightsFound   = errors.New("no flights found")
	ErrBookingNotFound  = errors.New("pnr not found")
	ErrTicketCancelled  = errors.New("this ticket has been cancelled")
	ErrNoBookingHistory = errors.New("no booking history found")

	// Seat conflicts
	ErrNotEnoughSeats    = errors.New("not enough seats available")
	ErrSeatCountMismatch = errors.New("seat numbers count must match passenger count")
	ErrSeatAlreadyBooked = errors.New("seat is already booked")
	ErrSeatLocked        = errors.New("seat is held by another booking in progress")
	ErrDuplicateSeats    = errors.New("duplicate seat numbers in the request")

	// Timing conflicts
	ErrArrivalBeforeDeparture = errors.New("arrival time cannot be before departure time")
	ErrReturnDateRequired     = errors.New("return date is required for ROUND_TRIP")
	ErrCancellationWindow     = errors.New("cannot cancel within 24 hours of journey")
	ErrAlreadyCancelled       = errors.New("ticket already cancelled")

	// Inventory definition conflicts
	ErrSeatsExceedTotal = errors.New("available seats cannot be greater than total seats")
	ErrFlightExists     = errors.New("flight already exists with same details (airline, flightNumber, route, departureTime)")

	// Malformed request input; wrapped with the field-level message.
	ErrValidation = errors.New("invalid request")

	// ErrPNRConflict signals a reservation-code collision; callers retry
	// with a fresh code. It never reaches the API boundary.
	ErrPNRConflict = errors.New("pnr already in use")

	// ErrSeatRestoreOverflow marks a cancel whose seat restore would push
	// the counter past total_seats. The stored counters are inconsistent,
	// so this is a server fault, not a client one.
	ErrSeatRestoreOverflow = errors.New("cancelled seats exceed flight capacity")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlightNotFound) ||
		errors.Is(err, ErrNoFlightsFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrTicketCancelled) ||
		errors.Is(err, ErrNoBookingHistory)
}

func IsSeatConflict(err error) bool {
	return errors.Is(err, ErrNotEnoughSeats) ||
		errors.Is(err, ErrSeatCountMismatch) ||
		errors.Is(err, ErrSeatAlreadyBooked) ||
		errors.Is(err, ErrSeatLocked) ||
		errors.Is(err, ErrDuplicateSeats)
}

func IsTimingConflict(err error) bool {
	return errors.Is(err, ErrArrivalBeforeDeparture) ||
		errors.Is(err, ErrReturnDateRequired) ||
		errors.Is(err, ErrCancellationWindow) ||
		errors.Is(err, ErrAlreadyCancelled)
}

func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrSeatsExceedTotal)
}

func IsDuplicateFlight(err error) bool {
	return errors.Is(err, ErrFlightExists)
}
