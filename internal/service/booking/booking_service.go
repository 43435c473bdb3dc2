package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/Domenick1991/flightapp/internal/kafka"
	"github.com/Domenick1991/flightapp/internal/repository"
)

type BookingUseCase interface {
	BookTicket(ctx context.Context, inventoryID int64, input BookTicketInput) (*domain.Booking, error)
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	History(ctx context.Context, email string) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, pnr string) error
}

type Cache interface {
	AcquireSeatLock(ctx context.Context, inventoryID int64, seat string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, inventoryID int64, seat string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	cancellationWindow time.Duration
	pnrMaxAttempts     int
	seatLockTTL        time.Duration
}

type PassengerInput struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	SeatNumber string `json:"seat_number"`
	MealOption string `json:"meal_option"`
}

type BookTicketInput struct {
	Email         string           `json:"email" binding:"required,email"`
	NumberOfSeats int              `json:"number_of_seats"`
	MealOption    string           `json:"meal_option"`
	Passengers    []PassengerInput `json:"passengers"`
	SeatNumbers   []string         `json:"seat_numbers"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	cancellationWindow time.Duration,
	pnrMaxAttempts int,
	seatLockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:           bookings,
		cache:              cache,
		producer:           producer,
		eventsTopic:        eventsTopic,
		cancellationWindow: cancellationWindow,
		pnrMaxAttempts:     pnrMaxAttempts,
		seatLockTTL:        seatLockTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// BookTicket validates the request shape, takes best-effort redis holds
// on the requested seat labels, then retries the transactional Book with
// fresh reservation codes until the store accepts one. The availability
// and committed-seat collision checks live inside the repository
// transaction, under the same row lock as the counter decrement.
func (s *BookingService) BookTicket(ctx context.Context, inventoryID int64, input BookTicketInput) (*domain.Booking, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if input.NumberOfSeats < 1 {
		return nil, fmt.Errorf("%w: at least 1 seat must be booked", domain.ErrValidation)
	}
	if len(input.SeatNumbers) != input.NumberOfSeats || len(input.Passengers) != input.NumberOfSeats {
		return nil, domain.ErrSeatCountMismatch
	}
	requested := make(map[string]bool, len(input.SeatNumbers))
	for _, seat := range input.SeatNumbers {
		if requested[seat] {
			return nil, domain.ErrDuplicateSeats
		}
		requested[seat] = true
	}
	passengers := make([]domain.Passenger, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: passenger name is required", domain.ErrValidation)
		}
		if p.Age < 1 {
			return nil, fmt.Errorf("%w: passenger age must be >= 1", domain.ErrValidation)
		}
		meal := domain.MealOption(strings.ToUpper(p.MealOption))
		if meal != domain.MealVeg && meal != domain.MealNonVeg {
			return nil, fmt.Errorf("%w: meal option must be VEG or NON_VEG", domain.ErrValidation)
		}
		passengers = append(passengers, domain.Passenger{
			Name:       p.Name,
			Gender:     p.Gender,
			Age:        p.Age,
			SeatNumber: p.SeatNumber,
			MealOption: meal,
		})
	}

	locked, err := s.acquireSeatLocks(ctx, inventoryID, input.SeatNumbers)
	if err != nil {
		s.releaseSeatLocks(ctx, inventoryID, locked)
		return nil, err
	}
	defer s.releaseSeatLocks(ctx, inventoryID, locked)

	booking := &domain.Booking{
		Email:      input.Email,
		MealOption: domain.MealOption(strings.ToUpper(input.MealOption)),
		Passengers: passengers,
	}

	for attempt := 0; ; attempt++ {
		if attempt == s.pnrMaxAttempts {
			return nil, fmt.Errorf("could not allocate a unique pnr after %d attempts", s.pnrMaxAttempts)
		}
		booking.PNR = domain.NewPNR()
		err := s.bookings.Book(ctx, inventoryID, input.NumberOfSeats, input.SeatNumbers, booking)
		if errors.Is(err, domain.ErrPNRConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	if err := s.publish(ctx, "booking_created", booking); err != nil {
		log.Printf("WARNING: failed to publish booking_created event for %s: %v", booking.PNR, err)
	}
	return booking, nil
}

func (s *BookingService) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}
	if booking.Cancelled {
		return nil, domain.ErrTicketCancelled
	}
	return booking, nil
}

func (s *BookingService) History(ctx context.Context, email string) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("%w for: %s", domain.ErrNoBookingHistory, email)
	}
	return bookings, nil
}

// CancelBooking enforces the cancellation window and the one-way
// cancelled transition. The repository re-checks the flag under a row
// lock, so a concurrent second cancel fails there even if both passed
// the check here.
func (s *BookingService) CancelBooking(ctx context.Context, pnr string) error {
	booking, err := s.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return err
	}

	now := time.Now()
	if !booking.DepartureTime.After(now.Add(s.cancellationWindow)) {
		return domain.ErrCancellationWindow
	}
	if booking.Cancelled {
		return domain.ErrAlreadyCancelled
	}

	if err := s.bookings.Cancel(ctx, pnr, now); err != nil {
		return err
	}

	booking.Cancelled = true
	booking.CancelledAt = &now
	if err := s.publish(ctx, "booking_cancelled", booking); err != nil {
		log.Printf("WARNING: failed to publish booking_cancelled event for %s: %v", pnr, err)
	}
	return nil
}

func (s *BookingService) acquireSeatLocks(ctx context.Context, inventoryID int64, seats []string) ([]string, error) {
	if s.cache == nil {
		return nil, nil
	}
	locked := make([]string, 0, len(seats))
	for _, seat := range seats {
		ok, err := s.cache.AcquireSeatLock(ctx, inventoryID, seat, s.seatLockTTL)
		if err != nil {
			return locked, err
		}
		if !ok {
			return locked, fmt.Errorf("seat %s: %w", seat, domain.ErrSeatLocked)
		}
		locked = append(locked, seat)
	}
	return locked, nil
}

func (s *BookingService) releaseSeatLocks(ctx context.Context, inventoryID int64, seats []string) {
	if s.cache == nil {
		return
	}
	for _, seat := range seats {
		_ = s.cache.ReleaseSeatLock(ctx, inventoryID, seat)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.eventsTopic == "" {
		return nil
	}
	seats := make([]string, 0, len(booking.Passengers))
	for _, p := range booking.Passengers {
		seats = append(seats, p.SeatNumber)
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		PNR:         booking.PNR,
		InventoryID: booking.InventoryID,
		Email:       booking.Email,
		Seats:       seats,
		TotalPrice:  booking.TotalPrice,
		Cancelled:   booking.Cancelled,
		OccurredAt:  time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.PNR, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.PNR, event)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
