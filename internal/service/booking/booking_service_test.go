package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock структуры

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Book(ctx context.Context, inventoryID int64, seatCount int, seatNumbers []string, booking *domain.Booking) error {
	args := m.Called(ctx, inventoryID, seatCount, seatNumbers, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	args := m.Called(ctx, pnr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, pnr string, at time.Time) error {
	args := m.Called(ctx, pnr, at)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireSeatLock(ctx context.Context, inventoryID int64, seat string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, inventoryID, seat, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseSeatLock(ctx context.Context, inventoryID int64, seat string) error {
	args := m.Called(ctx, inventoryID, seat)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(repo *MockBookingRepository, cache Cache, producer Producer) *BookingService {
	return &BookingService{
		bookings:           repo,
		cache:              cache,
		producer:           producer,
		eventsTopic:        "booking-events",
		cancellationWindow: 24 * time.Hour,
		pnrMaxAttempts:     5,
		seatLockTTL:        30 * time.Second,
	}
}

func validInput() BookTicketInput {
	return BookTicketInput{
		Email:         "test@example.com",
		NumberOfSeats: 2,
		MealOption:    "MIX",
		Passengers: []PassengerInput{
			{Name: "Ivan", Gender: "M", Age: 35, SeatNumber: "12A", MealOption: "VEG"},
			{Name: "Anna", Gender: "F", Age: 32, SeatNumber: "12B", MealOption: "NON_VEG"},
		},
		SeatNumbers: []string{"12A", "12B"},
	}
}

// Тест 1: Успешное бронирование
func TestBookingService_BookTicket_Success(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, mockCache, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockCache.On("AcquireSeatLock", ctx, int64(7), "12A", 30*time.Second).Return(true, nil).Once()
	mockCache.On("AcquireSeatLock", ctx, int64(7), "12B", 30*time.Second).Return(true, nil).Once()
	mockCache.On("ReleaseSeatLock", ctx, int64(7), "12A").Return(nil).Once()
	mockCache.On("ReleaseSeatLock", ctx, int64(7), "12B").Return(nil).Once()
	mockRepo.On("Book", ctx, int64(7), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := service.BookTicket(ctx, 7, input)

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, "test@example.com", booking.Email)
	assert.Len(t, booking.Passengers, 2)
	assert.Regexp(t, `^PNR[0-9A-F]{8}$`, booking.PNR)
	assert.False(t, booking.Cancelled)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_BookTicket_ValidationErrors(t *testing.T) {
	service := newTestService(&MockBookingRepository{}, nil, nil)
	ctx := context.Background()

	testCases := []struct {
		name        string
		mutate      func(*BookTicketInput)
		expectedErr string
	}{
		{
			name:        "empty email",
			mutate:      func(in *BookTicketInput) { in.Email = "" },
			expectedErr: "email is required",
		},
		{
			name:        "zero seats",
			mutate:      func(in *BookTicketInput) { in.NumberOfSeats = 0 },
			expectedErr: "at least 1 seat must be booked",
		},
		{
			name:        "blank passenger name",
			mutate:      func(in *BookTicketInput) { in.Passengers[0].Name = "  " },
			expectedErr: "passenger name is required",
		},
		{
			name:        "infant age",
			mutate:      func(in *BookTicketInput) { in.Passengers[1].Age = 0 },
			expectedErr: "passenger age must be >= 1",
		},
		{
			name:        "bad meal option",
			mutate:      func(in *BookTicketInput) { in.Passengers[0].MealOption = "VEGAN" },
			expectedErr: "meal option must be VEG or NON_VEG",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			booking, err := service.BookTicket(ctx, 7, input)
			assert.Error(t, err)
			assert.Nil(t, booking)
			assert.Contains(t, err.Error(), tc.expectedErr)
			assert.True(t, domain.IsValidation(err))
		})
	}
}

// Тест: одно и то же место дважды в одной заявке
func TestBookingService_BookTicket_DuplicateSeats(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)

	input := validInput()
	input.SeatNumbers = []string{"12A", "12A"}
	input.Passengers[1].SeatNumber = "12A"

	booking, err := service.BookTicket(context.Background(), 7, input)

	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrDuplicateSeats))
	assert.True(t, domain.IsSeatConflict(err))
	mockRepo.AssertNotCalled(t, "Book")
}

func TestBookingService_BookTicket_SeatCountMismatch(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	short := validInput()
	short.SeatNumbers = []string{"12A"}

	booking, err := service.BookTicket(ctx, 7, short)
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrSeatCountMismatch))

	missing := validInput()
	missing.Passengers = missing.Passengers[:1]

	booking, err = service.BookTicket(ctx, 7, missing)
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrSeatCountMismatch))

	mockRepo.AssertNotCalled(t, "Book")
}

// Тест: место удерживается другим бронированием
func TestBookingService_BookTicket_SeatHeld(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	service := newTestService(mockRepo, mockCache, nil)

	ctx := context.Background()
	input := validInput()

	mockCache.On("AcquireSeatLock", ctx, int64(7), "12A", 30*time.Second).Return(true, nil).Once()
	mockCache.On("AcquireSeatLock", ctx, int64(7), "12B", 30*time.Second).Return(false, nil).Once()
	mockCache.On("ReleaseSeatLock", ctx, int64(7), "12A").Return(nil).Once()

	booking, err := service.BookTicket(ctx, 7, input)

	assert.Error(t, err)
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrSeatLocked))
	assert.True(t, domain.IsSeatConflict(err))

	mockCache.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Book")
}

func TestBookingService_BookTicket_NotEnoughSeats(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)

	ctx := context.Background()
	input := validInput()

	mockRepo.On("Book", ctx, int64(7), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).
		Return(domain.ErrNotEnoughSeats).Once()

	booking, err := service.BookTicket(ctx, 7, input)

	assert.Error(t, err)
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrNotEnoughSeats))

	mockRepo.AssertExpectations(t)
}

func TestBookingService_BookTicket_FlightNotFound(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)

	ctx := context.Background()

	mockRepo.On("Book", ctx, int64(404), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).
		Return(domain.ErrFlightNotFound).Once()

	booking, err := service.BookTicket(ctx, 404, validInput())

	assert.Error(t, err)
	assert.Nil(t, booking)
	assert.True(t, domain.IsNotFound(err))
}

// Тест: коллизия pnr — повтор с новым кодом
func TestBookingService_BookTicket_PNRConflictRetried(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, nil, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockRepo.On("Book", ctx, int64(7), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).
		Return(domain.ErrPNRConflict).Once()
	mockRepo.On("Book", ctx, int64(7), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).
		Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := service.BookTicket(ctx, 7, input)

	assert.NoError(t, err)
	assert.NotNil(t, booking)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Book", 2)
}

func TestBookingService_BookTicket_PNRAttemptsExhausted(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)

	ctx := context.Background()

	mockRepo.On("Book", ctx, int64(7), 2, []string{"12A", "12B"}, mock.AnythingOfType("*domain.Booking")).
		Return(domain.ErrPNRConflict).Times(5)

	booking, err := service.BookTicket(ctx, 7, validInput())

	assert.Error(t, err)
	assert.Nil(t, booking)
	assert.Contains(t, err.Error(), "unique pnr")

	mockRepo.AssertNumberOfCalls(t, "Book", 5)
}

func TestBookingService_GetByPNR(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	active := &domain.Booking{ID: 1, PNR: "PNRAB12CD34", Email: "test@example.com"}
	mockRepo.On("GetByPNR", ctx, "PNRAB12CD34").Return(active, nil).Once()

	booking, err := service.GetByPNR(ctx, "PNRAB12CD34")
	assert.NoError(t, err)
	assert.Equal(t, active, booking)

	mockRepo.On("GetByPNR", ctx, "PNRMISSING1").Return(nil, domain.ErrBookingNotFound).Once()
	booking, err = service.GetByPNR(ctx, "PNRMISSING1")
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))

	cancelled := &domain.Booking{ID: 2, PNR: "PNRDEAD0000", Cancelled: true}
	mockRepo.On("GetByPNR", ctx, "PNRDEAD0000").Return(cancelled, nil).Once()
	booking, err = service.GetByPNR(ctx, "PNRDEAD0000")
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrTicketCancelled))
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingService_History(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	list := []domain.Booking{
		{ID: 2, PNR: "PNR22222222", BookingTime: time.Now()},
		{ID: 1, PNR: "PNR11111111", BookingTime: time.Now().Add(-time.Hour)},
	}
	mockRepo.On("ListByEmail", ctx, "test@example.com").Return(list, nil).Once()

	bookings, err := service.History(ctx, "test@example.com")
	assert.NoError(t, err)
	assert.Equal(t, list, bookings)
}

func TestBookingService_History_Empty(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	mockRepo.On("ListByEmail", ctx, "nobody@example.com").Return([]domain.Booking{}, nil).Once()

	bookings, err := service.History(ctx, "nobody@example.com")
	assert.Nil(t, bookings)
	assert.True(t, errors.Is(err, domain.ErrNoBookingHistory))
	assert.Contains(t, err.Error(), "nobody@example.com")
}

func TestBookingService_CancelBooking_Success(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, nil, mockProducer)
	ctx := context.Background()

	// Вылет через 25 часов — отмена разрешена
	booking := &domain.Booking{
		ID:            1,
		PNR:           "PNRAB12CD34",
		Email:         "test@example.com",
		DepartureTime: time.Now().Add(25 * time.Hour),
		Passengers:    []domain.Passenger{{SeatNumber: "12A"}, {SeatNumber: "12B"}},
	}
	mockRepo.On("GetByPNR", ctx, "PNRAB12CD34").Return(booking, nil).Once()
	mockRepo.On("Cancel", ctx, "PNRAB12CD34", mock.AnythingOfType("time.Time")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", "PNRAB12CD34", mock.Anything).Return(nil).Once()

	err := service.CancelBooking(ctx, "PNRAB12CD34")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CancelBooking_InsideWindow(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	// Вылет через 23 часа — уже поздно
	booking := &domain.Booking{
		ID:            1,
		PNR:           "PNRAB12CD34",
		DepartureTime: time.Now().Add(23 * time.Hour),
	}
	mockRepo.On("GetByPNR", ctx, "PNRAB12CD34").Return(booking, nil).Once()

	err := service.CancelBooking(ctx, "PNRAB12CD34")

	assert.True(t, errors.Is(err, domain.ErrCancellationWindow))
	assert.True(t, domain.IsTimingConflict(err))
	mockRepo.AssertNotCalled(t, "Cancel")
}

func TestBookingService_CancelBooking_AlreadyCancelled(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	cancelledAt := time.Now().Add(-time.Hour)
	booking := &domain.Booking{
		ID:            1,
		PNR:           "PNRAB12CD34",
		DepartureTime: time.Now().Add(48 * time.Hour),
		Cancelled:     true,
		CancelledAt:   &cancelledAt,
	}
	mockRepo.On("GetByPNR", ctx, "PNRAB12CD34").Return(booking, nil).Once()

	err := service.CancelBooking(ctx, "PNRAB12CD34")

	assert.True(t, errors.Is(err, domain.ErrAlreadyCancelled))
	mockRepo.AssertNotCalled(t, "Cancel")
}

func TestBookingService_CancelBooking_NotFound(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := newTestService(mockRepo, nil, nil)
	ctx := context.Background()

	mockRepo.On("GetByPNR", ctx, "PNRMISSING1").Return(nil, domain.ErrBookingNotFound).Once()

	err := service.CancelBooking(ctx, "PNRMISSING1")
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

// fakeBookingRepo serializes Book calls the way the database row lock
// does, for exercising the service under concurrent callers.
type fakeBookingRepo struct {
	mu        sync.Mutex
	available int
	taken     map[string]bool
	pnrs      map[string]bool
}

func (f *fakeBookingRepo) Book(ctx context.Context, inventoryID int64, seatCount int, seatNumbers []string, booking *domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.available < seatCount {
		return domain.ErrNotEnoughSeats
	}
	for _, seat := range seatNumbers {
		if f.taken[seat] {
			return fmt.Errorf("seat %s: %w", seat, domain.ErrSeatAlreadyBooked)
		}
	}
	if f.pnrs[booking.PNR] {
		return domain.ErrPNRConflict
	}
	f.available -= seatCount
	for _, seat := range seatNumbers {
		f.taken[seat] = true
	}
	f.pnrs[booking.PNR] = true
	return nil
}

func (f *fakeBookingRepo) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	return nil, domain.ErrBookingNotFound
}

func (f *fakeBookingRepo) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) Cancel(ctx context.Context, pnr string, at time.Time) error {
	return nil
}

// Двадцать конкурентных заявок на пять оставшихся мест: проходят ровно
// пять, счётчик не уходит в минус.
func TestBookingService_BookTicket_ConcurrentSeatExhaustion(t *testing.T) {
	repo := &fakeBookingRepo{available: 5, taken: map[string]bool{}, pnrs: map[string]bool{}}
	service := newTestService(&MockBookingRepository{}, nil, nil)
	service.bookings = repo

	ctx := context.Background()
	const attempts = 20

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		seat := fmt.Sprintf("%dC", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := BookTicketInput{
				Email:         "test@example.com",
				NumberOfSeats: 1,
				MealOption:    "VEG",
				Passengers:    []PassengerInput{{Name: "P", Gender: "M", Age: 30, SeatNumber: seat, MealOption: "VEG"}},
				SeatNumbers:   []string{seat},
			}
			_, err := service.BookTicket(ctx, 7, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrNotEnoughSeats))
		rejected++
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, 0, repo.available)
}

// Две конкурентные заявки на одно и то же место: побеждает одна.
func TestBookingService_BookTicket_ConcurrentSameSeat(t *testing.T) {
	repo := &fakeBookingRepo{available: 10, taken: map[string]bool{}, pnrs: map[string]bool{}}
	service := newTestService(&MockBookingRepository{}, nil, nil)
	service.bookings = repo

	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := BookTicketInput{
				Email:         "test@example.com",
				NumberOfSeats: 1,
				MealOption:    "VEG",
				Passengers:    []PassengerInput{{Name: "P", Gender: "F", Age: 28, SeatNumber: "1A", MealOption: "VEG"}},
				SeatNumbers:   []string{"1A"},
			}
			_, err := service.BookTicket(ctx, 7, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, domain.ErrSeatAlreadyBooked))
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, repo.available)
}
