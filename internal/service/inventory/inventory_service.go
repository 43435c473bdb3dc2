package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/Domenick1991/flightapp/internal/repository"
)

type InventoryUseCase interface {
	AddInventory(ctx context.Context, input AddInventoryInput) (*domain.FlightInventory, error)
	SearchFlights(ctx context.Context, input SearchInput) (*SearchResult, error)
}

type Cache interface {
	GetSearchLeg(ctx context.Context, from, to string, date time.Time) ([]domain.FlightInventory, error)
	SetSearchLeg(ctx context.Context, from, to string, date time.Time, flights []domain.FlightInventory) error
	InvalidateSearchLeg(ctx context.Context, from, to string, date time.Time) error
}

type InventoryService struct {
	repo  repository.InventoryRepository
	cache Cache
}

type AddInventoryInput struct {
	AirlineName    string    `json:"airline_name"`
	FlightNumber   string    `json:"flight_number"`
	FromPlace      string    `json:"from_place"`
	ToPlace        string    `json:"to_place"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Price          float64   `json:"price"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
}

type SearchInput struct {
	FromPlace   string    `json:"from_place"`
	ToPlace     string    `json:"to_place"`
	JourneyDate time.Time `json:"journey_date"`
	TripType    string    `json:"trip_type"`
	ReturnDate  time.Time `json:"return_date"`
}

// SearchResult is the single tagged shape for both trip types:
// ReturnFlights is nil for one-way searches and populated for
// round trips.
type SearchResult struct {
	OnwardFlights []domain.FlightInventory `json:"onwardFlights"`
	ReturnFlights []domain.FlightInventory `json:"returnFlights,omitempty"`
}

func NewInventoryService(repo repository.InventoryRepository, cache Cache) *InventoryService {
	return &InventoryService{repo: repo, cache: cache}
}

func (s *InventoryService) AddInventory(ctx context.Context, input AddInventoryInput) (*domain.FlightInventory, error) {
	if strings.TrimSpace(input.AirlineName) == "" {
		return nil, fmt.Errorf("%w: airline name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.FlightNumber) == "" {
		return nil, fmt.Errorf("%w: flight number is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.FromPlace) == "" || strings.TrimSpace(input.ToPlace) == "" {
		return nil, fmt.Errorf("%w: from place and to place are required", domain.ErrValidation)
	}
	if input.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if input.TotalSeats <= 0 || input.AvailableSeats <= 0 {
		return nil, fmt.Errorf("%w: seat counts must be positive", domain.ErrValidation)
	}
	if input.AvailableSeats > input.TotalSeats {
		return nil, domain.ErrSeatsExceedTotal
	}
	if !input.ArrivalTime.After(input.DepartureTime) {
		return nil, domain.ErrArrivalBeforeDeparture
	}

	inv := &domain.FlightInventory{
		AirlineName:    input.AirlineName,
		FlightNumber:   input.FlightNumber,
		FromPlace:      input.FromPlace,
		ToPlace:        input.ToPlace,
		DepartureTime:  input.DepartureTime,
		ArrivalTime:    input.ArrivalTime,
		Price:          input.Price,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.AvailableSeats,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateSearchLeg(ctx, inv.FromPlace, inv.ToPlace, inv.DepartureTime)
	}
	return inv, nil
}

func (s *InventoryService) SearchFlights(ctx context.Context, input SearchInput) (*SearchResult, error) {
	tripType := domain.TripType(strings.ToUpper(strings.TrimSpace(input.TripType)))
	if tripType != domain.TripOneWay && tripType != domain.TripRoundTrip {
		return nil, fmt.Errorf("%w: trip type must be ONE_WAY or ROUND_TRIP", domain.ErrValidation)
	}

	onward, err := s.searchLeg(ctx, input.FromPlace, input.ToPlace, input.JourneyDate)
	if err != nil {
		return nil, err
	}
	if len(onward) == 0 {
		return nil, domain.ErrNoFlightsFound
	}

	result := &SearchResult{OnwardFlights: onward}

	if tripType == domain.TripRoundTrip {
		if input.ReturnDate.IsZero() {
			return nil, domain.ErrReturnDateRequired
		}
		back, err := s.searchLeg(ctx, input.ToPlace, input.FromPlace, input.ReturnDate)
		if err != nil {
			return nil, err
		}
		if len(back) == 0 {
			return nil, domain.ErrNoFlightsFound
		}
		result.ReturnFlights = back
	}

	return result, nil
}

func (s *InventoryService) searchLeg(ctx context.Context, from, to string, date time.Time) ([]domain.FlightInventory, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSearchLeg(ctx, from, to, date); err == nil && cached != nil {
			return cached, nil
		}
	}

	start, end := dayWindow(date)
	flights, err := s.repo.SearchByRoute(ctx, from, to, start, end)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(flights) > 0 {
		_ = s.cache.SetSearchLeg(ctx, from, to, date, flights)
	}
	return flights, nil
}

// dayWindow bounds one calendar day as [00:00:00, 23:59:59], both ends
// inclusive. The upper bound is wall-clock 23:59:59, kept for
// compatibility with existing clients.
func dayWindow(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	end := time.Date(y, m, d, 23, 59, 59, 0, date.Location())
	return start, end
}

var _ InventoryUseCase = (*InventoryService)(nil)
