package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/Domenick1991/flightapp/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerResponse struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	SeatNumber string `json:"seat_number"`
	MealOption string `json:"meal_option"`
}

type bookingResponse struct {
	PNR           string              `json:"pnr"`
	Email         string              `json:"email"`
	BookingTime   string              `json:"booking_time"`
	DepartureTime string              `json:"departure_time"`
	ArrivalTime   string              `json:"arrival_time"`
	TotalPrice    float64             `json:"total_price"`
	Cancelled     bool                `json:"cancelled"`
	CancelledAt   string              `json:"cancelled_at,omitempty"`
	InventoryID   int64               `json:"inventory_id"`
	Passengers    []passengerResponse `json:"passengers"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/booking/:inventoryId", h.book)
	router.GET("/ticket/:pnr", h.ticket)
	router.GET("/booking/history/:email", h.history)
	router.DELETE("/booking/cancel/:pnr", h.cancel)
}

func (h *BookingHandler) book(c *gin.Context) {
	inventoryID, err := strconv.ParseInt(c.Param("inventoryId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory id"})
		return
	}

	var req booking.BookTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booked, err := h.service.BookTicket(c.Request.Context(), inventoryID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(booked))
}

func (h *BookingHandler) ticket(c *gin.Context) {
	booked, err := h.service.GetByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booked))
}

func (h *BookingHandler) history(c *gin.Context) {
	bookings, err := h.service.History(c.Request.Context(), c.Param("email"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	response := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		response = append(response, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	if err := h.service.CancelBooking(c.Request.Context(), c.Param("pnr")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket cancelled successfully"})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		PNR:           b.PNR,
		Email:         b.Email,
		BookingTime:   b.BookingTime.Format(time.RFC3339),
		DepartureTime: b.DepartureTime.Format(time.RFC3339),
		ArrivalTime:   b.ArrivalTime.Format(time.RFC3339),
		TotalPrice:    b.TotalPrice,
		Cancelled:     b.Cancelled,
		InventoryID:   b.InventoryID,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	for _, p := range b.Passengers {
		resp.Passengers = append(resp.Passengers, passengerResponse{
			Name:       p.Name,
			Gender:     p.Gender,
			Age:        p.Age,
			SeatNumber: p.SeatNumber,
			MealOption: string(p.MealOption),
		})
	}
	return resp
}
