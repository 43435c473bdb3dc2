package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightapp/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for booking %s (%d seats)\n", event.Email, event.Type, event.PNR, len(event.Seats))
	return nil
}
