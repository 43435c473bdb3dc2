package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume delivers decoded booking events to handler until the context
// is canceled or handler fails. A message that does not decode is
// logged and skipped, so one bad payload cannot wedge the group offset.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, BookingEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := decodeBookingEvent(msg.Value)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"topic":  msg.Topic,
				"offset": msg.Offset,
			}).Errorf("decode booking event: %v", err)
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func decodeBookingEvent(payload []byte) (BookingEvent, error) {
	var event BookingEvent
	err := json.Unmarshal(payload, &event)
	return event, err
}
