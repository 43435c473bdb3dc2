package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightapp/config"
	"github.com/Domenick1991/flightapp/internal/email"
	"github.com/Domenick1991/flightapp/internal/kafka"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	if err := consumer.Consume(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
		return emailSender.Send(ctx, event)
	}); err != nil && ctx.Err() == nil {
		logrus.Errorf("consumer stopped: %v", err)
	}
}
