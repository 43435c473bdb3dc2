package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightapp/config"
	"github.com/Domenick1991/flightapp/internal/bootstrap"
	"github.com/Domenick1991/flightapp/internal/cache"
	"github.com/Domenick1991/flightapp/internal/kafka"
	"github.com/Domenick1991/flightapp/internal/repository"
	"github.com/Domenick1991/flightapp/internal/service/booking"
	"github.com/Domenick1991/flightapp/internal/service/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
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

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logrus.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTLSeconds)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	inventoryRepo := repository.NewInventoryRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	inventoryService := inventory.NewInventoryService(inventoryRepo, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.CancellationWindowHours)*time.Hour,
		cfg.Booking.PNRMaxAttempts,
		time.Duration(cfg.Booking.SeatLockTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, inventoryService, bookingService); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}
