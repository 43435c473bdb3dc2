package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightapp/config"
	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
	}
}

// GetSearchLeg returns the cached result for one search leg, or nil on a miss.
func (c *RedisCache) GetSearchLeg(ctx context.Context, from, to string, date time.Time) ([]domain.FlightInventory, error) {
	data, err := c.client.Get(ctx, searchKey(from, to, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.FlightInventory
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// SetSearchLeg stores a snapshot of the leg, including its seat
// counters. Bookings and cancellations do not touch search keys, so a
// cached AvailableSeats may lag the database by up to the TTL; only
// AddInventory invalidates a leg.
func (c *RedisCache) SetSearchLeg(ctx context.Context, from, to string, date time.Time, flights []domain.FlightInventory) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(from, to, date), payload, c.searchTTL).Err()
}

func (c *RedisCache) InvalidateSearchLeg(ctx context.Context, from, to string, date time.Time) error {
	return c.client.Del(ctx, searchKey(from, to, date)).Err()
}

// AcquireSeatLock takes a short-lived hold on one seat label while a
// booking transaction is in flight. Best effort: the database row lock
// stays authoritative.
func (c *RedisCache) AcquireSeatLock(ctx context.Context, inventoryID int64, seat string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(inventoryID, seat), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, inventoryID int64, seat string) error {
	return c.client.Del(ctx, seatLockKey(inventoryID, seat)).Err()
}

func searchKey(from, to string, date time.Time) string {
	return fmt.Sprintf("cache:search:%s:%s:%s", from, to, date.Format("2006-01-02"))
}

func seatLockKey(inventoryID int64, seat string) string {
	return fmt.Sprintf("lock:inventory:%d:seat:%s", inventoryID, seat)
}
