package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-booking-finance/internal/config"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/reconciliation"

	"github.com/go-redis/redis/v8"
)

const reportKeyPrefix = "booking_finance:report:"

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("Connected to %s", cfg.Addr))
	return client, nil
}

// ReportCache keeps the latest full report of each booking for a short TTL.
type ReportCache struct {
	Client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewReportCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *ReportCache {
	return &ReportCache{Client: client, ttl: ttl, logger: log}
}

func reportKey(bookingID int64) string {
	return fmt.Sprintf("%s%d", reportKeyPrefix, bookingID)
}

func (c *ReportCache) GetReport(ctx context.Context, bookingID int64) (*reconciliation.FullReport, error) {
	key := reportKey(bookingID)
	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.LogCache("MISS", key, "no cached report")
		return nil, models.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var report reconciliation.FullReport
	if err := json.Unmarshal(raw, &report); err != nil {
		// Unreadable entries are dropped so the next call recomputes.
		c.Client.Del(ctx, key)
		return nil, fmt.Errorf("%w: corrupt entry %s: %v", models.ErrCacheMiss, key, err)
	}
	return &report, nil
}

func (c *ReportCache) SetReport(ctx context.Context, report *reconciliation.FullReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	key := reportKey(report.BookingID)
	if err := c.Client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return err
	}
	c.logger.LogCache("SET", key, fmt.Sprintf("ttl=%s", c.ttl))
	return nil
}

func (c *ReportCache) InvalidateReport(ctx context.Context, bookingID int64) error {
	key := reportKey(bookingID)
	if err := c.Client.Del(ctx, key).Err(); err != nil {
		return err
	}
	c.logger.LogCache("DEL", key, "invalidated")
	return nil
}
