package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/redis/go-redis/v9"
)

const pendingPaymentPrefix = "ledger:pending:"

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisPendingPaymentStore keeps push checkout metadata until its callback
// arrives. Entries expire with the configured TTL.
type RedisPendingPaymentStore struct {
	client *redis.Client
}

func NewRedisPendingPaymentStore(client *redis.Client) *RedisPendingPaymentStore {
	return &RedisPendingPaymentStore{client: client}
}

func (s *RedisPendingPaymentStore) Put(ctx context.Context, payment ports.PendingPayment, ttl time.Duration) error {
	raw, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pendingPaymentKey(payment.CheckoutRef), raw, ttl).Err()
}

func (s *RedisPendingPaymentStore) Get(ctx context.Context, checkoutRef string) (ports.PendingPayment, error) {
	raw, err := s.client.Get(ctx, pendingPaymentKey(checkoutRef)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.PendingPayment{}, domain.ErrNotFound
		}
		return ports.PendingPayment{}, err
	}
	var out ports.PendingPayment
	if err := json.Unmarshal(raw, &out); err != nil {
		return ports.PendingPayment{}, fmt.Errorf("decode pending payment %s: %w", checkoutRef, err)
	}
	return out, nil
}

func pendingPaymentKey(checkoutRef string) string {
	return pendingPaymentPrefix + strings.TrimSpace(checkoutRef)
}

var _ ports.PendingPaymentStore = (*RedisPendingPaymentStore)(nil)
