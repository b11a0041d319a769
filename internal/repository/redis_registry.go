package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	drepo "QuotePulse/internal/domain/repository"
	applogger "QuotePulse/pkg/logger"
)

const (
	registryKeyPrefix = "active:"
	registryTTL       = 30 * time.Second
)

// RedisRegistry tracks fleet-wide symbol interest. Each instance owns
// one Redis set keyed by its instance ID with a TTL refreshed by
// Heartbeat, so a crashed instance's contribution expires on its own.
// ActiveSymbols unions the sets of every live instance, which keeps one
// instance's unsubscribe from masking another instance's interest.
type RedisRegistry struct {
	client     *redis.Client
	log        *applogger.Logger
	instanceID string
}

var _ drepo.SymbolRegistry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a registry with a fresh random instance ID.
func NewRedisRegistry(client *redis.Client, log *applogger.Logger) *RedisRegistry {
	return &RedisRegistry{
		client:     client,
		log:        log,
		instanceID: uuid.NewString(),
	}
}

// InstanceID exposes this instance's registry identity, mainly for
// diagnostics.
func (r *RedisRegistry) InstanceID() string {
	return r.instanceID
}

func (r *RedisRegistry) key() string {
	return registryKeyPrefix + r.instanceID
}

// Add records this instance's interest in symbol.
func (r *RedisRegistry) Add(ctx context.Context, symbol string) error {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.key(), symbol)
	pipe.Expire(ctx, r.key(), registryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry add %s: %w", symbol, err)
	}
	return nil
}

// Remove drops this instance's interest in symbol. Other instances'
// entries are untouched.
func (r *RedisRegistry) Remove(ctx context.Context, symbol string) error {
	if err := r.client.SRem(ctx, r.key(), symbol).Err(); err != nil {
		return fmt.Errorf("registry remove %s: %w", symbol, err)
	}
	return nil
}

// Heartbeat extends this instance's entry TTL. Entries of instances
// that stop heartbeating expire and fall out of ActiveSymbols.
func (r *RedisRegistry) Heartbeat(ctx context.Context) error {
	if err := r.client.Expire(ctx, r.key(), registryTTL).Err(); err != nil {
		return fmt.Errorf("registry heartbeat: %w", err)
	}
	return nil
}

// ActiveSymbols returns the sorted union of every live instance's
// symbol set.
func (r *RedisRegistry) ActiveSymbols(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, registryKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("registry scan: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	symbols, err := r.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("registry union: %w", err)
	}
	sort.Strings(symbols)
	return symbols, nil
}
