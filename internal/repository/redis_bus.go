// Package repository provides the Redis, ClickHouse and Kafka backed
// implementations of the domain repository interfaces.
package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	drepo "QuotePulse/internal/domain/repository"
	applogger "QuotePulse/pkg/logger"
)

const busChannelPrefix = "quotes."

// RedisBus is the shared quote bus over Redis pub/sub. Each symbol has
// its own channel so instances only receive traffic for symbols they
// hold listeners for.
type RedisBus struct {
	client *redis.Client
	log    *applogger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

var _ drepo.Bus = (*RedisBus)(nil)

// NewRedisBus creates a bus over an established Redis client.
func NewRedisBus(client *redis.Client, log *applogger.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func busChannel(symbol string) string {
	return busChannelPrefix + symbol
}

func symbolFromChannel(channel string) string {
	return strings.TrimPrefix(channel, busChannelPrefix)
}

// Subscribe joins the symbol's channel. The underlying pub/sub
// connection is created lazily on first use.
func (b *RedisBus) Subscribe(ctx context.Context, symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(ctx)
	}
	return b.pubsub.Subscribe(ctx, busChannel(symbol))
}

// Unsubscribe leaves the symbol's channel.
func (b *RedisBus) Unsubscribe(ctx context.Context, symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub == nil {
		return nil
	}
	return b.pubsub.Unsubscribe(ctx, busChannel(symbol))
}

// Publish sends payload to every instance subscribed to the symbol.
func (b *RedisBus) Publish(ctx context.Context, symbol string, payload []byte) error {
	return b.client.Publish(ctx, busChannel(symbol), payload).Err()
}

// Run relays incoming messages to onMessage until ctx is done. Safe to
// call before any Subscribe: the connection is created on demand.
func (b *RedisBus) Run(ctx context.Context, onMessage func(symbol string, payload []byte)) {
	b.mu.Lock()
	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(ctx)
	}
	ch := b.pubsub.Channel()
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			onMessage(symbolFromChannel(msg.Channel), []byte(msg.Payload))
		}
	}
}

// Close tears down the pub/sub connection.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.pubsub = nil
	return err
}
