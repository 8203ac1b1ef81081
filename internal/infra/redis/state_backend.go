// Package redis persists the shared records in Redis and relays change
// notifications between server processes over pub/sub.
package redis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "engtest:state:"
	changeChannel = "engtest:changes"
)

// StateBackend implements memory.Backend on Redis. Every write publishes
// {instanceID, key} so other processes can refresh their working copy; a
// process ignores its own publications.
type StateBackend struct {
	client     *redis.Client
	instanceID string
}

func NewStateBackend(client *redis.Client) *StateBackend {
	return &StateBackend{
		client:     client,
		instanceID: uuid.NewString(),
	}
}

func (b *StateBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := b.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

func (b *StateBackend) Save(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	b.announce(ctx, key)
	return nil
}

func (b *StateBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	b.announce(ctx, key)
	return nil
}

func (b *StateBackend) announce(ctx context.Context, key string) {
	// best-effort: a missed notification only delays a refresh
	if err := b.client.Publish(ctx, changeChannel, b.instanceID+" "+key).Err(); err != nil {
		log.Printf("publish change for %s: %v", key, err)
	}
}

// Watch subscribes to change announcements from other processes. The
// returned channel carries changed key names; the cancel function releases
// the subscription.
func (b *StateBackend) Watch(ctx context.Context) (<-chan string, func()) {
	sub := b.client.Subscribe(ctx, changeChannel)
	keys := make(chan string, 8)

	go func() {
		defer close(keys)
		for msg := range sub.Channel() {
			instanceID, key, ok := strings.Cut(msg.Payload, " ")
			if !ok || instanceID == b.instanceID {
				continue
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return keys, cancel
}
