// Package events fans out job mutation notices to watchers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/cloo-solutions/movewise/internal/domain"
)

const subscriberBuffer = 16

// Broker is an in-process publisher and subscriber.
// Slow subscribers miss notices rather than block publishers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.JobUpdate]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan domain.JobUpdate]struct{})}
}

func (b *Broker) Publish(ctx context.Context, u domain.JobUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[u.JobID] {
		select {
		case ch <- u:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of updates for jobID and a cancel func that closes it.
func (b *Broker) Subscribe(ctx context.Context, jobID string) (<-chan domain.JobUpdate, func(), error) {
	ch := make(chan domain.JobUpdate, subscriberBuffer)
	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan domain.JobUpdate]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[jobID], ch)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// RedisBroker publishes on one Redis channel per job so every replica's watchers wake up.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channelName(jobID string) string {
	return "movewise:jobs:" + jobID
}

func (b *RedisBroker) Publish(ctx context.Context, u domain.JobUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelName(u.JobID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, jobID string) (<-chan domain.JobUpdate, func(), error) {
	ps := b.client.Subscribe(ctx, channelName(jobID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to job %s: %w", jobID, err)
	}

	out := make(chan domain.JobUpdate, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var u domain.JobUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				log.Printf("events: dropping malformed update on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- u:
			default:
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return out, cancel, nil
}
