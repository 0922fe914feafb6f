package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"bookbazaar/pkg/domain"
)

const channelPrefix = "chat:"

// RedisBus implements Bus over Redis pub/sub, one channel per conversation.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects a pub/sub bus to Redis.
func NewRedisBus(addr, password string) *RedisBus {
	return &RedisBus{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Publish sends the message to the conversation channel.
func (b *RedisBus) Publish(ctx context.Context, msg domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+msg.ConversationID, payload).Err(); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Subscribe starts a live subscription on the conversation channel.
// The returned release function closes the underlying pub/sub connection and
// the channel; it is idempotent and also runs when ctx is canceled.
func (b *RedisBus) Subscribe(ctx context.Context, conversationID string) (<-chan domain.Message, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelPrefix+conversationID)
	// Confirm the subscription before handing out the channel so a publish
	// immediately after Subscribe returns is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe conversation: %w", err)
	}

	out := make(chan domain.Message)
	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				release()
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg domain.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					slog.Warn("drop undecodable message event", "channel", raw.Channel, "err", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					release()
					return
				}
			}
		}
	}()

	return out, release, nil
}
