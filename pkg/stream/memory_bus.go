package stream

import (
	"context"
	"sync"

	"bookbazaar/pkg/domain"
)

// MemoryBus is an in-process Bus for tests and single-instance runs.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[int]chan domain.Message
	next int
}

// NewMemoryBus initializes an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]chan domain.Message)}
}

// Publish delivers the message to every live subscriber of its conversation.
// Subscribers that cannot keep up miss events rather than block the publisher.
func (b *MemoryBus) Publish(_ context.Context, msg domain.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[msg.ConversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber channel for the conversation.
func (b *MemoryBus) Subscribe(ctx context.Context, conversationID string) (<-chan domain.Message, func(), error) {
	ch := make(chan domain.Message, 16)
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[int]chan domain.Message)
	}
	b.subs[conversationID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[conversationID], id)
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		release()
	}()
	return ch, release, nil
}
