package stream

import (
	"context"

	"bookbazaar/pkg/domain"
)

// Bus fans out newly appended conversation messages to live subscribers.
//
// Subscribe returns a receive channel plus a release function. The channel is
// closed when the subscription ends. Release must be called on every exit
// path; calling it more than once is a safe no-op. Ordering within one
// conversation follows publish order.
type Bus interface {
	Publish(ctx context.Context, msg domain.Message) error
	Subscribe(ctx context.Context, conversationID string) (<-chan domain.Message, func(), error)
}
