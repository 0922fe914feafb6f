package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bookbazaar/internal/util"
	"bookbazaar/pkg/domain"
)

// StartConversation opens (or returns) the thread between the caller and the
// seller of a listing. A buyer contacting the same listing twice gets the
// existing thread back instead of a duplicate. A fresh thread starts with a
// greeting message from the buyer.
func (a *App) StartConversation(buyer domain.User, listingID string) (domain.Conversation, error) {
	if buyer.ID == "" {
		return domain.Conversation{}, ErrUnauthorized
	}
	listing, ok, err := a.store.GetListing(listingID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("fetch listing: %w", err)
	}
	if !ok {
		return domain.Conversation{}, ErrNotFound
	}
	if buyer.ID == listing.SellerID {
		return domain.Conversation{}, ErrSelfContact
	}

	existing, found, err := a.store.FindConversation(buyer.ID, listingID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("find conversation: %w", err)
	}
	if found {
		return existing, nil
	}

	conversation := domain.Conversation{
		ID:        util.NewID(),
		BuyerID:   buyer.ID,
		SellerID:  listing.SellerID,
		ListingID: listing.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateConversation(conversation); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	greeting := fmt.Sprintf("Hi, I'm interested in %q. Is it still available?", listing.Title)
	if _, err := a.appendMessage(conversation, buyer.ID, greeting); err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// SendMessage appends a message to the conversation. Only the buyer or the
// seller may write; the timestamp is assigned here, never taken from the
// client.
func (a *App) SendMessage(from domain.User, conversationID, text string) (domain.Message, error) {
	if from.ID == "" {
		return domain.Message{}, ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: message text is required", ErrValidation)
	}
	conversation, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return domain.Message{}, ErrNotFound
	}
	if !conversation.Participant(from.ID) {
		return domain.Message{}, ErrForbidden
	}
	return a.appendMessage(conversation, from.ID, text)
}

func (a *App) appendMessage(conversation domain.Conversation, fromID, text string) (domain.Message, error) {
	msg := domain.Message{
		ID:             util.NewID(),
		ConversationID: conversation.ID,
		From:           fromID,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.AppendMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	// Fan-out is best effort; subscribers recover missed events by
	// re-reading history on resubscribe.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.bus.Publish(ctx, msg); err != nil {
		slog.Warn("publish message event", "conversation_id", conversation.ID, "err", err)
	}
	return msg, nil
}

// ListConversations returns every thread where the user is buyer or seller,
// de-duplicated, newest first. Both sides are queried in parallel.
func (a *App) ListConversations(user domain.User) ([]domain.Conversation, error) {
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	var asBuyer, asSeller []domain.Conversation
	var g errgroup.Group
	g.Go(func() error {
		var err error
		asBuyer, err = a.store.ListConversationsByBuyer(user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		asSeller, err = a.store.ListConversationsBySeller(user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	seen := make(map[string]bool, len(asBuyer)+len(asSeller))
	merged := make([]domain.Conversation, 0, len(asBuyer)+len(asSeller))
	for _, c := range append(asBuyer, asSeller...) {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// ListMessages returns the conversation history in creation order.
// Participants only.
func (a *App) ListMessages(user domain.User, conversationID string, limit int) ([]domain.Message, error) {
	conversation, err := a.participantConversation(user, conversationID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	messages, err := a.store.ListMessages(conversation.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// StreamMessages opens a live subscription on the conversation. The returned
// release function must be called on every exit path; releasing twice is a
// safe no-op, and the subscription also ends when ctx is canceled.
// Participants only.
func (a *App) StreamMessages(ctx context.Context, user domain.User, conversationID string) (<-chan domain.Message, func(), error) {
	conversation, err := a.participantConversation(user, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return a.bus.Subscribe(ctx, conversation.ID)
}

func (a *App) participantConversation(user domain.User, conversationID string) (domain.Conversation, error) {
	if user.ID == "" {
		return domain.Conversation{}, ErrUnauthorized
	}
	conversation, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return domain.Conversation{}, ErrNotFound
	}
	if !conversation.Participant(user.ID) {
		return domain.Conversation{}, ErrForbidden
	}
	return conversation, nil
}
