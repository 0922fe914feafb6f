package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"bookbazaar/pkg/domain"
)

func TestChatStreamDeliversServerSentEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	buyer, buyerToken := env.signup(t, "stream-buyer@example.com")
	seller, sellerToken := env.signup(t, "stream-seller@example.com")

	conversation := domain.Conversation{
		ID:        "conv-stream",
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		ListingID: "listing-stream",
		CreatedAt: time.Now().UTC(),
	}
	if err := env.mem.CreateConversation(conversation); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		env.srv.URL+"/api/chats/"+conversation.ID+"/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	if status := env.doJSON(t, http.MethodPost, "/api/chats/"+conversation.ID+"/messages", sellerToken,
		map[string]string{"text": "streamed hello"}, nil); status != http.StatusCreated {
		t.Fatalf("send message: status %d", status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if msg.Text != "streamed hello" || msg.From != seller.ID {
			t.Fatalf("unexpected event: %+v", msg)
		}
		return
	}
	t.Fatalf("stream ended without delivering the message: %v", scanner.Err())
}

func TestChatStreamForbiddenForNonParticipant(t *testing.T) {
	env := newTestEnv(t, nil)
	buyer, _ := env.signup(t, "stream2-buyer@example.com")
	seller, _ := env.signup(t, "stream2-seller@example.com")
	_, strangerToken := env.signup(t, "stream2-stranger@example.com")

	conversation := domain.Conversation{
		ID:        "conv-stream2",
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		ListingID: "listing-stream2",
		CreatedAt: time.Now().UTC(),
	}
	if err := env.mem.CreateConversation(conversation); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	if status := env.doJSON(t, http.MethodGet, "/api/chats/"+conversation.ID+"/stream", strangerToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("stranger stream: status %d", status)
	}
}
