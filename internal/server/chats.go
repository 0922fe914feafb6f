package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookbazaar/pkg/domain"
)

const streamHeartbeat = 25 * time.Second

type startConversationRequest struct {
	ListingID string `json:"listingId"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		conversations, err := s.app.ListConversations(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conversations)
	case http.MethodPost:
		var req startConversationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		conversation, err := s.app.StartConversation(user, req.ListingID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conversation)
	default:
		methodNotAllowed(w)
	}
}

// handleChatByID dispatches the per-conversation subroutes:
// /api/chats/{id}/messages and /api/chats/{id}/stream.
func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chats/"), "/")
	conversationID, action, _ := strings.Cut(rest, "/")
	if conversationID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch action {
	case "messages":
		s.handleChatMessages(w, r, user, conversationID)
	case "stream":
		s.handleChatStream(w, r, user, conversationID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request, user domain.User, conversationID string) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		messages, err := s.app.ListMessages(user, conversationID, limit)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	case http.MethodPost:
		var req sendMessageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		msg, err := s.app.SendMessage(user, conversationID, req.Text)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	default:
		methodNotAllowed(w)
	}
}

// handleChatStream pushes new messages over Server-Sent Events until the
// client disconnects.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, user domain.User, conversationID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	messages, release, err := s.app.StreamMessages(r.Context(), user, conversationID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-messages:
			if !open {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
