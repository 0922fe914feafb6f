package store

import (
	"sort"
	"sync"
	"time"

	"bookbazaar/pkg/domain"
)

type savedKey struct {
	userID    string
	listingID string
}

// MemoryStore keeps all records in-process. Used in tests and local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	listings      map[string]domain.Listing
	listingOrder  []string
	saved         map[savedKey]domain.SavedEntry
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		listings:      make(map[string]domain.Listing),
		saved:         make(map[savedKey]domain.SavedEntry),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
	}
}

// EnsureUser creates the record unless one exists; the stored record is returned.
func (m *MemoryStore) EnsureUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		return existing, nil
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return u, nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// SetUserRole updates the user role.
func (m *MemoryStore) SetUserRole(id string, role domain.UserRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return true, nil
}

// SubmitKYC replaces the KYC sub-state when the current status allows it.
func (m *MemoryStore) SubmitKYC(id string, kyc domain.KYC, allowedFrom []domain.KYCStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, status := range allowedFrom {
		if u.KYC.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	u.KYC = kyc
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return true, nil
}

// TransitionKYC moves status from -> to when the current status matches.
func (m *MemoryStore) TransitionKYC(id string, from, to domain.KYCStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.KYC.Status != from {
		return false, nil
	}
	u.KYC.Status = to
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return true, nil
}

// ListUsersByKYCStatus returns users filtered by KYC status.
func (m *MemoryStore) ListUsersByKYCStatus(status domain.KYCStatus) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0)
	for _, u := range m.users {
		if u.KYC.Status == status {
			res = append(res, u)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i].KYC.SubmittedAt, res[j].KYC.SubmittedAt
		if a == nil || b == nil {
			return res[i].ID < res[j].ID
		}
		return a.Before(*b)
	})
	return res, nil
}

// CreateListing stores a listing and tracks insertion order.
func (m *MemoryStore) CreateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.listings[l.ID]; !exists {
		m.listingOrder = append(m.listingOrder, l.ID)
	}
	m.listings[l.ID] = l
	return nil
}

// GetListing retrieves a listing.
func (m *MemoryStore) GetListing(id string) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	return l, ok, nil
}

// UpdateListing overwrites the stored listing.
func (m *MemoryStore) UpdateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[l.ID]; ok {
		m.listings[l.ID] = l
	}
	return nil
}

// ListListingsBySeller returns a seller's listings, newest first.
func (m *MemoryStore) ListListingsBySeller(sellerID string) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Listing, 0)
	for i := len(m.listingOrder) - 1; i >= 0; i-- {
		if l, ok := m.listings[m.listingOrder[i]]; ok && l.SellerID == sellerID {
			res = append(res, l)
		}
	}
	return res, nil
}

// ListRecentListings returns the newest listings up to limit.
func (m *MemoryStore) ListRecentListings(limit int) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Listing, 0)
	for i := len(m.listingOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		if l, ok := m.listings[m.listingOrder[i]]; ok {
			res = append(res, l)
		}
	}
	return res, nil
}

// UpsertSaved inserts or refreshes a bookmark.
func (m *MemoryStore) UpsertSaved(e domain.SavedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[savedKey{e.UserID, e.ListingID}] = e
	return nil
}

// DeleteSaved removes a bookmark; missing entries are a no-op.
func (m *MemoryStore) DeleteSaved(userID, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, savedKey{userID, listingID})
	return nil
}

// GetSaved retrieves a bookmark.
func (m *MemoryStore) GetSaved(userID, listingID string) (domain.SavedEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.saved[savedKey{userID, listingID}]
	return e, ok, nil
}

// ListSaved returns a user's bookmarks, newest first.
func (m *MemoryStore) ListSaved(userID string) ([]domain.SavedEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.SavedEntry, 0)
	for key, e := range m.saved {
		if key.userID == userID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SavedAt.After(res[j].SavedAt)
	})
	return res, nil
}

// CreateConversation stores a conversation.
func (m *MemoryStore) CreateConversation(c domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = c
	return nil
}

// GetConversation retrieves a conversation.
func (m *MemoryStore) GetConversation(id string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	return c, ok, nil
}

// FindConversation returns the thread for a buyer/listing pair, if any.
func (m *MemoryStore) FindConversation(buyerID, listingID string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found domain.Conversation
	ok := false
	for _, c := range m.conversations {
		if c.BuyerID != buyerID || c.ListingID != listingID {
			continue
		}
		if !ok || c.CreatedAt.Before(found.CreatedAt) {
			found = c
			ok = true
		}
	}
	return found, ok, nil
}

// ListConversationsByBuyer returns conversations where the user is the buyer.
func (m *MemoryStore) ListConversationsByBuyer(userID string) ([]domain.Conversation, error) {
	return m.listConversations(func(c domain.Conversation) bool { return c.BuyerID == userID }), nil
}

// ListConversationsBySeller returns conversations where the user is the seller.
func (m *MemoryStore) ListConversationsBySeller(userID string) ([]domain.Conversation, error) {
	return m.listConversations(func(c domain.Conversation) bool { return c.SellerID == userID }), nil
}

func (m *MemoryStore) listConversations(match func(domain.Conversation) bool) []domain.Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Conversation, 0)
	for _, c := range m.conversations {
		if match(c) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

// AppendMessage records a message.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	return nil
}

// ListMessages returns messages in append order. limit <= 0 means no limit.
func (m *MemoryStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
