package store

import "bookbazaar/pkg/domain"

// Store defines persistence operations for users, listings, saved entries,
// and conversations.
type Store interface {
	// users
	EnsureUser(domain.User) (domain.User, error)
	GetUser(id string) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	HasUserEmail(email string) (bool, error)
	SetUserRole(id string, role domain.UserRole) (bool, error)
	SubmitKYC(id string, kyc domain.KYC, allowedFrom []domain.KYCStatus) (bool, error)
	TransitionKYC(id string, from, to domain.KYCStatus) (bool, error)
	ListUsersByKYCStatus(status domain.KYCStatus) ([]domain.User, error)

	// listings
	CreateListing(domain.Listing) error
	GetListing(id string) (domain.Listing, bool, error)
	UpdateListing(domain.Listing) error
	ListListingsBySeller(sellerID string) ([]domain.Listing, error)
	ListRecentListings(limit int) ([]domain.Listing, error)

	// saved entries
	UpsertSaved(domain.SavedEntry) error
	DeleteSaved(userID, listingID string) error
	GetSaved(userID, listingID string) (domain.SavedEntry, bool, error)
	ListSaved(userID string) ([]domain.SavedEntry, error)

	// conversations
	CreateConversation(domain.Conversation) error
	GetConversation(id string) (domain.Conversation, bool, error)
	FindConversation(buyerID, listingID string) (domain.Conversation, bool, error)
	ListConversationsByBuyer(userID string) ([]domain.Conversation, error)
	ListConversationsBySeller(userID string) ([]domain.Conversation, error)
	AppendMessage(domain.Message) error
	ListMessages(conversationID string, limit int) ([]domain.Message, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
