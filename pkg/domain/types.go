package domain

import "time"

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleSeller UserRole = "seller"
	RoleAdmin  UserRole = "admin"
)

// ValidRole reports whether the role is one of the closed role set.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type KYCStatus string

const (
	KYCNone     KYCStatus = "none"
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// KYC is the per-user verification sub-state. A user with no recorded KYC
// is treated as KYCNone everywhere.
type KYC struct {
	Status      KYCStatus  `json:"status"`
	Images      []string   `json:"images,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	KYC          KYC       `json:"kyc"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CanCreateListing is the single authorization policy for listing creation:
// an approved-KYC seller. Every gate goes through this, not ad hoc role checks.
func (u User) CanCreateListing() bool {
	return u.Role == RoleSeller && u.KYC.Status == KYCApproved
}

type Listing struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	PriceText   string    `json:"priceText"`
	City        string    `json:"city"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListingFields carries the editable text fields of a listing.
type ListingFields struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	PriceText   string `json:"priceText"`
	City        string `json:"city"`
}

// SavedEntry is a per-user bookmark holding a denormalized snapshot of the
// listing at save time. It is not refreshed when the listing changes.
type SavedEntry struct {
	UserID    string    `json:"userId"`
	ListingID string    `json:"listingId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	City      string    `json:"city"`
	PriceText string    `json:"priceText"`
	Image     string    `json:"image,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
}

// Conversation is a message thread between one buyer and one seller about
// one listing.
type Conversation struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	SellerID  string    `json:"sellerId"`
	ListingID string    `json:"listingId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Participant reports whether the user is the buyer or seller side.
func (c Conversation) Participant(userID string) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	From           string    `json:"from"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}
