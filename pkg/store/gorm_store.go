package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookbazaar/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ListingModel{},
		&SavedEntryModel{},
		&ConversationModel{},
		&MessageModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// EnsureUser creates the user record unless one already exists for the ID.
// The conditional create avoids duplicate records under concurrent first login;
// the stored record is returned either way.
func (s *GormStore) EnsureUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	stored, ok, err := s.GetUser(u.ID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, errors.New("user record missing after ensure")
	}
	return stored, nil
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetUserRole updates the user role. Returns false when no such user exists.
func (s *GormStore) SetUserRole(id string, role domain.UserRole) (bool, error) {
	res := s.db.Model(&UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"role":       string(role),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SubmitKYC replaces the KYC sub-state only when the current status is one of
// allowedFrom. The guard is enforced at write time, not on a prior read.
func (s *GormStore) SubmitKYC(id string, kyc domain.KYC, allowedFrom []domain.KYCStatus) (bool, error) {
	res := s.db.Model(&UserModel{}).
		Where("id = ? AND kyc_status IN ?", id, statusStrings(allowedFrom)).
		Updates(map[string]any{
			"kyc_status":       string(kyc.Status),
			"kyc_images":       imagesToJSON(kyc.Images),
			"kyc_submitted_at": kyc.SubmittedAt,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionKYC moves the status from -> to as a conditional update so a
// stale decision against an already-decided record changes nothing.
func (s *GormStore) TransitionKYC(id string, from, to domain.KYCStatus) (bool, error) {
	res := s.db.Model(&UserModel{}).
		Where("id = ? AND kyc_status = ?", id, string(from)).
		Updates(map[string]any{
			"kyc_status": string(to),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListUsersByKYCStatus returns users filtered by KYC status, oldest submission first.
func (s *GormStore) ListUsersByKYCStatus(status domain.KYCStatus) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Where("kyc_status = ?", string(status)).
		Order("kyc_submitted_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// CreateListing stores a new listing.
func (s *GormStore) CreateListing(l domain.Listing) error {
	model := listingToModel(l)
	return s.db.Create(&model).Error
}

// GetListing retrieves a listing.
func (s *GormStore) GetListing(id string) (domain.Listing, bool, error) {
	var model ListingModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	return listingFromModel(model), true, nil
}

// UpdateListing overwrites the mutable listing columns.
func (s *GormStore) UpdateListing(l domain.Listing) error {
	return s.db.Model(&ListingModel{}).
		Where("id = ?", l.ID).
		Updates(map[string]any{
			"title":       l.Title,
			"author":      l.Author,
			"condition":   l.Condition,
			"description": l.Description,
			"price_text":  l.PriceText,
			"city":        l.City,
			"images":      imagesToJSON(l.Images),
			"updated_at":  l.UpdatedAt,
		}).Error
}

// ListListingsBySeller returns a seller's listings, newest first.
func (s *GormStore) ListListingsBySeller(sellerID string) ([]domain.Listing, error) {
	return s.listListings(0, "seller_id = ?", sellerID)
}

// ListRecentListings returns the newest listings up to limit.
func (s *GormStore) ListRecentListings(limit int) ([]domain.Listing, error) {
	return s.listListings(limit)
}

func (s *GormStore) listListings(limit int, conds ...any) ([]domain.Listing, error) {
	var models []ListingModel
	tx := s.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// UpsertSaved inserts or refreshes the bookmark snapshot for (user, listing).
func (s *GormStore) UpsertSaved(e domain.SavedEntry) error {
	model := savedToModel(e)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "city", "price_text", "image", "saved_at"}),
	}).Create(&model).Error
}

// DeleteSaved removes the bookmark. Deleting a missing entry is a no-op.
func (s *GormStore) DeleteSaved(userID, listingID string) error {
	return s.db.Delete(&SavedEntryModel{}, "user_id = ? AND listing_id = ?", userID, listingID).Error
}

// GetSaved retrieves a bookmark.
func (s *GormStore) GetSaved(userID, listingID string) (domain.SavedEntry, bool, error) {
	var model SavedEntryModel
	if err := s.db.First(&model, "user_id = ? AND listing_id = ?", userID, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SavedEntry{}, false, nil
		}
		return domain.SavedEntry{}, false, err
	}
	return savedFromModel(model), true, nil
}

// ListSaved returns a user's bookmarks, newest first.
func (s *GormStore) ListSaved(userID string) ([]domain.SavedEntry, error) {
	var models []SavedEntryModel
	if err := s.db.Where("user_id = ?", userID).
		Order("saved_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.SavedEntry, 0, len(models))
	for _, m := range models {
		res = append(res, savedFromModel(m))
	}
	return res, nil
}

// CreateConversation stores a new conversation.
func (s *GormStore) CreateConversation(c domain.Conversation) error {
	model := conversationToModel(c)
	return s.db.Create(&model).Error
}

// GetConversation retrieves a conversation.
func (s *GormStore) GetConversation(id string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// FindConversation returns the existing thread for a buyer/listing pair.
func (s *GormStore) FindConversation(buyerID, listingID string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// ListConversationsByBuyer returns conversations where the user is the buyer, newest first.
func (s *GormStore) ListConversationsByBuyer(userID string) ([]domain.Conversation, error) {
	return s.listConversations("buyer_id = ?", userID)
}

// ListConversationsBySeller returns conversations where the user is the seller, newest first.
func (s *GormStore) ListConversationsBySeller(userID string) ([]domain.Conversation, error) {
	return s.listConversations("seller_id = ?", userID)
}

func (s *GormStore) listConversations(cond string, args ...any) ([]domain.Conversation, error) {
	var models []ConversationModel
	if err := s.db.Where(cond, args...).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		res = append(res, conversationFromModel(m))
	}
	return res, nil
}

// AppendMessage records a message.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns messages in creation order. limit <= 0 means no limit.
func (s *GormStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	var models []MessageModel
	tx := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

func statusStrings(statuses []domain.KYCStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		KYCStatus:      string(u.KYC.Status),
		KYCImages:      imagesToJSON(u.KYC.Images),
		KYCSubmittedAt: u.KYC.SubmittedAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	status := domain.KYCStatus(m.KYCStatus)
	if status == "" {
		status = domain.KYCNone
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		KYC: domain.KYC{
			Status:      status,
			Images:      imagesFromJSON(m.KYCImages),
			SubmittedAt: m.KYCSubmittedAt,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func listingToModel(l domain.Listing) ListingModel {
	return ListingModel{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Author:      l.Author,
		Condition:   l.Condition,
		Description: l.Description,
		PriceText:   l.PriceText,
		City:        l.City,
		Images:      imagesToJSON(l.Images),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	return domain.Listing{
		ID:          m.ID,
		SellerID:    m.SellerID,
		Title:       m.Title,
		Author:      m.Author,
		Condition:   m.Condition,
		Description: m.Description,
		PriceText:   m.PriceText,
		City:        m.City,
		Images:      imagesFromJSON(m.Images),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func savedToModel(e domain.SavedEntry) SavedEntryModel {
	return SavedEntryModel{
		UserID:    e.UserID,
		ListingID: e.ListingID,
		Title:     e.Title,
		Author:    e.Author,
		City:      e.City,
		PriceText: e.PriceText,
		Image:     e.Image,
		SavedAt:   e.SavedAt,
	}
}

func savedFromModel(m SavedEntryModel) domain.SavedEntry {
	return domain.SavedEntry{
		UserID:    m.UserID,
		ListingID: m.ListingID,
		Title:     m.Title,
		Author:    m.Author,
		City:      m.City,
		PriceText: m.PriceText,
		Image:     m.Image,
		SavedAt:   m.SavedAt,
	}
}

func conversationToModel(c domain.Conversation) ConversationModel {
	return ConversationModel{
		ID:        c.ID,
		BuyerID:   c.BuyerID,
		SellerID:  c.SellerID,
		ListingID: c.ListingID,
		CreatedAt: c.CreatedAt,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:        m.ID,
		BuyerID:   m.BuyerID,
		SellerID:  m.SellerID,
		ListingID: m.ListingID,
		CreatedAt: m.CreatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		FromID:         msg.From,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		From:           m.FromID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}
