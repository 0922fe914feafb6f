package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID             string    `gorm:"primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	PasswordHash   string    `gorm:"not null"`
	Role           string    `gorm:"not null"`
	KYCStatus      string    `gorm:"not null;default:none"`
	KYCImages      datatypes.JSON
	KYCSubmittedAt *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type ListingModel struct {
	ID          string         `gorm:"primaryKey"`
	SellerID    string         `gorm:"not null;index"`
	Title       string         `gorm:"not null"`
	Author      string         `gorm:"not null"`
	Condition   string         `gorm:"not null"`
	Description string         `gorm:"not null"`
	PriceText   string         `gorm:"not null"`
	City        string         `gorm:"not null"`
	Images      datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type SavedEntryModel struct {
	UserID    string    `gorm:"primaryKey"`
	ListingID string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Author    string    `gorm:"not null"`
	City      string    `gorm:"not null"`
	PriceText string    `gorm:"not null"`
	Image     string
	SavedAt   time.Time `gorm:"not null;index"`
}

type ConversationModel struct {
	ID        string    `gorm:"primaryKey"`
	BuyerID   string    `gorm:"not null;index"`
	SellerID  string    `gorm:"not null;index"`
	ListingID string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID             string    `gorm:"primaryKey"`
	ConversationID string    `gorm:"not null;index"`
	FromID         string    `gorm:"not null"`
	Text           string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func imagesToJSON(images []string) datatypes.JSON {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func imagesFromJSON(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var images []string
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil
	}
	return images
}
