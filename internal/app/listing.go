package app

import (
	"fmt"
	"strings"
	"time"

	"bookbazaar/internal/util"
	"bookbazaar/pkg/domain"
)

const (
	defaultRecentLimit = 24
	maxRecentLimit     = 100
)

// CreateListing publishes a new listing owned by the caller. Creation is
// gated on the single policy domain.User.CanCreateListing (approved-KYC
// seller); every required text field and at least one image are mandatory.
func (a *App) CreateListing(user domain.User, fields domain.ListingFields, images []string) (domain.Listing, error) {
	if user.ID == "" {
		return domain.Listing{}, ErrUnauthorized
	}
	if !user.CanCreateListing() {
		return domain.Listing{}, fmt.Errorf("%w: only verified sellers can create listings", ErrForbidden)
	}
	if err := validateListingInput(fields, images); err != nil {
		return domain.Listing{}, err
	}

	now := time.Now().UTC()
	listing := domain.Listing{
		ID:          util.NewID(),
		SellerID:    user.ID,
		Title:       strings.TrimSpace(fields.Title),
		Author:      strings.TrimSpace(fields.Author),
		Condition:   strings.TrimSpace(fields.Condition),
		Description: strings.TrimSpace(fields.Description),
		PriceText:   strings.TrimSpace(fields.PriceText),
		City:        strings.TrimSpace(fields.City),
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateListing(listing); err != nil {
		return domain.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	return listing, nil
}

// UpdateListing replaces the editable fields of an existing listing. Only the
// owning seller may edit; a nil images slice keeps the current images. A
// failed validation leaves the stored listing untouched.
func (a *App) UpdateListing(editor domain.User, listingID string, fields domain.ListingFields, images []string) (domain.Listing, error) {
	if editor.ID == "" {
		return domain.Listing{}, ErrUnauthorized
	}
	listing, ok, err := a.store.GetListing(listingID)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("fetch listing: %w", err)
	}
	if !ok {
		return domain.Listing{}, ErrNotFound
	}
	if listing.SellerID != editor.ID {
		return domain.Listing{}, ErrForbidden
	}
	if images == nil {
		images = listing.Images
	}
	if err := validateListingInput(fields, images); err != nil {
		return domain.Listing{}, err
	}

	listing.Title = strings.TrimSpace(fields.Title)
	listing.Author = strings.TrimSpace(fields.Author)
	listing.Condition = strings.TrimSpace(fields.Condition)
	listing.Description = strings.TrimSpace(fields.Description)
	listing.PriceText = strings.TrimSpace(fields.PriceText)
	listing.City = strings.TrimSpace(fields.City)
	listing.Images = images
	listing.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateListing(listing); err != nil {
		return domain.Listing{}, fmt.Errorf("update listing: %w", err)
	}
	return listing, nil
}

// GetListing retrieves a single listing.
func (a *App) GetListing(id string) (domain.Listing, error) {
	listing, ok, err := a.store.GetListing(id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("fetch listing: %w", err)
	}
	if !ok {
		return domain.Listing{}, ErrNotFound
	}
	return listing, nil
}

// ListBySeller returns a seller's listings, newest first.
func (a *App) ListBySeller(sellerID string) ([]domain.Listing, error) {
	listings, err := a.store.ListListingsBySeller(sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller listings: %w", err)
	}
	return listings, nil
}

// ListRecent returns the newest listings up to limit.
func (a *App) ListRecent(limit int) ([]domain.Listing, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = defaultRecentLimit
	}
	listings, err := a.store.ListRecentListings(limit)
	if err != nil {
		return nil, fmt.Errorf("list recent listings: %w", err)
	}
	return listings, nil
}

func validateListingInput(fields domain.ListingFields, images []string) error {
	required := map[string]string{
		"title":       fields.Title,
		"author":      fields.Author,
		"condition":   fields.Condition,
		"description": fields.Description,
		"priceText":   fields.PriceText,
		"city":        fields.City,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, name)
		}
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrValidation)
	}
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			return fmt.Errorf("%w: empty image URL", ErrValidation)
		}
	}
	return nil
}
