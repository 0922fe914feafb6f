package app

import (
	"fmt"
	"time"

	"bookbazaar/pkg/domain"
)

// SaveListing bookmarks a listing for the user, storing a denormalized
// snapshot of the listing at save time. Saving an already-saved listing
// refreshes the snapshot; it is not an error.
func (a *App) SaveListing(user domain.User, listingID string) (domain.SavedEntry, error) {
	if user.ID == "" {
		return domain.SavedEntry{}, ErrUnauthorized
	}
	listing, ok, err := a.store.GetListing(listingID)
	if err != nil {
		return domain.SavedEntry{}, fmt.Errorf("fetch listing: %w", err)
	}
	if !ok {
		return domain.SavedEntry{}, ErrNotFound
	}
	entry := domain.SavedEntry{
		UserID:    user.ID,
		ListingID: listing.ID,
		Title:     listing.Title,
		Author:    listing.Author,
		City:      listing.City,
		PriceText: listing.PriceText,
		SavedAt:   time.Now().UTC(),
	}
	if len(listing.Images) > 0 {
		entry.Image = listing.Images[0]
	}
	if err := a.store.UpsertSaved(entry); err != nil {
		return domain.SavedEntry{}, fmt.Errorf("save listing: %w", err)
	}
	return entry, nil
}

// UnsaveListing removes the bookmark. Removing a listing that was never
// saved is a no-op, not an error.
func (a *App) UnsaveListing(user domain.User, listingID string) error {
	if user.ID == "" {
		return ErrUnauthorized
	}
	if err := a.store.DeleteSaved(user.ID, listingID); err != nil {
		return fmt.Errorf("unsave listing: %w", err)
	}
	return nil
}

// IsSaved reports whether the user bookmarked the listing.
func (a *App) IsSaved(user domain.User, listingID string) (bool, error) {
	if user.ID == "" {
		return false, ErrUnauthorized
	}
	_, ok, err := a.store.GetSaved(user.ID, listingID)
	if err != nil {
		return false, fmt.Errorf("check saved: %w", err)
	}
	return ok, nil
}

// ListSaved returns the user's bookmarks, newest first. Snapshots may be
// stale relative to the source listing; that is accepted.
func (a *App) ListSaved(user domain.User) ([]domain.SavedEntry, error) {
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	entries, err := a.store.ListSaved(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list saved: %w", err)
	}
	return entries, nil
}
