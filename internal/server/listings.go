package server

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"bookbazaar/internal/util"
	"bookbazaar/pkg/domain"
)

type listingRequest struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Condition   string   `json:"condition"`
	Description string   `json:"description"`
	PriceText   string   `json:"priceText"`
	City        string   `json:"city"`
	Images      []string `json:"images"`
}

func (r listingRequest) fields() domain.ListingFields {
	return domain.ListingFields{
		Title:       r.Title,
		Author:      r.Author,
		Condition:   r.Condition,
		Description: r.Description,
		PriceText:   r.PriceText,
		City:        r.City,
	}
}

// handleListings serves the collection endpoint. Reads are public; creating
// a listing requires an authenticated, verified seller.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if sellerID := r.URL.Query().Get("sellerId"); sellerID != "" {
			listings, err := s.app.ListBySeller(sellerID)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, listings)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		listings, err := s.app.ListRecent(limit)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listings)
	case http.MethodPost:
		user, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		var req listingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		listing, err := s.app.CreateListing(user, req.fields(), req.Images)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, listing)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	listingID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/listings/"), "/")
	if listingID == "" || strings.Contains(listingID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		listing, err := s.app.GetListing(listingID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	case http.MethodPut:
		user, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		var req listingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		listing, err := s.app.UpdateListing(user, listingID, req.fields(), req.Images)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.ListSaved(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSavedByID(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	listingID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/saved/"), "/")
	if listingID == "" || strings.Contains(listingID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		entry, err := s.app.SaveListing(user, listingID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := s.app.UnsaveListing(user, listingID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		saved, err := s.app.IsSaved(user, listingID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
	default:
		methodNotAllowed(w)
	}
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// handleUpload accepts a multipart file and stores it in object storage.
// Keys are namespaced per user so callers cannot overwrite each other.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s%s", user.ID, util.NewID(), safeExt(header))
	url, err := s.uploads.Put(r.Context(), key, file, header.Size, uploadContentType(header))
	if err != nil {
		slog.Error("object upload failed", "key", key, "err", err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url, Key: key})
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func safeExt(header *multipart.FileHeader) string {
	ext := strings.ToLower(path.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf":
		return ext
	}
	return ""
}

// authenticate resolves the bearer token on routes where only some methods
// require auth.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	user, err := s.app.Authenticate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	return user, true
}
