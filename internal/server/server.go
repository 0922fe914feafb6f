package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bookbazaar/internal/app"
	"bookbazaar/internal/ratelimit"
	"bookbazaar/internal/util"
	"bookbazaar/pkg/domain"
	"bookbazaar/pkg/storage"
)

const maxJSONBody = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Uploads        storage.ObjectStore
	AuthLimiter    *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes the marketplace HTTP API.
type Server struct {
	app            *app.App
	uploads        storage.ObjectStore
	authLimiter    *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	s := &Server{
		app:            cfg.App,
		uploads:        cfg.Uploads,
		authLimiter:    cfg.AuthLimiter,
		trustedProxies: cfg.TrustedProxies,
		maxUploadBytes: maxUpload,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/auth/signup", s.rateLimited(s.handleSignup))
	s.mux.HandleFunc("/api/auth/login", s.rateLimited(s.handleLogin))
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.withUser(s.handleMe))

	s.mux.Handle("/api/kyc", s.withUser(s.handleSubmitKYC))
	s.mux.Handle("/api/admin/kyc", s.withUser(s.handlePendingKYC))
	s.mux.Handle("/api/admin/kyc/", s.withUser(s.handleDecideKYC))
	s.mux.Handle("/api/admin/users/", s.withUser(s.handleSetRole))

	s.mux.HandleFunc("/api/listings", s.handleListings)
	s.mux.HandleFunc("/api/listings/", s.handleListingByID)

	s.mux.Handle("/api/saved", s.withUser(s.handleListSaved))
	s.mux.Handle("/api/saved/", s.withUser(s.handleSavedByID))

	s.mux.Handle("/api/chats", s.withUser(s.handleChats))
	s.mux.Handle("/api/chats/", s.withUser(s.handleChatByID))

	s.mux.Handle("/api/uploads", s.withUser(s.handleUpload))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string, domain.User)

// withUser authenticates the bearer token and resolves the user record
// before calling the handler.
func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, token, user)
	})
}

// rateLimited applies the per-IP auth quota before calling the handler.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	if s.authLimiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := util.ClientIP(r, s.trustedProxies)
		if !s.authLimiter.Allow(ip) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type kycSubmitRequest struct {
	Images []string `json:"images"`
}

func (s *Server) handleSubmitKYC(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req kycSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.SubmitKYC(user, req.Images)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePendingKYC(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListPendingKYC(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type kycDecisionRequest struct {
	Outcome string `json:"outcome"`
}

func (s *Server) handleDecideKYC(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	targetID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/kyc/"), "/")
	if targetID == "" || strings.Contains(targetID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req kycDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.DecideKYC(user, targetID, domain.KYCStatus(req.Outcome))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request, _ string, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	targetID, action, found := strings.Cut(rest, "/")
	if !found || action != "role" || targetID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req setRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.SetRole(user, targetID, domain.UserRole(req.Role))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrEmailAndPasswordRequired):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, app.ErrUnauthorized),
		errors.Is(err, app.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		msg = err.Error()
	case errors.Is(err, app.ErrForbidden),
		errors.Is(err, app.ErrSelfContact):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, app.ErrEmailAlreadyExists),
		errors.Is(err, app.ErrKYCAlreadyPending),
		errors.Is(err, app.ErrKYCAlreadyApproved),
		errors.Is(err, app.ErrKYCInvalidTransition):
		status = http.StatusConflict
		msg = err.Error()
	}
	writeError(w, status, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
