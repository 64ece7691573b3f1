// Package apitest runs an in-memory stand-in for the events REST backend.
//
// It implements the endpoints the client consumes with just enough
// behaviour to exercise it end to end: bcrypt-checked logins, HS256 access
// tokens with a configurable lifetime, rotating refresh tokens, role-checked
// event edits and a fake checkout provider. Tests seed it directly, inject
// failures with FailNext and assert on per-route call counts.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	models.User
	FirstName string
	LastName  string
	hash      []byte
}

type member struct {
	role string
}

type failure struct {
	status  int
	message string
}

type Server struct {
	*httptest.Server

	mu sync.Mutex

	secret         []byte
	accessTTL      time.Duration
	generation     int64
	refreshTokens  map[string]int64
	nextID         int64
	users          map[int64]*user
	teams          map[int64]*models.Team
	members        map[int64]map[int64]*member
	events         map[int64]*models.Event
	categories     []models.Category
	registrations  map[int64]*models.Registration
	tickets        map[int64]*models.Ticket
	sessions       map[string]*models.CheckoutSession
	sessionsByUser map[string]int64
	calls          map[string]int
	failures       map[string][]failure
}

// NewServer starts a fake backend. Call Close when done (t.Cleanup).
func NewServer() *Server {
	s := &Server{
		secret:         []byte("apitest-secret"),
		accessTTL:      15 * time.Minute,
		refreshTokens:  make(map[string]int64),
		users:          make(map[int64]*user),
		teams:          make(map[int64]*models.Team),
		members:        make(map[int64]map[int64]*member),
		events:         make(map[int64]*models.Event),
		registrations:  make(map[int64]*models.Registration),
		tickets:        make(map[int64]*models.Ticket),
		sessions:       make(map[string]*models.CheckoutSession),
		sessionsByUser: make(map[string]int64),
		calls:          make(map[string]int),
		failures:       make(map[string][]failure),
		categories: []models.Category{
			{ID: 1, Name: "Conference"},
			{ID: 2, Name: "Meetup"},
			{ID: 3, Name: "Workshop"},
		},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countCalls)
	r.Use(s.injectFailures)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refresh-token", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.optionalAuth)
		r.Get("/events", s.handleListEvents)
		r.Get("/events/categories", s.handleCategories)
		r.Get("/events/{id}", s.handleGetEvent)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/users/{id}/is-site-admin", s.handleIsSiteAdmin)
		r.Post("/users", s.handleCreateUser)
		r.Patch("/users/{id}", s.handleUpdateUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
		r.Get("/admin/dashboard", s.handleDashboard)

		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/draft", s.handleDraftEvents)
		r.Get("/events/past", s.handlePastEvents)
		r.Get("/events/team/{teamId}", s.handleTeamEvents)
		r.Patch("/events/{id}", s.handleUpdateEvent)
		r.Delete("/events/{id}", s.handleDeleteEvent)
		r.Post("/events/{id}/register", s.handleRegisterForEvent)
		r.Get("/events/{id}/registrations", s.handleEventRegistrations)
		r.Post("/events/registrations/{id}/cancel", s.handleCancelRegistration)

		r.Get("/teams", s.handleListTeams)
		r.Post("/teams", s.handleCreateTeam)
		r.Get("/teams/{id}", s.handleGetTeam)
		r.Patch("/teams/{id}", s.handleUpdateTeam)
		r.Delete("/teams/{id}", s.handleDeleteTeam)
		r.Get("/teams/{id}/members", s.handleTeamMembers)
		r.Post("/teams/{id}/members", s.handleAddMember)
		r.Patch("/teams/{id}/members/{userId}", s.handleUpdateMember)
		r.Delete("/teams/{id}/members/{userId}", s.handleRemoveMember)
		r.Get("/teams/members/user/{userId}", s.handleMembershipsForUser)

		r.Get("/tickets", s.handleListTickets)
		r.Post("/tickets", s.handleCreateTicket)
		r.Patch("/tickets/{id}", s.handleUpdateTicket)
		r.Delete("/tickets/{id}", s.handleDeleteTicket)
		r.Get("/tickets/verify/{code}", s.handleVerifyTicket)
		r.Post("/tickets/use/{code}", s.handleUseTicket)

		r.Post("/stripe/create-checkout-session", s.handleCreateCheckout)
		r.Get("/stripe/checkout-sessions/{id}", s.handleGetCheckout)
		r.Post("/stripe/sync-payment/{id}", s.handleSyncPayment)
	})

	return r
}

// ---- instrumentation ----

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.mu.Lock()
		s.calls[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests matched the route, e.g.
// Calls("GET", "/users/{id}"). Requests answered by FailNext never reach the
// router and are counted under their concrete path.
func (s *Server) Calls(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+pattern]
}

// TotalCalls returns the number of requests served so far.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes every call counter.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// FailNext makes the next request to method+path (a concrete path, not a
// pattern) fail with status. An empty message produces a body without one.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

// ---- auth ----

// SetAccessTTL changes the lifetime of access tokens issued from now on.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = d
}

// RevokeAccessTokens invalidates every access token issued so far, forcing
// clients through the refresh path.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]int64)
}

// IssueAccessToken returns a valid access token for userID.
func (s *Server) IssueAccessToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueAccessLocked(userID)
}

// accessClaims carries the revocation generation the token was issued in.
type accessClaims struct {
	jwt.RegisteredClaims
	Generation int64 `json:"gen"`
}

func (s *Server) issueAccessLocked(userID int64) string {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        mustRandHex(8),
		},
		Generation: s.generation,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) issueRefreshLocked(userID int64) string {
	rt := mustRandHex(24)
	s.refreshTokens[rt] = userID
	return rt
}

type ctxKey struct{}

func (s *Server) authenticate(r *http.Request) (int64, bool) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	raw, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || raw == "" {
		return 0, false
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, false
	}

	s.mu.Lock()
	revoked := claims.Generation < s.generation
	s.mu.Unlock()
	if revoked {
		return 0, false
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r, id)))
	})
}

func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.authenticate(r); ok {
			r = r.WithContext(withUserID(r, id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username != req.Username && u.Email != req.Username {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
			break
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  s.issueAccessLocked(u.ID),
			"refreshToken": s.issueRefreshLocked(u.ID),
			"user": map[string]any{
				"id":       u.ID,
				"username": u.Username,
				"email":    u.Email,
			},
		})
		return
	}
	writeError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
	}
	u := s.addUserLocked(req.Username, req.Email, req.Password, false)
	u.FirstName, u.LastName = req.FirstName, req.LastName
	writeJSON(w, http.StatusCreated, u.User)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refreshTokens, req.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  s.issueAccessLocked(userID),
		"refreshToken": s.issueRefreshLocked(userID),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

func withUserID(r *http.Request, id int64) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, id)
}

func userID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(ctxKey{}).(int64)
	return id, ok
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	body := map[string]any{"statusCode": status}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

func mustRandHex(n int) string {
	s, err := common.MakeRandHexString(n)
	if err != nil {
		panic(fmt.Sprintf("apitest: random: %v", err))
	}
	return s
}
