package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
	"github.com/google/uuid"
)

// Remote is the part of the backend the session talks to. *api.Client
// implements it.
type Remote interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.User, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUser(ctx context.Context, id int64) (*models.Identity, error)
	IsSiteAdmin(ctx context.Context, id int64) (bool, error)
}

// Store is the authenticated-user state of one client. It is safe for
// concurrent use.
type Store struct {
	repo   storage.Repository
	remote Remote
	bus    Bus
	log    logging.Logger
	origin string

	// writeMu orders storage writes so a cleared session is never
	// written back by a late update.
	writeMu sync.Mutex

	mu        sync.RWMutex
	identity  *models.Identity
	access    string
	refresh   string
	siteAdmin bool
	// epoch changes whenever the signed-in user may have changed; async
	// results started under an older epoch are dropped.
	epoch  uint64
	closed bool

	ctx         context.Context
	cancel      context.CancelFunc
	tasks       sync.WaitGroup
	loop        sync.WaitGroup
	unsubscribe func()
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithBus connects the store to other stores. Without it the store uses a
// private MemoryBus.
func WithBus(b Bus) Option {
	return func(s *Store) { s.bus = b }
}

// New loads the persisted session from repo and starts listening for
// changes made by other stores. Close releases it.
func New(ctx context.Context, repo storage.Repository, remote Remote, opts ...Option) (*Store, error) {
	s := &Store{
		repo:   repo,
		remote: remote,
		log:    logging.Nop(),
		origin: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = NewMemoryBus()
	}
	s.log = s.log.With("origin", s.origin)

	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	events, unsubscribe := s.bus.Subscribe()
	s.unsubscribe = unsubscribe
	s.loop.Add(1)
	go s.listen(events)
	return s, nil
}

// Origin identifies this store on the bus.
func (s *Store) Origin() string { return s.origin }

// Close stops listening for changes and waits for background work. Results
// of work still in flight are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.mu.Unlock()

	s.cancel()
	s.unsubscribe()
	s.loop.Wait()
	s.tasks.Wait()
}

// Wait blocks until background identity fetches have finished.
func (s *Store) Wait() { s.tasks.Wait() }

// Identity returns a copy of the signed-in identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	id := *s.identity
	id.TeamMemberships = append([]models.TeamMembership(nil), s.identity.TeamMemberships...)
	return id, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

func (s *Store) IsSiteAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.siteAdmin
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens stores a refreshed token pair. An empty refresh keeps the
// current refresh token.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	refresh = s.refresh
	s.mu.Unlock()

	if err := s.repo.Set(ctx, common.KeyAccessToken, []byte(access)); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, common.KeyRefreshToken, []byte(refresh)); err != nil {
		return err
	}
	s.publish(ctx, common.KeyAccessToken, common.KeyRefreshToken)
	return nil
}

// ClearCredentials drops the session locally and in storage.
func (s *Store) ClearCredentials(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.identity = nil
	s.access, s.refresh = "", ""
	s.siteAdmin = false
	s.epoch++
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, common.CredentialKeys...); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.publish(ctx, common.CredentialKeys...)
	return nil
}

// Login authenticates, persists the tokens and the user projection from the
// login response, then fetches the full identity in the background.
func (s *Store) Login(ctx context.Context, username, password string) error {
	resp, err := s.remote.Login(ctx, username, password)
	if err != nil {
		return &AuthError{Reason: api.UserMessage(err, "login failed"), Err: err}
	}
	if resp.AccessToken == "" {
		return &AuthError{Reason: "no access token in login response"}
	}

	identity := resp.User
	if identity.ID == 0 {
		if claims, err := api.ParseTokenClaims(resp.AccessToken); err == nil {
			identity.ID = claims.UserID
		}
	}

	s.writeMu.Lock()
	s.mu.Lock()
	s.access, s.refresh = resp.AccessToken, resp.RefreshToken
	s.identity = &identity
	s.siteAdmin = identity.IsSiteAdmin
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()
	err = s.persist(ctx)
	if err != nil {
		s.mu.Lock()
		s.access, s.refresh = "", ""
		s.identity = nil
		s.siteAdmin = false
		s.epoch++
		s.mu.Unlock()
		if derr := s.repo.Delete(ctx, common.CredentialKeys...); derr != nil {
			s.log.Warn(ctx, "clearing partial session failed", "error", derr)
		}
	}
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, common.CredentialKeys...)
	s.log.Info(ctx, "logged in", "user_id", identity.ID)

	s.tasks.Add(1)
	go s.fetchIdentity(identity.ID, epoch)
	return nil
}

func (s *Store) fetchIdentity(id int64, epoch uint64) {
	defer s.tasks.Done()

	full, err := s.remote.GetUser(s.ctx, id)
	if err != nil {
		s.log.Warn(s.ctx, "identity fetch failed", "user_id", id, "error", err)
		return
	}

	s.writeMu.Lock()
	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		s.writeMu.Unlock()
		s.log.Debug(s.ctx, "discarding stale identity fetch", "user_id", id)
		return
	}
	s.identity = full
	s.siteAdmin = full.IsSiteAdmin
	s.mu.Unlock()
	err = s.persist(s.ctx)
	s.writeMu.Unlock()
	if err != nil {
		s.log.Warn(s.ctx, "persisting identity failed", "error", err)
		return
	}
	s.publish(s.ctx, common.KeyUser, common.KeySiteAdmin)
}

// Register creates an account. It does not sign in.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*models.User, error) {
	return s.remote.Register(ctx, req)
}

// Logout invalidates the refresh token remotely on a best-effort basis and
// always clears local credentials.
func (s *Store) Logout(ctx context.Context) error {
	if refresh := s.RefreshToken(); refresh != "" {
		if err := s.remote.Logout(ctx, refresh); err != nil {
			s.log.Warn(ctx, "remote logout failed", "error", err)
		}
	}
	return s.ClearCredentials(ctx)
}

// CheckSiteAdmin asks the backend whether the current user is a site admin.
// Any failure yields false.
func (s *Store) CheckSiteAdmin(ctx context.Context) bool {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()
	identity, ok := s.Identity()
	if !ok {
		return false
	}

	admin, err := s.remote.IsSiteAdmin(ctx, identity.ID)
	if err != nil {
		s.log.Warn(ctx, "site admin check failed", "user_id", identity.ID, "error", err)
		admin = false
	}

	s.writeMu.Lock()
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return admin
	}
	s.siteAdmin = admin
	if s.identity != nil {
		s.identity.IsSiteAdmin = admin
	}
	s.mu.Unlock()
	err = s.persist(ctx)
	s.writeMu.Unlock()
	if err != nil {
		s.log.Warn(ctx, "persisting site admin flag failed", "error", err)
		return admin
	}
	s.publish(ctx, common.KeySiteAdmin, common.KeyUser)
	return admin
}

// UpdateLocal merges p into the identity without a round trip.
func (s *Store) UpdateLocal(ctx context.Context, p models.IdentityPatch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return common.ErrNotLoggedIn
	}
	merged := s.identity.Apply(p)
	s.identity = &merged
	if p.IsSiteAdmin != nil {
		s.siteAdmin = *p.IsSiteAdmin
	}
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, common.KeyUser, common.KeySiteAdmin)
	return nil
}

// persist writes the in-memory session. Callers hold writeMu.
func (s *Store) persist(ctx context.Context) error {
	s.mu.RLock()
	access, refresh, admin := s.access, s.refresh, s.siteAdmin
	var user []byte
	var err error
	if s.identity != nil {
		user, err = json.Marshal(s.identity)
	}
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	values := map[string][]byte{
		common.KeyAccessToken:  []byte(access),
		common.KeyRefreshToken: []byte(refresh),
		common.KeySiteAdmin:    []byte(strconv.FormatBool(admin)),
	}
	if user != nil {
		values[common.KeyUser] = user
	}
	for k, v := range values {
		if err := s.repo.Set(ctx, k, v); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

func (s *Store) publish(ctx context.Context, keys ...string) {
	if err := s.bus.Publish(ctx, ChangeEvent{Origin: s.origin, Keys: keys}); err != nil {
		s.log.Warn(ctx, "change notification failed", "error", err)
	}
}

func (s *Store) listen(events <-chan ChangeEvent) {
	defer s.loop.Done()
	for ev := range events {
		if ev.Origin == s.origin {
			continue
		}
		if err := s.reload(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn(s.ctx, "reloading session failed", "error", err)
		}
	}
}

// reload re-derives the in-memory state from storage.
func (s *Store) reload(ctx context.Context) error {
	access, err := s.repo.Get(ctx, common.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	refresh, err := s.repo.Get(ctx, common.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	rawUser, err := s.repo.Get(ctx, common.KeyUser)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	rawAdmin, err := s.repo.Get(ctx, common.KeySiteAdmin)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var identity *models.Identity
	if len(rawUser) > 0 {
		var id models.Identity
		if err := json.Unmarshal(rawUser, &id); err != nil {
			s.log.Warn(ctx, "ignoring unreadable stored identity", "error", err)
		} else {
			identity = &id
		}
	}
	admin, _ := strconv.ParseBool(string(rawAdmin))

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(access) == 0 || !sameUser(s.identity, identity) {
		s.epoch++
	}
	s.access, s.refresh = string(access), string(refresh)
	s.identity = identity
	s.siteAdmin = admin
	return nil
}

func sameUser(a, b *models.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
