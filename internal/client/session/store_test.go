package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/apitest"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteRepository(db)
}

type fixture struct {
	srv    *apitest.Server
	repo   *storage.SQLiteRepository
	client *api.Client
	store  *Store
	user   models.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	f := &fixture{srv: srv, repo: newRepo(t)}
	f.user = srv.AddUser("alice", "alice@example.com", "secret", false)
	f.client = api.New(srv.URL, 5*time.Second)

	s, err := New(context.Background(), f.repo, f.client, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	f.client.SetTokenStore(s)
	f.store = s
	return f
}

func (f *fixture) stored(t *testing.T, key string) []byte {
	t.Helper()
	v, err := f.repo.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func TestLogin_PersistsAndFetchesFullIdentity(t *testing.T) {
	f := newFixture(t)
	team := f.srv.AddTeam("crew")
	f.srv.AddMember(team.ID, f.user.ID, common.RoleOwner)
	ctx := context.Background()

	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	assert.True(t, f.store.IsAuthenticated())
	assert.NotEmpty(t, f.stored(t, common.KeyAccessToken))
	assert.NotEmpty(t, f.stored(t, common.KeyRefreshToken))

	f.store.Wait()

	id, ok := f.store.Identity()
	require.True(t, ok)
	assert.Equal(t, f.user.ID, id.ID)
	require.Len(t, id.TeamMemberships, 1)
	assert.Equal(t, common.RoleOwner, id.TeamMemberships[0].Role)
	assert.Contains(t, string(f.stored(t, common.KeyUser)), `"teamMemberships"`)
	assert.Equal(t, 1, f.srv.Calls(http.MethodGet, "/users/{id}"))
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)

	err := f.store.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, ErrAuth)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid credentials", ae.Reason)
	assert.False(t, f.store.IsAuthenticated())
	assert.Nil(t, f.stored(t, common.KeyAccessToken))
}

type stubRemote struct {
	login       *api.LoginResponse
	logoutErr   error
	identity    *models.Identity
	identityErr error
	release     chan struct{}
	admin       bool
	adminErr    error
}

func (r *stubRemote) Login(context.Context, string, string) (*api.LoginResponse, error) {
	return r.login, nil
}

func (r *stubRemote) Register(context.Context, api.RegisterRequest) (*models.User, error) {
	return &models.User{ID: 1}, nil
}

func (r *stubRemote) Logout(context.Context, string) error { return r.logoutErr }

func (r *stubRemote) GetUser(ctx context.Context, _ int64) (*models.Identity, error) {
	if r.release != nil {
		<-r.release
	}
	return r.identity, r.identityErr
}

func (r *stubRemote) IsSiteAdmin(context.Context, int64) (bool, error) {
	return r.admin, r.adminErr
}

func newStubStore(t *testing.T, remote *stubRemote) (*Store, *storage.SQLiteRepository) {
	t.Helper()
	repo := newRepo(t)
	s, err := New(context.Background(), repo, remote)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, repo
}

func TestLogin_MissingAccessToken(t *testing.T) {
	s, _ := newStubStore(t, &stubRemote{login: &api.LoginResponse{RefreshToken: "r"}})

	err := s.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrAuth)
	assert.False(t, s.IsAuthenticated())
}

// brokenWrites fails every Set once armed, leaving reads and deletes intact.
type brokenWrites struct {
	storage.Repository
	armed bool
}

func (b *brokenWrites) Set(ctx context.Context, key string, value []byte) error {
	if b.armed {
		return errors.New("disk I/O error")
	}
	return b.Repository.Set(ctx, key, value)
}

func TestLogin_PersistFailureLeavesLoggedOut(t *testing.T) {
	repo := &brokenWrites{Repository: newRepo(t)}
	remote := &stubRemote{
		login:    &api.LoginResponse{AccessToken: "a", RefreshToken: "r", User: models.Identity{ID: 5, Username: "alice"}},
		identity: &models.Identity{ID: 5, Username: "alice"},
	}
	s, err := New(context.Background(), repo, remote)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	repo.armed = true
	err = s.Login(context.Background(), "alice", "secret")
	require.Error(t, err)
	s.Wait()

	assert.False(t, s.IsAuthenticated())
	_, ok := s.Identity()
	assert.False(t, ok)
	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
	for _, key := range common.CredentialKeys {
		v, err := repo.Get(context.Background(), key)
		require.NoError(t, err)
		assert.Nil(t, v, key)
	}
}

func TestLogout_ClearsCredentialsEvenWhenRemoteFails(t *testing.T) {
	remote := &stubRemote{
		login:     &api.LoginResponse{AccessToken: "a", RefreshToken: "r", User: models.Identity{ID: 3}},
		identity:  &models.Identity{ID: 3, Username: "carol"},
		logoutErr: errors.New("connection reset"),
	}
	s, repo := newStubStore(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "carol", "pw"))
	s.Wait()
	assert.False(t, s.CheckSiteAdmin(ctx))

	require.NoError(t, s.Logout(ctx))

	for _, key := range common.CredentialKeys {
		v, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, v, key)
	}
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Identity()
	assert.False(t, ok)
}

func TestLogout_RemoteFailureAgainstBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()

	f.srv.FailNext(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "boom")
	require.NoError(t, f.store.Logout(ctx))

	for _, key := range common.CredentialKeys {
		assert.Nil(t, f.stored(t, key), key)
	}
}

func TestIdentityFetch_DiscardedAfterLogout(t *testing.T) {
	remote := &stubRemote{
		login:    &api.LoginResponse{AccessToken: "a", RefreshToken: "r", User: models.Identity{ID: 3}},
		identity: &models.Identity{ID: 3, Username: "late"},
		release:  make(chan struct{}),
	}
	s, repo := newStubStore(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "carol", "pw"))
	require.NoError(t, s.Logout(ctx))
	close(remote.release)
	s.Wait()

	_, ok := s.Identity()
	assert.False(t, ok)
	v, err := repo.Get(ctx, common.KeyUser)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIdentityFetch_DiscardedAfterClose(t *testing.T) {
	remote := &stubRemote{
		login:    &api.LoginResponse{AccessToken: "a", RefreshToken: "r", User: models.Identity{ID: 3, Username: "short"}},
		identity: &models.Identity{ID: 3, Username: "late"},
		release:  make(chan struct{}),
	}
	s, _ := newStubStore(t, remote)

	require.NoError(t, s.Login(context.Background(), "carol", "pw"))
	go close(remote.release)
	s.Close()

	id, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, "short", id.Username)
}

func TestCheckSiteAdmin_FailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SetSiteAdmin(f.user.ID, true)
	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()
	require.True(t, f.store.IsSiteAdmin())

	path := "/users/" + itoa(f.user.ID) + "/is-site-admin"
	f.srv.FailNext(http.MethodGet, path, http.StatusInternalServerError, "")

	assert.False(t, f.store.CheckSiteAdmin(ctx))
	assert.False(t, f.store.IsSiteAdmin())
	assert.Equal(t, "false", string(f.stored(t, common.KeySiteAdmin)))

	assert.True(t, f.store.CheckSiteAdmin(ctx))
}

func TestCheckSiteAdmin_LoggedOut(t *testing.T) {
	s, _ := newStubStore(t, &stubRemote{admin: true})
	assert.False(t, s.CheckSiteAdmin(context.Background()))
}

func TestUpdateLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.UpdateLocal(ctx, models.IdentityPatch{})
	require.ErrorIs(t, err, common.ErrNotLoggedIn)

	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()
	calls := f.srv.TotalCalls()

	first := "Alice"
	require.NoError(t, f.store.UpdateLocal(ctx, models.IdentityPatch{FirstName: &first}))

	id, _ := f.store.Identity()
	assert.Equal(t, "Alice", id.FirstName)
	assert.Contains(t, string(f.stored(t, common.KeyUser)), `"firstName":"Alice"`)
	assert.Equal(t, calls, f.srv.TotalCalls(), "no round trip")
}

func TestNew_LoadsPersistedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()

	again, err := New(ctx, f.repo, f.client)
	require.NoError(t, err)
	defer again.Close()

	assert.True(t, again.IsAuthenticated())
	assert.Equal(t, f.store.AccessToken(), again.AccessToken())
	id, ok := again.Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)
}

func TestRefresh_UpdatesStoredTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()
	old := f.store.AccessToken()

	f.srv.RevokeAccessTokens()
	_, err := f.client.GetUser(ctx, f.user.ID)
	require.NoError(t, err)

	assert.NotEqual(t, old, f.store.AccessToken())
	assert.Equal(t, f.store.AccessToken(), string(f.stored(t, common.KeyAccessToken)))
}

func TestRefreshFailure_LogsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "alice", "secret"))
	f.store.Wait()

	f.srv.RevokeAccessTokens()
	f.srv.RevokeRefreshTokens()
	_, err := f.client.ListTeams(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	assert.False(t, f.store.IsAuthenticated())
	for _, key := range common.CredentialKeys {
		assert.Nil(t, f.stored(t, key), key)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
