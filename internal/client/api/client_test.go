package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/apitest"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	sets    int
	clears  int
}

func (m *memTokens) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *memTokens) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

func (m *memTokens) SetTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
	return nil
}

func (m *memTokens) ClearCredentials(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.access, m.refresh = "", ""
	return nil
}

// loggedIn seeds a user, logs in and returns a client holding its tokens.
func loggedIn(t *testing.T, srv *apitest.Server, admin bool) (*api.Client, *memTokens, int64) {
	t.Helper()
	u := srv.AddUser("alice", "alice@example.com", "secret", admin)

	tokens := &memTokens{}
	c := api.New(srv.URL, 5*time.Second, api.WithTokenStore(tokens))
	resp, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, tokens.SetTokens(context.Background(), resp.AccessToken, resp.RefreshToken))
	tokens.sets = 0
	srv.ResetCalls()
	return c, tokens, u.ID
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := api.New(ts.URL, time.Second, api.WithTokenStore(&memTokens{access: "abc"}))
	_, err := c.ListTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
}

func TestClient_NoHeaderWithoutToken(t *testing.T) {
	var got []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := api.New(ts.URL, time.Second)
	_, err := c.ListEvents(context.Background(), api.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_RefreshesOnceAndReplays(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, tokens, uid := loggedIn(t, srv, false)
	oldAccess, oldRefresh := tokens.AccessToken(), tokens.RefreshToken()

	srv.RevokeAccessTokens()

	identity, err := c.GetUser(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)

	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/users/{id}"), "original + one replay")
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/auth/refresh-token"))
	assert.Equal(t, 1, tokens.sets)
	assert.NotEqual(t, oldAccess, tokens.AccessToken())
	assert.NotEqual(t, oldRefresh, tokens.RefreshToken(), "refresh token rotated")
}

func TestClient_ReplayUnauthorizedIsNotRefreshedAgain(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, tokens, uid := loggedIn(t, srv, false)

	path := "/users/" + itoa(uid)
	srv.FailNext(http.MethodGet, path, http.StatusUnauthorized, "expired")
	srv.FailNext(http.MethodGet, path, http.StatusUnauthorized, "still expired")

	_, err := c.GetUser(context.Background(), uid)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "still expired", api.UserMessage(err, ""))

	assert.Equal(t, 2, srv.Calls(http.MethodGet, path))
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/auth/refresh-token"))
	assert.Zero(t, tokens.clears, "credentials survive a successful refresh")
}

func TestClient_RefreshFailureClearsCredentials(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, tokens, uid := loggedIn(t, srv, false)

	srv.RevokeAccessTokens()
	srv.RevokeRefreshTokens()

	_, err := c.GetUser(context.Background(), uid)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	var re *api.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Path, "/users/", "original error is returned, not the refresh error")

	assert.Equal(t, 1, tokens.clears)
	assert.Empty(t, tokens.AccessToken())
	assert.Empty(t, tokens.RefreshToken())
	assert.Equal(t, 1, srv.Calls(http.MethodGet, "/users/{id}"), "no replay after failed refresh")
}

func TestClient_AuthPathsAreNotRefreshed(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "alice@example.com", "secret", false)
	tokens := &memTokens{access: "stale", refresh: "r"}
	c := api.New(srv.URL, time.Second, api.WithTokenStore(tokens))

	_, err := c.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "Invalid credentials", api.UserMessage(err, "Login failed"))
	assert.Zero(t, srv.Calls(http.MethodPost, "/auth/refresh-token"))
	assert.Zero(t, tokens.clears)
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, _, uid := loggedIn(t, srv, false)

	srv.RevokeAccessTokens()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetUser(context.Background(), uid)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/auth/refresh-token"))
}

func TestClient_ErrorMapping(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, _, _ := loggedIn(t, srv, false)

	_, err := c.GetEvent(context.Background(), 999)
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "Event not found", api.UserMessage(err, "x"))

	_, err = c.Dashboard(context.Background())
	require.ErrorIs(t, err, api.ErrForbidden)

	srv.FailNext(http.MethodGet, "/teams", http.StatusInternalServerError, "")
	_, err = c.ListTeams(context.Background())
	require.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, "Could not load teams", api.UserMessage(err, "Could not load teams"))

	var re *api.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "request failed with status 500", re.Text())
}

func TestClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := api.New(url, time.Second)
	_, err := c.Categories(context.Background())
	require.ErrorIs(t, err, api.ErrUnavailable)
}

func TestClient_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := api.New(ts.URL, time.Second)
	_, err := c.Categories(ctx)
	require.True(t, errors.Is(err, context.Canceled), err)
}

func TestClient_MembershipsNotFoundIsEmpty(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, _, uid := loggedIn(t, srv, false)

	ms, err := c.MembershipsForUser(context.Background(), uid)
	require.NoError(t, err)
	assert.NotNil(t, ms)
	assert.Empty(t, ms)

	team := srv.AddTeam("crew")
	srv.AddMember(team.ID, uid, common.RoleOrganizer)

	ms, err = c.MembershipsForUser(context.Background(), uid)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, team.ID, ms[0].TeamID.Int64())
	assert.True(t, ms[0].Privileged())
}

func TestClient_IsSiteAdmin(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, _, uid := loggedIn(t, srv, true)

	ok, err := c.IsSiteAdmin(context.Background(), uid)
	require.NoError(t, err)
	assert.True(t, ok)

	srv.SetSiteAdmin(uid, false)
	ok, err = c.IsSiteAdmin(context.Background(), uid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_IsSiteAdminBareBool(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`true`))
	}))
	defer ts.Close()

	ok, err := api.New(ts.URL, time.Second).IsSiteAdmin(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_EventLifecycle(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	c, _, uid := loggedIn(t, srv, false)
	ctx := context.Background()

	e, err := c.CreateEvent(ctx, eventInput("Launch"))
	require.NoError(t, err)
	assert.Equal(t, uid, e.CreatedBy.Int64())

	drafts, err := c.DraftEvents(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	in := eventInput("Launch v2")
	in.Status = "published"
	updated, err := c.UpdateEvent(ctx, e.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Title)

	reg, err := c.RegisterForEvent(ctx, e.ID)
	require.NoError(t, err)

	regs, err := c.EventRegistrations(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)

	require.NoError(t, c.CancelRegistration(ctx, reg.ID))
	require.NoError(t, c.DeleteEvent(ctx, e.ID))

	_, err = c.GetEvent(ctx, e.ID)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func eventInput(title string) models.EventInput {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	return models.EventInput{
		Title:    title,
		StartsAt: start,
		EndsAt:   start.Add(2 * time.Hour),
	}
}
