package tickets

import (
	"context"
	"net/http"
	"sync"
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

type tokens struct {
	mu              sync.Mutex
	access, refresh string
}

func (t *tokens) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access
}

func (t *tokens) RefreshToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refresh
}

func (t *tokens) SetTokens(_ context.Context, access, refresh string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = access
	if refresh != "" {
		t.refresh = refresh
	}
	return nil
}

func (t *tokens) ClearCredentials(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access, t.refresh = "", ""
	return nil
}

type fixture struct {
	srv    *apitest.Server
	repo   *storage.SQLiteRepository
	client *api.Client
	status *StatusCache
	userID int64
	event  models.Event
}

const listTickets = "/tickets"

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	db, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := storage.NewSQLiteRepository(db)

	u := srv.AddUser("alice", "alice@example.com", "secret", false)
	start := time.Date(2030, 6, 1, 19, 0, 0, 0, time.UTC)
	e := srv.AddEvent(models.Event{Title: "Concert", Price: 25, StartsAt: start, EndsAt: start.Add(3 * time.Hour)})

	ts := &tokens{}
	c := api.New(srv.URL, 5*time.Second, api.WithTokenStore(ts))
	resp, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, ts.SetTokens(context.Background(), resp.AccessToken, resp.RefreshToken))

	s := New(repo, c, opts...)
	t.Cleanup(s.Close)
	srv.ResetCalls()
	return &fixture{srv: srv, repo: repo, client: c, status: s, userID: u.ID, event: e}
}

func (f *fixture) cached(t *testing.T) bool {
	t.Helper()
	paid, err := f.status.Cached(context.Background(), f.userID, f.event.ID)
	require.NoError(t, err)
	return paid
}

func TestView_CachesPositiveAndAsksOncePerView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.IssueTicket(f.userID, f.event.ID, true)

	v := f.status.Mount(f.userID, f.event.ID)
	paid, err := v.HasPaid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
	assert.True(t, f.cached(t))

	paid, err = v.HasPaid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, 1, f.srv.Calls(http.MethodGet, listTickets))

	// A new view re-confirms the cached positive.
	paid, err = f.status.Mount(f.userID, f.event.ID).HasPaid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, 2, f.srv.Calls(http.MethodGet, listTickets))
}

func TestView_EvictsStalePositive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.status.cache.Put(ctx, statusKey(f.userID, f.event.ID), true))

	paid, err := f.status.Mount(f.userID, f.event.ID).HasPaid(ctx)
	require.NoError(t, err)
	assert.False(t, paid)
	assert.False(t, f.cached(t))

	v, err := f.repo.Get(ctx, common.TicketKeyPrefix+statusKey(f.userID, f.event.ID))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestView_RefundDetectedOnNextView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.IssueTicket(f.userID, f.event.ID, true)

	paid, err := f.status.Mount(f.userID, f.event.ID).HasPaid(ctx)
	require.NoError(t, err)
	require.True(t, paid)

	f.srv.Refund(f.userID, f.event.ID)

	paid, err = f.status.Mount(f.userID, f.event.ID).HasPaid(ctx)
	require.NoError(t, err)
	assert.False(t, paid)
	assert.False(t, f.cached(t))
}

func TestView_NegativeIsNotCached(t *testing.T) {
	f := setup(t)
	f.srv.IssueTicket(f.userID, f.event.ID, false)

	paid, err := f.status.Mount(f.userID, f.event.ID).HasPaid(context.Background())
	require.NoError(t, err)
	assert.False(t, paid)

	entries, err := f.repo.List(context.Background(), common.TicketKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestView_ServerErrorKeepsCachedFlag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.IssueTicket(f.userID, f.event.ID, true)
	require.NoError(t, f.status.cache.Put(ctx, statusKey(f.userID, f.event.ID), true))

	f.srv.FailNext(http.MethodGet, listTickets, http.StatusInternalServerError, "")
	v := f.status.Mount(f.userID, f.event.ID)
	paid, err := v.HasPaid(ctx)
	require.ErrorIs(t, err, api.ErrServer)
	assert.True(t, paid)
	assert.True(t, f.cached(t))

	paid, err = v.HasPaid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestMarkPaid_ConfirmedFirstTry(t *testing.T) {
	f := setup(t, WithConfirmDelay(time.Hour))
	f.srv.IssueTicket(f.userID, f.event.ID, true)

	require.NoError(t, f.status.MarkPaidFromCallback(context.Background(), f.userID, f.event.ID))
	assert.True(t, f.cached(t))
	f.status.Wait()
	assert.Equal(t, 1, f.srv.Calls(http.MethodGet, listTickets))
}

func TestMarkPaid_RetriesOnceThenGivesUp(t *testing.T) {
	f := setup(t, WithConfirmDelay(10*time.Millisecond))

	require.NoError(t, f.status.MarkPaidFromCallback(context.Background(), f.userID, f.event.ID))
	f.status.Wait()
	assert.Equal(t, 2, f.srv.Calls(http.MethodGet, listTickets))
	assert.True(t, f.cached(t), "unconfirmed flag stays until the next view checks it")
}

func TestMarkPaid_CloseCancelsRetry(t *testing.T) {
	f := setup(t, WithConfirmDelay(time.Hour))

	require.NoError(t, f.status.MarkPaidFromCallback(context.Background(), f.userID, f.event.ID))

	done := make(chan struct{})
	go func() {
		f.status.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.LessOrEqual(t, f.srv.Calls(http.MethodGet, listTickets), 1)

	// After Close the flag is still written but nothing runs in the background.
	require.NoError(t, f.status.MarkPaidFromCallback(context.Background(), f.userID, f.event.ID))
	f.status.Wait()
}

func TestCheckout_Flow(t *testing.T) {
	f := setup(t, WithConfirmDelay(10*time.Millisecond))
	ctx := context.Background()
	co := NewCheckout(f.repo, f.client, f.status, nil)

	cs, err := co.Start(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Contains(t, cs.URL, cs.ID)

	pending, ok, err := co.PendingEvent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.event.ID, pending)

	_, err = co.Complete(ctx, f.userID, cs.ID)
	require.ErrorIs(t, err, ErrNotPaid)
	assert.False(t, f.cached(t))

	f.srv.CompletePayment(cs.ID)
	ticket, err := co.Complete(ctx, f.userID, cs.ID)
	require.NoError(t, err)
	assert.True(t, ticket.Paid)
	assert.Equal(t, f.event.ID, ticket.EventID.Int64())
	assert.True(t, f.cached(t))

	_, ok, err = co.PendingEvent(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	f.status.Wait()
	assert.Equal(t, 1, f.srv.Calls(http.MethodGet, listTickets))

	paid, err := f.status.Mount(f.userID, f.event.ID).HasPaid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestCheckout_FreeEventRejected(t *testing.T) {
	f := setup(t)
	free := f.srv.AddEvent(models.Event{Title: "Open day"})
	co := NewCheckout(f.repo, f.client, f.status, nil)

	_, err := co.Start(context.Background(), free.ID)
	require.ErrorIs(t, err, api.ErrBadRequest)
	assert.Equal(t, "Event is free", api.UserMessage(err, "Could not start checkout"))

	_, ok, err := co.PendingEvent(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
