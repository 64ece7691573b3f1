package admin_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/admin"
	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/apitest"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
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

type invalidations struct {
	events []int64
	users  []int64
	all    int
}

func (i *invalidations) InvalidateEvent(_ context.Context, id int64) error {
	i.events = append(i.events, id)
	return nil
}

func (i *invalidations) InvalidateUser(_ context.Context, id int64) error {
	i.users = append(i.users, id)
	return nil
}

func (i *invalidations) InvalidateAll(context.Context) error {
	i.all++
	return nil
}

type fixture struct {
	srv   *apitest.Server
	panel *admin.Panel
	inv   *invalidations
	admin models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	root := srv.AddUser("root", "root@example.com", "secret", true)
	bob := srv.AddUser("bob", "bob@example.com", "secret", false)
	crew := srv.AddTeam("crew")
	srv.AddMember(crew.ID, bob.ID, common.RoleMember)
	start := time.Date(2030, 3, 1, 18, 0, 0, 0, time.UTC)
	srv.AddEvent(models.Event{Title: "Launch", Status: models.EventPublished, CreatedBy: models.FlexID(root.ID),
		TeamID: models.FlexID(crew.ID), StartsAt: start, EndsAt: start.Add(2 * time.Hour)})
	srv.AddEvent(models.Event{Title: "Planning", Status: models.EventDraft, CreatedBy: models.FlexID(root.ID),
		StartsAt: start, EndsAt: start.Add(time.Hour)})

	ts := &tokens{}
	c := api.New(srv.URL, 5*time.Second, api.WithTokenStore(ts))
	resp, err := c.Login(context.Background(), "root", "secret")
	require.NoError(t, err)
	require.NoError(t, ts.SetTokens(context.Background(), resp.AccessToken, resp.RefreshToken))

	inv := &invalidations{}
	p := admin.New(c, admin.WithInvalidator(inv))
	require.NoError(t, p.Load(context.Background()))
	srv.ResetCalls()
	return &fixture{srv: srv, panel: p, inv: inv, admin: root}
}

func TestLoad_Counters(t *testing.T) {
	f := setup(t)

	assert.Equal(t, optimistic.Counters{admin.CountTotal: 2, admin.CountAdmins: 1}, f.panel.Users.Counters())
	assert.Equal(t, optimistic.Counters{admin.CountTotal: 1, admin.CountMembers: 1}, f.panel.Teams.Counters())
	assert.Equal(t, optimistic.Counters{
		admin.CountTotal: 2, admin.CountPublished: 1, admin.CountDraft: 1, admin.CountCancelled: 0,
	}, f.panel.Events.Counters())
	assert.False(t, f.panel.LoadedAt().IsZero())
}

func TestLoad_ForbiddenForNonAdmin(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("bob", "bob@example.com", "secret", false)

	ts := &tokens{}
	c := api.New(srv.URL, 5*time.Second, api.WithTokenStore(ts))
	resp, err := c.Login(context.Background(), "bob", "secret")
	require.NoError(t, err)
	require.NoError(t, ts.SetTokens(context.Background(), resp.AccessToken, resp.RefreshToken))

	err = admin.New(c).Load(context.Background())
	require.ErrorIs(t, err, api.ErrForbidden)
	assert.Equal(t, "Admin access required", api.UserMessage(err, "Could not load dashboard"))
}

func TestCreateTeam_RollsBackOnServerError(t *testing.T) {
	f := setup(t)
	before := f.panel.Teams.Items()
	beforeCounts := f.panel.Teams.Counters()

	f.srv.FailNext(http.MethodPost, "/teams", http.StatusInternalServerError, "database is down")

	_, err := f.panel.CreateTeam(context.Background(), models.TeamInput{Name: "night shift"})
	require.Error(t, err)
	assert.Equal(t, "database is down", api.UserMessage(err, "Could not create team"))

	assert.Equal(t, before, f.panel.Teams.Items())
	assert.Equal(t, beforeCounts, f.panel.Teams.Counters())
	assert.Zero(t, f.inv.all)
}

func TestCreateTeam_ReconcilesPlaceholder(t *testing.T) {
	f := setup(t)

	team, err := f.panel.CreateTeam(context.Background(), models.TeamInput{Name: "night shift"})
	require.NoError(t, err)
	require.NotZero(t, team.ID)

	items := f.panel.Teams.Items()
	require.Len(t, items, 2)
	assert.Equal(t, *team, items[1])
	assert.Equal(t, 2, f.panel.Teams.Counters()[admin.CountMembers])
}

func TestCreateTeam_InvalidNeverReachesServer(t *testing.T) {
	f := setup(t)
	before := f.panel.Teams.Items()

	_, err := f.panel.CreateTeam(context.Background(), models.TeamInput{Name: "  "})
	var ve *validate.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, before, f.panel.Teams.Items())
	assert.Zero(t, f.srv.TotalCalls())
}

func TestMembers_AdjustCountsAndInvalidate(t *testing.T) {
	f := setup(t)
	teamID := f.panel.Teams.Items()[0].ID

	_, err := f.panel.AddMember(context.Background(), teamID, f.admin.ID, common.RoleTeamAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, f.panel.Teams.Items()[0].MemberCount)
	assert.Equal(t, 1, f.inv.all)

	f.srv.FailNext(http.MethodDelete, "/teams/"+itoa(teamID)+"/members/"+itoa(f.admin.ID), http.StatusInternalServerError, "")
	err = f.panel.RemoveMember(context.Background(), teamID, f.admin.ID)
	require.Error(t, err)
	assert.Equal(t, "Could not remove member", api.UserMessage(err, "Could not remove member"))
	assert.Equal(t, 2, f.panel.Teams.Items()[0].MemberCount)
	assert.Equal(t, 1, f.inv.all)

	require.NoError(t, f.panel.RemoveMember(context.Background(), teamID, f.admin.ID))
	assert.Equal(t, 1, f.panel.Teams.Items()[0].MemberCount)
	assert.Equal(t, 2, f.inv.all)
}

func TestUsers_SiteAdminChangeInvalidatesUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bob := f.panel.Users.Items()[1]
	require.False(t, bob.IsSiteAdmin)

	yes, no := true, false
	f.srv.FailNext(http.MethodPatch, "/users/"+itoa(bob.ID), http.StatusInternalServerError, "")
	_, err := f.panel.UpdateUser(ctx, bob.ID, api.UserPatch{IsSiteAdmin: &yes})
	require.Error(t, err)
	assert.Empty(t, f.inv.users, "nothing to invalidate after a rollback")

	_, err = f.panel.UpdateUser(ctx, bob.ID, api.UserPatch{IsSiteAdmin: &yes})
	require.NoError(t, err)
	u, err := f.panel.UpdateUser(ctx, bob.ID, api.UserPatch{IsSiteAdmin: &no})
	require.NoError(t, err)
	assert.False(t, u.IsSiteAdmin)
	assert.Equal(t, 1, f.panel.Users.Counters()[admin.CountAdmins])
	assert.Equal(t, []int64{bob.ID, bob.ID}, f.inv.users)

	email := "bob@example.org"
	_, err = f.panel.UpdateUser(ctx, bob.ID, api.UserPatch{Email: &email})
	require.NoError(t, err)
	assert.Len(t, f.inv.users, 2, "profile edits keep decisions")
	assert.Zero(t, f.inv.all)
	assert.Empty(t, f.inv.events)
}

func TestEvents_StatusChangeMovesCounters(t *testing.T) {
	f := setup(t)
	draft := f.panel.Events.Items()[1]
	require.Equal(t, models.EventDraft, draft.Status)

	e, err := f.panel.SetEventStatus(context.Background(), draft.ID, models.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, models.EventPublished, e.Status)
	assert.Equal(t, 2, f.panel.Events.Counters()[admin.CountPublished])
	assert.Equal(t, 0, f.panel.Events.Counters()[admin.CountDraft])
	assert.Equal(t, []int64{draft.ID}, f.inv.events)
}

func TestEvents_DeleteRollsBack(t *testing.T) {
	f := setup(t)
	before := f.panel.Events.Items()
	id := before[0].ID

	f.srv.FailNext(http.MethodDelete, "/events/"+itoa(id), http.StatusForbidden, "Not allowed")
	err := f.panel.DeleteEvent(context.Background(), id)
	require.ErrorIs(t, err, api.ErrForbidden)
	assert.Equal(t, before, f.panel.Events.Items())
	assert.Empty(t, f.inv.events)

	require.NoError(t, f.panel.DeleteEvent(context.Background(), id))
	assert.Len(t, f.panel.Events.Items(), 1)
	assert.Equal(t, []int64{id}, f.inv.events)
}

func TestUsers_UpdateAndNotListed(t *testing.T) {
	f := setup(t)
	bob := f.panel.Users.Items()[1]

	promote := true
	u, err := f.panel.UpdateUser(context.Background(), bob.ID, api.UserPatch{IsSiteAdmin: &promote})
	require.NoError(t, err)
	assert.True(t, u.IsSiteAdmin)
	assert.Equal(t, 2, f.panel.Users.Counters()[admin.CountAdmins])

	_, err = f.panel.UpdateUser(context.Background(), 9999, api.UserPatch{IsSiteAdmin: &promote})
	var nl *admin.ErrNotListed
	require.True(t, errors.As(err, &nl))
	assert.Equal(t, "user", nl.Kind)
}

func TestUsers_CreateRollsBack(t *testing.T) {
	f := setup(t)
	before := f.panel.Users.Items()

	f.srv.FailNext(http.MethodPost, "/users", http.StatusConflict, "username already taken")
	_, err := f.panel.CreateUser(context.Background(), models.UserInput{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	require.ErrorIs(t, err, api.ErrBadRequest)
	assert.Equal(t, before, f.panel.Users.Items())
	assert.Equal(t, 2, f.panel.Users.Counters()[admin.CountTotal])
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
