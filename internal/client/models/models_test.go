package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlexID_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexID
		wantErr bool
	}{
		{`5`, 5, false},
		{`"5"`, 5, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"abc"`, 0, true},
		{`1.5`, 0, true},
	}
	for _, tt := range tests {
		var id FlexID
		err := json.Unmarshal([]byte(tt.in), &id)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, id, tt.in)
	}
}

func TestEvent_DecodesStringCreator(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"createdBy":"9","teamId":3,"status":"draft"}`), &e))
	require.Equal(t, int64(9), e.CreatedBy.Int64())
	require.Equal(t, int64(3), e.TeamID.Int64())
	require.Equal(t, EventDraft, e.Status)
}

func TestIdentity_MembershipFor(t *testing.T) {
	id := Identity{ID: 7, TeamMemberships: []TeamMembership{
		{TeamID: 3, Role: "member"},
		{TeamID: 4, Role: "owner"},
	}}

	m, ok := id.MembershipFor(3)
	require.True(t, ok)
	require.False(t, m.Privileged())

	m, ok = id.MembershipFor(4)
	require.True(t, ok)
	require.True(t, m.Privileged())

	_, ok = id.MembershipFor(5)
	require.False(t, ok)
}

func TestIdentity_Apply(t *testing.T) {
	name := "new"
	admin := true
	id := Identity{ID: 1, Username: "old", Email: "a@b.c"}

	got := id.Apply(IdentityPatch{Username: &name, IsSiteAdmin: &admin})

	require.Equal(t, Identity{ID: 1, Username: "new", Email: "a@b.c", IsSiteAdmin: true}, got)
	require.Equal(t, "old", id.Username, "receiver is not modified")
}

func TestEventStatus_Valid(t *testing.T) {
	require.True(t, EventDraft.Valid())
	require.True(t, EventPublished.Valid())
	require.True(t, EventCancelled.Valid())
	require.False(t, EventStatus("archived").Valid())
}
