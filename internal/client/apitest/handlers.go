package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// ---- users ----

func (s *Server) identityLocked(u *user) models.Identity {
	id := models.Identity{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSiteAdmin: u.IsSiteAdmin,
	}
	id.TeamMemberships = s.membershipsLocked(u.ID)
	return id
}

func (s *Server) membershipsLocked(userID int64) []models.TeamMembership {
	var out []models.TeamMembership
	for teamID, ms := range s.members {
		m, ok := ms[userID]
		if !ok {
			continue
		}
		name := ""
		if t, ok := s.teams[teamID]; ok {
			name = t.Name
		}
		out = append(out, models.TeamMembership{TeamID: models.FlexID(teamID), TeamName: name, Role: m.role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}

func (s *Server) isAdminLocked(id int64) bool {
	u, ok := s.users[id]
	return ok && u.IsSiteAdmin
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.identityLocked(u))
}

func (s *Server) handleIsSiteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isSiteAdmin": s.isAdminLocked(id)})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAdminLocked(caller) {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}
	for _, u := range s.users {
		if u.Username == in.Username {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
	}
	password := in.Password
	if password == "" {
		password = mustRandHex(8)
	}
	u := s.addUserLocked(in.Username, in.Email, password, in.IsSiteAdmin)
	writeJSON(w, http.StatusCreated, u.User)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var patch struct {
		Username    *string `json:"username"`
		Email       *string `json:"email"`
		FirstName   *string `json:"firstName"`
		LastName    *string `json:"lastName"`
		Password    *string `json:"password"`
		IsSiteAdmin *bool   `json:"isSiteAdmin"`
	}
	if !decode(w, r, &patch) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	admin := s.isAdminLocked(caller)
	if caller != id && !admin {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.MinCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "")
			return
		}
		u.hash = hash
	}
	if patch.IsSiteAdmin != nil && admin {
		u.IsSiteAdmin = *patch.IsSiteAdmin
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAdminLocked(caller) {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}
	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.users, id)
	for teamID, ms := range s.members {
		delete(ms, id)
		if t, ok := s.teams[teamID]; ok {
			t.MemberCount = len(ms)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAdminLocked(caller) {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	d := models.Dashboard{Users: []models.User{}, Teams: []models.Team{}, Events: []models.Event{}}
	for _, u := range sortedKeys(s.users) {
		d.Users = append(d.Users, s.users[u].User)
	}
	for _, t := range sortedKeys(s.teams) {
		d.Teams = append(d.Teams, *s.teams[t])
	}
	for _, e := range sortedKeys(s.events) {
		ev := *s.events[e]
		d.Events = append(d.Events, ev)
		switch ev.Status {
		case models.EventPublished:
			d.Stats.PublishedEvents++
		case models.EventDraft:
			d.Stats.DraftEvents++
		}
	}
	d.Stats.TotalUsers = len(d.Users)
	d.Stats.TotalTeams = len(d.Teams)
	d.Stats.TotalEvents = len(d.Events)
	writeJSON(w, http.StatusOK, d)
}

// ---- events ----

func (s *Server) canEditLocked(caller int64, e *models.Event) bool {
	if e.CreatedBy.Int64() == caller || s.isAdminLocked(caller) {
		return true
	}
	if m, ok := s.members[e.TeamID.Int64()][caller]; ok {
		return common.IsPrivilegedRole(m.role)
	}
	return false
}

func (s *Server) eventList(filter func(*models.Event) bool) []models.Event {
	out := []models.Event{}
	for _, id := range sortedKeys(s.events) {
		if e := s.events[id]; filter(e) {
			out = append(out, *e)
		}
	}
	return out
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	category, _ := strconv.ParseInt(q.Get("categoryId"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.eventList(func(e *models.Event) bool {
		if status != "" && string(e.Status) != status {
			return false
		}
		if status == "" && e.Status != models.EventPublished {
			return false
		}
		return category == 0 || e.CategoryID.Int64() == category
	}))
}

func (s *Server) handleDraftEvents(w http.ResponseWriter, r *http.Request) {
	caller, _ := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.eventList(func(e *models.Event) bool {
		return e.Status == models.EventDraft && s.canEditLocked(caller, e)
	}))
}

func (s *Server) handlePastEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.eventList(func(e *models.Event) bool {
		return !e.EndsAt.IsZero() && e.EndsAt.Before(now)
	}))
}

func (s *Server) handleTeamEvents(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.eventList(func(e *models.Event) bool {
		return e.TeamID.Int64() == teamID
	}))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func applyEventInput(e *models.Event, in models.EventInput) {
	e.Title = in.Title
	e.Description = in.Description
	if in.Status != "" {
		e.Status = in.Status
	}
	e.TeamID = models.FlexID(in.TeamID)
	e.CategoryID = models.FlexID(in.CategoryID)
	e.Location = in.Location
	e.Price = in.Price
	e.MaxAttendees = in.MaxAttendees
	e.IsPublic = in.IsPublic
	e.StartsAt = in.StartsAt
	e.EndsAt = in.EndsAt
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if !decode(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeError(w, http.StatusBadRequest, "title should not be empty")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.TeamID != 0 {
		m, ok := s.members[in.TeamID][caller]
		if (!ok || !common.IsPrivilegedRole(m.role)) && !s.isAdminLocked(caller) {
			writeError(w, http.StatusForbidden, "Not allowed to create events for this team")
			return
		}
	}
	e := &models.Event{ID: s.newIDLocked(), Status: models.EventDraft, CreatedBy: models.FlexID(caller)}
	applyEventInput(e, in)
	s.events[e.ID] = e
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in models.EventInput
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if !s.canEditLocked(caller, e) {
		writeError(w, http.StatusForbidden, "You do not have permission to edit this event")
		return
	}
	applyEventInput(e, in)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if !s.canEditLocked(caller, e) {
		writeError(w, http.StatusForbidden, "You do not have permission to delete this event")
		return
	}
	delete(s.events, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterForEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.Status != models.EventPublished {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	for _, reg := range s.registrations {
		if reg.EventID.Int64() == id && reg.UserID.Int64() == caller && reg.Status == "registered" {
			writeError(w, http.StatusConflict, "Already registered for this event")
			return
		}
	}
	if e.MaxAttendees > 0 && e.Attendees >= e.MaxAttendees {
		writeError(w, http.StatusBadRequest, "Event is full")
		return
	}
	reg := &models.Registration{
		ID:        s.newIDLocked(),
		EventID:   models.FlexID(id),
		UserID:    models.FlexID(caller),
		Status:    "registered",
		CreatedAt: time.Now().UTC(),
	}
	if u, ok := s.users[caller]; ok {
		reg.Username = u.Username
	}
	s.registrations[reg.ID] = reg
	e.Attendees++
	if e.Price == 0 {
		s.issueTicketLocked(caller, id, false)
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleEventRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if !s.canEditLocked(caller, e) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	out := []models.Registration{}
	for _, rid := range sortedKeys(s.registrations) {
		if reg := s.registrations[rid]; reg.EventID.Int64() == id {
			out = append(out, *reg)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[id]
	if !ok || (reg.UserID.Int64() != caller && !s.isAdminLocked(caller)) {
		writeError(w, http.StatusNotFound, "Registration not found")
		return
	}
	if reg.Status == "cancelled" {
		writeError(w, http.StatusBadRequest, "Registration already cancelled")
		return
	}
	reg.Status = "cancelled"
	if e, ok := s.events[reg.EventID.Int64()]; ok && e.Attendees > 0 {
		e.Attendees--
	}
	writeJSON(w, http.StatusOK, reg)
}

// ---- teams ----

func (s *Server) canManageTeamLocked(caller, teamID int64) bool {
	if s.isAdminLocked(caller) {
		return true
	}
	m, ok := s.members[teamID][caller]
	return ok && (m.role == common.RoleOwner || m.role == common.RoleTeamAdmin)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Team{}
	for _, id := range sortedKeys(s.teams) {
		out = append(out, *s.teams[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in models.TeamInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name should not be empty")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.Team{ID: s.newIDLocked(), Name: in.Name, Description: in.Description}
	s.teams[t.ID] = t
	s.members[t.ID] = make(map[int64]*member)
	s.setMemberLocked(t.ID, caller, common.RoleOwner)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in models.TeamInput
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	if !s.canManageTeamLocked(caller, id) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	t.Name, t.Description = in.Name, in.Description
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	if !s.canManageTeamLocked(caller, id) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	delete(s.teams, id)
	delete(s.members, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.members[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	out := []models.TeamMember{}
	for _, uid := range sortedKeys(ms) {
		tm := models.TeamMember{UserID: models.FlexID(uid), Role: ms[uid].role}
		if u, ok := s.users[uid]; ok {
			tm.Username, tm.Email = u.Username, u.Email
		}
		out = append(out, tm)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in struct {
		UserID int64  `json:"userId"`
		Role   string `json:"role"`
	}
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		writeError(w, http.StatusNotFound, "Team not found")
		return
	}
	if !s.canManageTeamLocked(caller, id) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	u, ok := s.users[in.UserID]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if in.Role == "" {
		in.Role = common.RoleMember
	}
	s.setMemberLocked(id, in.UserID, in.Role)
	writeJSON(w, http.StatusCreated, models.TeamMember{
		UserID: models.FlexID(in.UserID), Username: u.Username, Email: u.Email, Role: in.Role,
	})
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok1 := pathID(r, "id")
	uid, ok2 := pathID(r, "userId")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in struct {
		Role string `json:"role"`
	}
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id][uid]; !ok {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if !s.canManageTeamLocked(caller, id) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	s.setMemberLocked(id, uid, in.Role)
	tm := models.TeamMember{UserID: models.FlexID(uid), Role: in.Role}
	if u, ok := s.users[uid]; ok {
		tm.Username, tm.Email = u.Username, u.Email
	}
	writeJSON(w, http.StatusOK, tm)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok1 := pathID(r, "id")
	uid, ok2 := pathID(r, "userId")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id][uid]; !ok {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if !s.canManageTeamLocked(caller, id) && caller != uid {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	delete(s.members[id], uid)
	if t, ok := s.teams[id]; ok {
		t.MemberCount = len(s.members[id])
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMembershipsForUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.membershipsLocked(uid)
	if len(ms) == 0 {
		writeError(w, http.StatusNotFound, "No team memberships found")
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// ---- tickets ----

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventID, _ := strconv.ParseInt(q.Get("eventId"), 10, 64)
	uid, _ := strconv.ParseInt(q.Get("userId"), 10, 64)
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if uid == 0 && !s.isAdminLocked(caller) {
		uid = caller
	}
	out := []models.Ticket{}
	for _, id := range sortedKeys(s.tickets) {
		t := s.tickets[id]
		if eventID != 0 && t.EventID.Int64() != eventID {
			continue
		}
		if uid != 0 && t.UserID.Int64() != uid {
			continue
		}
		out = append(out, *t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EventID int64 `json:"eventId"`
		UserID  int64 `json:"userId"`
	}
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[in.EventID]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if in.UserID == 0 {
		in.UserID = caller
	}
	if e.Price > 0 && !s.isAdminLocked(caller) {
		writeError(w, http.StatusBadRequest, "Paid events require checkout")
		return
	}
	writeJSON(w, http.StatusCreated, s.issueTicketLocked(in.UserID, in.EventID, false))
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in struct {
		Status *string `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	delete(s.tickets, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ticketByCodeLocked(code string) *models.Ticket {
	for _, t := range s.tickets {
		if t.Code == code {
			return t
		}
	}
	return nil
}

func (s *Server) handleVerifyTicket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.ticketByCodeLocked(code)
	if t == nil {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	v := models.TicketVerification{Valid: t.Status == models.TicketActive, Ticket: *t}
	if !v.Valid {
		v.Message = "Ticket is " + t.Status
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUseTicket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.ticketByCodeLocked(code)
	if t == nil {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if t.Status != models.TicketActive {
		writeError(w, http.StatusBadRequest, "Ticket already used")
		return
	}
	now := time.Now().UTC()
	t.Status = models.TicketUsed
	t.UsedAt = &now
	writeJSON(w, http.StatusOK, t)
}

// ---- checkout ----

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EventID int64 `json:"eventId"`
	}
	if !decode(w, r, &in) {
		return
	}
	caller, _ := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[in.EventID]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if e.Price <= 0 {
		writeError(w, http.StatusBadRequest, "Event is free")
		return
	}
	id := "cs_test_" + mustRandHex(8)
	cs := &models.CheckoutSession{
		ID:            id,
		URL:           s.URL + "/checkout/" + id,
		Status:        "open",
		PaymentStatus: "unpaid",
		EventID:       models.FlexID(in.EventID),
	}
	s.sessions[id] = cs
	s.sessionsByUser[id] = caller
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Checkout session not found")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleSyncPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Checkout session not found")
		return
	}
	if !cs.Paid() {
		writeError(w, http.StatusBadRequest, "Payment not completed")
		return
	}
	uid := s.sessionsByUser[id]
	for _, t := range s.tickets {
		if t.UserID.Int64() == uid && t.EventID == cs.EventID && t.Paid {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.issueTicketLocked(uid, cs.EventID.Int64(), true))
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
