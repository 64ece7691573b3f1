package apitest

import (
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) newIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) addUserLocked(username, email, password string, admin bool) *user {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &user{
		User: models.User{
			ID:          s.newIDLocked(),
			Username:    username,
			Email:       email,
			IsSiteAdmin: admin,
			CreatedAt:   time.Now().UTC(),
		},
		hash: hash,
	}
	s.users[u.ID] = u
	return u
}

// AddUser seeds an account that can log in with password.
func (s *Server) AddUser(username, email, password string, admin bool) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password, admin).User
}

// SetSiteAdmin flips the admin flag of an existing user.
func (s *Server) SetSiteAdmin(userID int64, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.IsSiteAdmin = admin
	}
}

func (s *Server) AddTeam(name string) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.Team{ID: s.newIDLocked(), Name: name}
	s.teams[t.ID] = t
	s.members[t.ID] = make(map[int64]*member)
	return *t
}

// AddMember puts userID in teamID with role, replacing any previous role.
func (s *Server) AddMember(teamID, userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMemberLocked(teamID, userID, role)
}

func (s *Server) setMemberLocked(teamID, userID int64, role string) {
	ms, ok := s.members[teamID]
	if !ok {
		ms = make(map[int64]*member)
		s.members[teamID] = ms
	}
	ms[userID] = &member{role: role}
	if t, ok := s.teams[teamID]; ok {
		t.MemberCount = len(ms)
	}
}

// AddEvent stores e, assigning an id when e.ID is zero.
func (s *Server) AddEvent(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.newIDLocked()
	} else if e.ID > s.nextID {
		s.nextID = e.ID
	}
	if e.Status == "" {
		e.Status = models.EventPublished
	}
	ev := e
	s.events[ev.ID] = &ev
	return ev
}

// Event returns the backend's copy of an event.
func (s *Server) Event(id int64) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return models.Event{}, false
	}
	return *e, true
}

func (s *Server) Team(id int64) (models.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return models.Team{}, false
	}
	return *t, true
}

func (s *Server) issueTicketLocked(userID, eventID int64, paid bool) *models.Ticket {
	t := &models.Ticket{
		ID:        s.newIDLocked(),
		Code:      mustRandHex(6),
		EventID:   models.FlexID(eventID),
		UserID:    models.FlexID(userID),
		Status:    models.TicketActive,
		Paid:      paid,
		CreatedAt: time.Now().UTC(),
	}
	s.tickets[t.ID] = t
	return t
}

// IssueTicket seeds a ticket for userID at eventID.
func (s *Server) IssueTicket(userID, eventID int64, paid bool) models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.issueTicketLocked(userID, eventID, paid)
}

// Refund removes every ticket userID holds for eventID, as a refund issued
// outside the client would.
func (s *Server) Refund(userID, eventID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tickets {
		if t.UserID.Int64() == userID && t.EventID.Int64() == eventID {
			delete(s.tickets, id)
		}
	}
}

// CompletePayment marks a checkout session as paid, as the provider would
// after the user finishes checkout.
func (s *Server) CompletePayment(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[sessionID]; ok {
		cs.Status = "complete"
		cs.PaymentStatus = "paid"
	}
}
