// Package validate checks user input before anything is sent or applied.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

const (
	MaxTeamNameLength = 100
	MaxTitleLength    = 200
)

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

type fields map[string]string

func (f fields) add(name, msg string) {
	if _, ok := f[name]; !ok {
		f[name] = msg
	}
}

func (f fields) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func Event(in models.EventInput) error {
	f := fields{}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		f.add("title", "is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		f.add("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if in.Price < 0 {
		f.add("price", "must not be negative")
	}
	if in.MaxAttendees < 0 {
		f.add("maxAttendees", "must not be negative")
	}
	if in.Status != "" && !in.Status.Valid() {
		f.add("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if in.StartsAt.IsZero() {
		f.add("startDate", "is required")
	}
	if !in.StartsAt.IsZero() && !in.EndsAt.IsZero() && !in.EndsAt.After(in.StartsAt) {
		f.add("endDate", "must be after the start")
	}
	return f.err()
}

func Team(in models.TeamInput) error {
	f := fields{}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		f.add("name", "is required")
	case utf8.RuneCountInString(name) > MaxTeamNameLength:
		f.add("name", fmt.Sprintf("must be at most %d characters", MaxTeamNameLength))
	}
	return f.err()
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

func User(in models.UserInput) error {
	f := fields{}
	if !usernamePattern.MatchString(in.Username) {
		f.add("username", "must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if err := email(in.Email); err != "" {
		f.add("email", err)
	}
	if in.Password != "" && len(in.Password) < 6 {
		f.add("password", "must be at least 6 characters")
	}
	return f.err()
}

// Registration validates self sign-up, where a password is mandatory.
func Registration(username, mailAddr, password string) error {
	err := User(models.UserInput{Username: username, Email: mailAddr, Password: password})
	f := fields{}
	if ve, ok := err.(*ValidationError); ok {
		f = ve.Fields
	}
	if password == "" {
		f.add("password", "is required")
	}
	return f.err()
}

// Role accepts any non-empty role without spaces; the backend owns the set
// of roles and unknown ones are simply non-privileged.
func Role(role string) error {
	f := fields{}
	if strings.TrimSpace(role) == "" || strings.ContainsAny(role, " \t") {
		f.add("role", "is required and must not contain spaces")
	}
	return f.err()
}

func email(addr string) string {
	if addr == "" {
		return "is required"
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "is not a valid address"
	}
	return ""
}
