package models

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCancelled:
		return true
	}
	return false
}

type Event struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Status       EventStatus `json:"status"`
	CreatedBy    FlexID      `json:"createdBy"`
	TeamID       FlexID      `json:"teamId,omitempty"`
	CategoryID   FlexID      `json:"categoryId,omitempty"`
	Location     string      `json:"location,omitempty"`
	Price        float64     `json:"price"`
	MaxAttendees int         `json:"maxAttendees"`
	IsPublic     bool        `json:"isPublic"`
	StartsAt     time.Time   `json:"startDate"`
	EndsAt       time.Time   `json:"endDate"`
	Attendees    int         `json:"attendeeCount,omitempty"`
}

// Paid reports whether attending requires a ticket purchase.
func (e *Event) Paid() bool { return e.Price > 0 }

// Input returns the editable fields of e.
func (e *Event) Input() EventInput {
	return EventInput{
		Title:        e.Title,
		Description:  e.Description,
		Status:       e.Status,
		TeamID:       e.TeamID.Int64(),
		CategoryID:   e.CategoryID.Int64(),
		Location:     e.Location,
		Price:        e.Price,
		MaxAttendees: e.MaxAttendees,
		IsPublic:     e.IsPublic,
		StartsAt:     e.StartsAt,
		EndsAt:       e.EndsAt,
	}
}

// EventInput is the payload for creating or updating an event.
type EventInput struct {
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Status       EventStatus `json:"status,omitempty"`
	TeamID       int64       `json:"teamId,omitempty"`
	CategoryID   int64       `json:"categoryId,omitempty"`
	Location     string      `json:"location,omitempty"`
	Price        float64     `json:"price"`
	MaxAttendees int         `json:"maxAttendees"`
	IsPublic     bool        `json:"isPublic"`
	StartsAt     time.Time   `json:"startDate"`
	EndsAt       time.Time   `json:"endDate"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Registration struct {
	ID        int64     `json:"id"`
	EventID   FlexID    `json:"eventId"`
	UserID    FlexID    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
