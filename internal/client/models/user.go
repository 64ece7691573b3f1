package models

import "time"

// User is a row in the admin users list.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsSiteAdmin bool      `json:"isSiteAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	IsSiteAdmin bool   `json:"isSiteAdmin"`
}

// Tokens is the credential pair issued by the auth endpoints.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Dashboard is the consolidated admin read.
type Dashboard struct {
	Users  []User  `json:"users"`
	Teams  []Team  `json:"teams"`
	Events []Event `json:"events"`
	Stats  Stats   `json:"stats"`
}

type Stats struct {
	TotalUsers      int `json:"totalUsers"`
	TotalTeams      int `json:"totalTeams"`
	TotalEvents     int `json:"totalEvents"`
	PublishedEvents int `json:"publishedEvents"`
	DraftEvents     int `json:"draftEvents"`
}
