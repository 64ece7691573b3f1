package models

type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"memberCount"`
}

type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type TeamMember struct {
	UserID   FlexID `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}
