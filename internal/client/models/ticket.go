package models

import "time"

type Ticket struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	EventID   FlexID     `json:"eventId"`
	UserID    FlexID     `json:"userId"`
	Status    string     `json:"status"`
	Paid      bool       `json:"paid"`
	CreatedAt time.Time  `json:"createdAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

const (
	TicketActive    = "active"
	TicketUsed      = "used"
	TicketCancelled = "cancelled"
)

// TicketVerification is the result of looking up a ticket by code.
type TicketVerification struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Ticket  Ticket `json:"ticket"`
}

// CheckoutSession mirrors the payment provider's session as relayed by the
// backend.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	EventID       FlexID `json:"eventId"`
}

// Paid reports whether the provider has captured payment.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}
