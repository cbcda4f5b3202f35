package domain

import "time"

type TicketStatus string

const (
	TicketOpen    TicketStatus = "open"
	TicketPending TicketStatus = "pending"
	TicketClosed  TicketStatus = "closed"
)

type Ticket struct {
	ID            string       `json:"id"`
	CustomerID    string       `json:"customer_id"`
	CustomerEmail string       `json:"customer_email"`
	Subject       string       `json:"subject"`
	Body          string       `json:"body"`
	Status        TicketStatus `json:"status"`
	Tags          []string     `json:"tags"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type TicketUpdate struct {
	Subject *string       `json:"subject,omitempty"`
	Status  *TicketStatus `json:"status,omitempty"`
	Tags    []string      `json:"tags,omitempty"`
}

type TicketFilter struct {
	CustomerEmail string       `json:"customer_email,omitempty"`
	Status        TicketStatus `json:"status,omitempty"`
	Limit         int          `json:"limit,omitempty"`
}
