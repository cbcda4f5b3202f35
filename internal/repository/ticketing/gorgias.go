package ticketing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"customerSegments/business/ticketing"
	"customerSegments/domain"
)

type GorgiasConfig struct {
	GorgiasBaseURL  string
	GorgiasUsername string
	GorgiasAPIKey   string
}

type Gorgias struct {
	client apiClient
}

var _ ticketing.Provider = (*Gorgias)(nil)

func NewGorgias(cfg GorgiasConfig) *Gorgias {
	return &Gorgias{
		client: newAPIClient(strings.TrimRight(cfg.GorgiasBaseURL, "/"), cfg.GorgiasUsername, cfg.GorgiasAPIKey),
	}
}

func (g *Gorgias) Name() string { return "gorgias" }

type gorgiasTag struct {
	Name string `json:"name"`
}

type gorgiasCustomer struct {
	Email string `json:"email"`
}

type gorgiasMessage struct {
	Channel   string           `json:"channel"`
	Via       string           `json:"via"`
	FromAgent bool             `json:"from_agent"`
	Subject   string           `json:"subject,omitempty"`
	BodyText  string           `json:"body_text"`
	Sender    *gorgiasCustomer `json:"sender,omitempty"`
}

type gorgiasTicket struct {
	ID              int64            `json:"id,omitempty"`
	ExternalID      string           `json:"external_id,omitempty"`
	Subject         string           `json:"subject,omitempty"`
	Status          string           `json:"status,omitempty"`
	Tags            []gorgiasTag     `json:"tags,omitempty"`
	Customer        *gorgiasCustomer `json:"customer,omitempty"`
	Messages        []gorgiasMessage `json:"messages,omitempty"`
	CreatedDatetime time.Time        `json:"created_datetime,omitzero"`
	UpdatedDatetime time.Time        `json:"updated_datetime,omitzero"`
}

type gorgiasList struct {
	Data []gorgiasTicket `json:"data"`
}

func (g *Gorgias) CreateTicket(ctx context.Context, t domain.Ticket) (domain.Ticket, error) {
	customer := &gorgiasCustomer{Email: t.CustomerEmail}
	in := gorgiasTicket{
		ExternalID: t.CustomerID,
		Subject:    t.Subject,
		Tags:       toGorgiasTags(t.Tags),
		Customer:   customer,
		Messages: []gorgiasMessage{{
			Channel:  "api",
			Via:      "api",
			Subject:  t.Subject,
			BodyText: t.Body,
			Sender:   customer,
		}},
	}
	var out gorgiasTicket
	if err := g.client.do(ctx, http.MethodPost, "/api/tickets", in, &out); err != nil {
		return domain.Ticket{}, err
	}
	created := fromGorgias(out)
	created.Body = t.Body
	return created, nil
}

func (g *Gorgias) UpdateTicket(ctx context.Context, id string, upd domain.TicketUpdate) (domain.Ticket, error) {
	in := gorgiasTicket{Tags: toGorgiasTags(upd.Tags)}
	if upd.Subject != nil {
		in.Subject = *upd.Subject
	}
	if upd.Status != nil {
		in.Status = toGorgiasStatus(*upd.Status)
	}
	var out gorgiasTicket
	if err := g.client.do(ctx, http.MethodPut, "/api/tickets/"+url.PathEscape(id), in, &out); err != nil {
		return domain.Ticket{}, err
	}
	return fromGorgias(out), nil
}

func (g *Gorgias) CloseTicket(ctx context.Context, id string) error {
	status := domain.TicketClosed
	_, err := g.UpdateTicket(ctx, id, domain.TicketUpdate{Status: &status})
	return err
}

// AddComment posts an agent message; private comments become internal notes.
func (g *Gorgias) AddComment(ctx context.Context, id, body string, public bool) error {
	channel := "api"
	if !public {
		channel = "internal-note"
	}
	in := gorgiasMessage{Channel: channel, Via: "api", FromAgent: true, BodyText: body}
	return g.client.do(ctx, http.MethodPost, "/api/tickets/"+url.PathEscape(id)+"/messages", in, nil)
}

// ListTickets filters by email and status on the client side.
func (g *Gorgias) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	params := url.Values{}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/api/tickets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out gorgiasList
	if err := g.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list gorgias tickets: %w", err)
	}
	tickets := make([]domain.Ticket, 0, len(out.Data))
	for _, gt := range out.Data {
		t := fromGorgias(gt)
		if filter.CustomerEmail != "" && !strings.EqualFold(t.CustomerEmail, filter.CustomerEmail) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func toGorgiasTags(tags []string) []gorgiasTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]gorgiasTag, len(tags))
	for i, t := range tags {
		out[i] = gorgiasTag{Name: t}
	}
	return out
}

func fromGorgias(gt gorgiasTicket) domain.Ticket {
	t := domain.Ticket{
		ID:         strconv.FormatInt(gt.ID, 10),
		CustomerID: gt.ExternalID,
		Subject:    gt.Subject,
		Status:     fromGorgiasStatus(gt.Status),
		CreatedAt:  gt.CreatedDatetime,
		UpdatedAt:  gt.UpdatedDatetime,
	}
	if gt.Customer != nil {
		t.CustomerEmail = gt.Customer.Email
	}
	for _, tag := range gt.Tags {
		t.Tags = append(t.Tags, tag.Name)
	}
	return t
}

func toGorgiasStatus(s domain.TicketStatus) string {
	if s == domain.TicketClosed {
		return "closed"
	}
	return "open"
}

func fromGorgiasStatus(s string) domain.TicketStatus {
	if s == "closed" {
		return domain.TicketClosed
	}
	return domain.TicketOpen
}
