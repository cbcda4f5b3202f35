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

type ZendeskConfig struct {
	ZendeskBaseURL  string
	ZendeskEmail    string
	ZendeskAPIToken string
}

type Zendesk struct {
	client apiClient
}

var _ ticketing.Provider = (*Zendesk)(nil)

// NewZendesk authenticates with an API token, so the basic-auth user is
// "<email>/token".
func NewZendesk(cfg ZendeskConfig) *Zendesk {
	return &Zendesk{
		client: newAPIClient(strings.TrimRight(cfg.ZendeskBaseURL, "/"), cfg.ZendeskEmail+"/token", cfg.ZendeskAPIToken),
	}
}

func (z *Zendesk) Name() string { return "zendesk" }

type zendeskComment struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

type zendeskRequester struct {
	Email string `json:"email"`
}

type zendeskTicket struct {
	ID         int64             `json:"id,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Status     string            `json:"status,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Comment    *zendeskComment   `json:"comment,omitempty"`
	Requester  *zendeskRequester `json:"requester,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitzero"`
	UpdatedAt  time.Time         `json:"updated_at,omitzero"`
}

type zendeskEnvelope struct {
	Ticket zendeskTicket `json:"ticket"`
}

type zendeskSearchResult struct {
	Results []zendeskTicket `json:"results"`
}

func (z *Zendesk) CreateTicket(ctx context.Context, t domain.Ticket) (domain.Ticket, error) {
	in := zendeskEnvelope{Ticket: zendeskTicket{
		ExternalID: t.CustomerID,
		Subject:    t.Subject,
		Tags:       t.Tags,
		Comment:    &zendeskComment{Body: t.Body, Public: true},
		Requester:  &zendeskRequester{Email: t.CustomerEmail},
	}}
	var out zendeskEnvelope
	if err := z.client.do(ctx, http.MethodPost, "/api/v2/tickets.json", in, &out); err != nil {
		return domain.Ticket{}, err
	}
	created := fromZendesk(out.Ticket)
	created.CustomerEmail = t.CustomerEmail
	created.Body = t.Body
	return created, nil
}

func (z *Zendesk) UpdateTicket(ctx context.Context, id string, upd domain.TicketUpdate) (domain.Ticket, error) {
	zt := zendeskTicket{Tags: upd.Tags}
	if upd.Subject != nil {
		zt.Subject = *upd.Subject
	}
	if upd.Status != nil {
		zt.Status = toZendeskStatus(*upd.Status)
	}
	var out zendeskEnvelope
	if err := z.client.do(ctx, http.MethodPut, "/api/v2/tickets/"+url.PathEscape(id)+".json", zendeskEnvelope{Ticket: zt}, &out); err != nil {
		return domain.Ticket{}, err
	}
	return fromZendesk(out.Ticket), nil
}

// CloseTicket marks the ticket solved; Zendesk closes solved tickets itself.
func (z *Zendesk) CloseTicket(ctx context.Context, id string) error {
	status := domain.TicketClosed
	_, err := z.UpdateTicket(ctx, id, domain.TicketUpdate{Status: &status})
	return err
}

func (z *Zendesk) AddComment(ctx context.Context, id, body string, public bool) error {
	in := zendeskEnvelope{Ticket: zendeskTicket{Comment: &zendeskComment{Body: body, Public: public}}}
	return z.client.do(ctx, http.MethodPut, "/api/v2/tickets/"+url.PathEscape(id)+".json", in, nil)
}

func (z *Zendesk) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	query := []string{"type:ticket"}
	if filter.CustomerEmail != "" {
		query = append(query, "requester:"+filter.CustomerEmail)
	}
	if filter.Status != "" {
		query = append(query, "status:"+toZendeskStatus(filter.Status))
	}
	params := url.Values{}
	params.Set("query", strings.Join(query, " "))
	if filter.Limit > 0 {
		params.Set("per_page", strconv.Itoa(filter.Limit))
	}

	var out zendeskSearchResult
	if err := z.client.do(ctx, http.MethodGet, "/api/v2/search.json?"+params.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to search zendesk tickets: %w", err)
	}
	tickets := make([]domain.Ticket, 0, len(out.Results))
	for _, zt := range out.Results {
		t := fromZendesk(zt)
		t.CustomerEmail = filter.CustomerEmail
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func fromZendesk(zt zendeskTicket) domain.Ticket {
	return domain.Ticket{
		ID:         strconv.FormatInt(zt.ID, 10),
		CustomerID: zt.ExternalID,
		Subject:    zt.Subject,
		Status:     fromZendeskStatus(zt.Status),
		Tags:       zt.Tags,
		CreatedAt:  zt.CreatedAt,
		UpdatedAt:  zt.UpdatedAt,
	}
}

func toZendeskStatus(s domain.TicketStatus) string {
	switch s {
	case domain.TicketClosed:
		return "solved"
	case domain.TicketPending:
		return "pending"
	default:
		return "open"
	}
}

func fromZendeskStatus(s string) domain.TicketStatus {
	switch s {
	case "solved", "closed":
		return domain.TicketClosed
	case "pending", "hold":
		return domain.TicketPending
	default:
		return domain.TicketOpen
	}
}
