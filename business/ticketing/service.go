// Package ticketing opens and maintains support tickets for customers,
// labelling them with the customer's dominant behavioral segments.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"
	"customerSegments/pkg/logger"
)

var (
	ErrNoProvider     = errors.New("ticketing provider not configured")
	ErrInvalidTicket  = errors.New("invalid ticket")
	ErrTicketNotFound = errors.New("ticket not found")
)

// Provider is one helpdesk backend.
type Provider interface {
	Name() string
	CreateTicket(ctx context.Context, t domain.Ticket) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, upd domain.TicketUpdate) (domain.Ticket, error)
	CloseTicket(ctx context.Context, id string) error
	AddComment(ctx context.Context, id, body string, public bool) error
	ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error)
}

type Service struct {
	provider Provider
	profiles segmentation.ProfileStore
}

// NewService accepts a nil provider; every call then fails with ErrNoProvider.
func NewService(provider Provider, profiles segmentation.ProfileStore) *Service {
	return &Service{provider: provider, profiles: profiles}
}

type OpenRequest struct {
	TenantID      string
	CustomerID    string
	CustomerEmail string
	Subject       string
	Body          string
	Tags          []string
}

// OpenForCustomer creates a ticket tagged with one "segment_<axis>_<name>"
// tag per axis of the customer's stored profile. A customer without a
// profile still gets a ticket.
func (s *Service) OpenForCustomer(ctx context.Context, req OpenRequest) (domain.Ticket, error) {
	if s.provider == nil {
		return domain.Ticket{}, ErrNoProvider
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return domain.Ticket{}, fmt.Errorf("%w: subject and customer email are required", ErrInvalidTicket)
	}

	tags, err := s.segmentTags(ctx, req.TenantID, req.CustomerID)
	if err != nil {
		return domain.Ticket{}, err
	}

	t, err := s.provider.CreateTicket(ctx, domain.Ticket{
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		Subject:       req.Subject,
		Body:          req.Body,
		Status:        domain.TicketOpen,
		Tags:          mergeTags(req.Tags, tags),
	})
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to create %s ticket: %w", s.provider.Name(), err)
	}
	logger.Info("ticket_opened", "provider", s.provider.Name(), "ticket_id", t.ID, "customer_id", req.CustomerID, "segment_tags", len(tags))
	return t, nil
}

// RefreshSegmentTags replaces stale segment tags on an existing ticket and
// keeps every other tag.
func (s *Service) RefreshSegmentTags(ctx context.Context, tenantID, customerID, ticketID string, current []string) (domain.Ticket, error) {
	if s.provider == nil {
		return domain.Ticket{}, ErrNoProvider
	}
	tags, err := s.segmentTags(ctx, tenantID, customerID)
	if err != nil {
		return domain.Ticket{}, err
	}

	kept := make([]string, 0, len(current))
	for _, tag := range current {
		if !strings.HasPrefix(tag, segmentTagPrefix) {
			kept = append(kept, tag)
		}
	}
	return s.provider.UpdateTicket(ctx, ticketID, domain.TicketUpdate{Tags: mergeTags(kept, tags)})
}

func (s *Service) Comment(ctx context.Context, ticketID, body string, public bool) error {
	if s.provider == nil {
		return ErrNoProvider
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty comment", ErrInvalidTicket)
	}
	return s.provider.AddComment(ctx, ticketID, body, public)
}

func (s *Service) Close(ctx context.Context, ticketID string) error {
	if s.provider == nil {
		return ErrNoProvider
	}
	return s.provider.CloseTicket(ctx, ticketID)
}

func (s *Service) ListForCustomer(ctx context.Context, email string, status domain.TicketStatus, limit int) ([]domain.Ticket, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	return s.provider.ListTickets(ctx, domain.TicketFilter{CustomerEmail: email, Status: status, Limit: limit})
}

const segmentTagPrefix = "segment_"

func (s *Service) segmentTags(ctx context.Context, tenantID, customerID string) ([]string, error) {
	if s.profiles == nil || customerID == "" {
		return nil, nil
	}
	p, err := s.profiles.GetProfile(dbctx.New(ctx), tenantID, customerID)
	if errors.Is(err, segmentation.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for tagging: %w", err)
	}
	return SegmentTags(p), nil
}

// SegmentTags renders the dominant segment of every axis as a tag, sorted by
// axis.
func SegmentTags(p domain.CustomerMultiAxisProfile) []string {
	dominant := p.DominantSegments()
	axes := make([]string, 0, len(dominant))
	for axis := range dominant {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	tags := make([]string, 0, len(axes))
	for _, axis := range axes {
		if dominant[axis] == "" {
			continue
		}
		tags = append(tags, segmentTagPrefix+axis+"_"+segmentation.SanitizeName(dominant[axis]))
	}
	return tags
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
