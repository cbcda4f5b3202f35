package ticketing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"customerSegments/business/ticketing"
	"customerSegments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

func recordingServer(t *testing.T, status int, response any, reqs *[]recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		*reqs = append(*reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			_ = json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestZendesk_CreateTicket(t *testing.T) {
	var reqs []recordedRequest
	srv := recordingServer(t, http.StatusCreated, map[string]any{
		"ticket": map[string]any{
			"id":          4711,
			"external_id": "c1",
			"subject":     "Late delivery",
			"status":      "new",
			"tags":        []string{"segment_purchase_value_big_spenders"},
			"created_at":  "2025-06-01T10:00:00Z",
		},
	}, &reqs)

	z := NewZendesk(ZendeskConfig{ZendeskBaseURL: srv.URL + "/", ZendeskEmail: "agent@shop.test", ZendeskAPIToken: "secret"})
	tk, err := z.CreateTicket(context.Background(), domain.Ticket{
		CustomerID:    "c1",
		CustomerEmail: "c1@example.com",
		Subject:       "Late delivery",
		Body:          "Where is my order?",
		Tags:          []string{"segment_purchase_value_big_spenders"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4711", tk.ID)
	assert.Equal(t, domain.TicketOpen, tk.Status)
	assert.Equal(t, "c1@example.com", tk.CustomerEmail)
	assert.Equal(t, 2025, tk.CreatedAt.Year())

	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/v2/tickets.json", reqs[0].Path)
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("agent@shop.test/token:secret"))
	assert.Equal(t, want, reqs[0].Auth)

	sent := reqs[0].Body["ticket"].(map[string]any)
	assert.Equal(t, "c1@example.com", sent["requester"].(map[string]any)["email"])
	assert.Equal(t, "Where is my order?", sent["comment"].(map[string]any)["body"])
	assert.NotContains(t, sent, "created_at")
}

func TestZendesk_CloseAndComment(t *testing.T) {
	var reqs []recordedRequest
	srv := recordingServer(t, http.StatusOK, map[string]any{"ticket": map[string]any{"id": 7, "status": "solved"}}, &reqs)
	z := NewZendesk(ZendeskConfig{ZendeskBaseURL: srv.URL, ZendeskEmail: "a", ZendeskAPIToken: "b"})

	require.NoError(t, z.CloseTicket(context.Background(), "7"))
	require.NoError(t, z.AddComment(context.Background(), "7", "internal note", false))

	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/api/v2/tickets/7.json", reqs[0].Path)
	assert.Equal(t, "solved", reqs[0].Body["ticket"].(map[string]any)["status"])
	comment := reqs[1].Body["ticket"].(map[string]any)["comment"].(map[string]any)
	assert.Equal(t, false, comment["public"])
}

func TestZendesk_ListTicketsBuildsSearchQuery(t *testing.T) {
	var reqs []recordedRequest
	srv := recordingServer(t, http.StatusOK, map[string]any{
		"results": []map[string]any{{"id": 1, "status": "pending"}, {"id": 2, "status": "hold"}},
	}, &reqs)
	z := NewZendesk(ZendeskConfig{ZendeskBaseURL: srv.URL})

	list, err := z.ListTickets(context.Background(), domain.TicketFilter{CustomerEmail: "c1@example.com", Status: domain.TicketPending, Limit: 5})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.TicketPending, list[1].Status)

	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v2/search.json", reqs[0].Path)
	assert.Contains(t, reqs[0].Query, "per_page=5")
	assert.Contains(t, reqs[0].Query, "requester%3Ac1%40example.com")
	assert.Contains(t, reqs[0].Query, "status%3Apending")
}

func TestZendesk_ErrorResponses(t *testing.T) {
	var reqs []recordedRequest
	srv := recordingServer(t, http.StatusNotFound, map[string]any{"error": "RecordNotFound"}, &reqs)
	z := NewZendesk(ZendeskConfig{ZendeskBaseURL: srv.URL})
	err := z.CloseTicket(context.Background(), "404")
	assert.ErrorIs(t, err, ticketing.ErrTicketNotFound)

	var reqs2 []recordedRequest
	srv2 := recordingServer(t, http.StatusUnprocessableEntity, map[string]any{"error": "RecordInvalid"}, &reqs2)
	z2 := NewZendesk(ZendeskConfig{ZendeskBaseURL: srv2.URL})
	_, err = z2.CreateTicket(context.Background(), domain.Ticket{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
