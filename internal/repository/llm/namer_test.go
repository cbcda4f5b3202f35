package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func chatServer(t *testing.T, content string, seen *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			seen.Store(string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleRequest() segmentation.NamingRequest {
	return segmentation.NamingRequest{
		Axis:          "purchase_frequency",
		FeatureNames:  []string{"orders_per_month", "avg_days_between_orders"},
		Center:        map[string]float64{"orders_per_month": 8, "avg_days_between_orders": 3.5},
		Percentiles:   map[string]float64{"orders_per_month": 92, "avg_days_between_orders": 8},
		PopulationPct: 12.5,
	}
}

func TestNamer_NameSegment(t *testing.T) {
	var seen atomic.Value
	srv := chatServer(t, "```json\n{\"name\": \"weekly_regulars\", \"description\": \"Shop every few days.\"}\n```", &seen)

	n, err := NewNamer(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model", RatePerMin: 600})
	require.NoError(t, err)

	resp, err := n.NameSegment(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "weekly_regulars", resp.Name)
	assert.Equal(t, "Shop every few days.", resp.Description)

	body, _ := seen.Load().(string)
	assert.Contains(t, body, "purchase_frequency")
	assert.Contains(t, body, "orders_per_month")
}

func TestNamer_BadResponse(t *testing.T) {
	srv := chatServer(t, "I would call them loyal shoppers", nil)
	n, err := NewNamer(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model"})
	require.NoError(t, err)

	_, err = n.NameSegment(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestNamer_LogsRunID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer logger.SetForTest(core)()

	srv := chatServer(t, `{"name": "weekly_regulars", "description": "Shop every few days."}`, nil)
	n, err := NewNamer(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model", RatePerMin: 600})
	require.NoError(t, err)

	ctx := segmentation.WithRunID(context.Background(), "run-42")
	_, err = n.NameSegment(ctx, sampleRequest())
	require.NoError(t, err)

	named := logs.FilterMessage("segment_named").All()
	require.Len(t, named, 1)
	assert.Equal(t, "run-42", named[0].ContextMap()["run_id"])
	assert.Equal(t, "weekly_regulars", named[0].ContextMap()["name"])
}

func TestNamer_RateLimitHonorsDeadline(t *testing.T) {
	srv := chatServer(t, `{"name": "a", "description": "b"}`, nil)
	n, err := NewNamer(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model", RatePerMin: 1})
	require.NoError(t, err)

	_, err = n.NameSegment(context.Background(), sampleRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = n.NameSegment(ctx, sampleRequest())
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	_, err := NewNamer(Config{Model: "m"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewNamer(Config{APIKey: "k"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildPrompt_ListsFeaturesInAxisOrder(t *testing.T) {
	p := buildPrompt(sampleRequest())
	i := strings.Index(p, "orders_per_month")
	j := strings.Index(p, "avg_days_between_orders")
	require.True(t, i > 0 && j > 0)
	assert.Less(t, i, j)
	assert.Contains(t, p, "p92")
	assert.Contains(t, p, "12.5%")
}
