// Package llm names discovered segments through an OpenAI-compatible chat
// completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/pkg/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidConfig = errors.New("invalid llm configuration")
	ErrBadResponse   = errors.New("unparseable naming response")
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	RatePerMin  int
	MaxTokens   int
	Temperature float64
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Namer implements segmentation.Namer. Calls are throttled to RatePerMin
// across every axis of every run sharing the Namer.
type Namer struct {
	model   llms.Model
	limiter *rate.Limiter
	config  Config
}

var _ segmentation.Namer = (*Namer)(nil)

func NewNamer(config Config) (*Namer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return newNamer(client, config), nil
}

func newNamer(model llms.Model, config Config) *Namer {
	limit := rate.Inf
	burst := 1
	if config.RatePerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RatePerMin))
		burst = max(1, config.RatePerMin/10)
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 120
	}
	return &Namer{
		model:   model,
		limiter: rate.NewLimiter(limit, burst),
		config:  config,
	}
}

func (n *Namer) NameSegment(ctx context.Context, req segmentation.NamingRequest) (segmentation.NamingResponse, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return segmentation.NamingResponse{}, fmt.Errorf("waiting for naming quota: %w", err)
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, n.model, buildPrompt(req),
		llms.WithMaxTokens(n.config.MaxTokens),
		llms.WithTemperature(n.config.Temperature),
	)
	if err != nil {
		return segmentation.NamingResponse{}, fmt.Errorf("generating segment name: %w", err)
	}
	resp, err := parseResponse(out)
	if err != nil {
		logger.Debug("segment_naming_unparsed", "run_id", segmentation.RunIDFromContext(ctx), "axis", req.Axis, "output", out)
		return resp, err
	}
	logger.Debug("segment_named", "run_id", segmentation.RunIDFromContext(ctx), "axis", req.Axis, "name", resp.Name)
	return resp, nil
}

func buildPrompt(req segmentation.NamingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You name customer segments for a retail analytics team.\n")
	fmt.Fprintf(&b, "Behavioral axis: %s\n", req.Axis)
	fmt.Fprintf(&b, "Share of customers in this segment: %.1f%%\n", req.PopulationPct)
	b.WriteString("Segment center (value, percentile within all customers):\n")
	for _, f := range req.FeatureNames {
		fmt.Fprintf(&b, "- %s: %.3f (p%.0f)\n", f, req.Center[f], req.Percentiles[f])
	}
	b.WriteString("Reply with JSON only: {\"name\": \"<2-4 word snake_case name>\", \"description\": \"<one sentence>\"}")
	return b.String()
}

// parseResponse accepts the bare JSON object or one wrapped in a markdown
// code fence.
func parseResponse(out string) (segmentation.NamingResponse, error) {
	s := strings.TrimSpace(out)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}

	var resp segmentation.NamingResponse
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return segmentation.NamingResponse{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if strings.TrimSpace(resp.Name) == "" {
		return segmentation.NamingResponse{}, fmt.Errorf("%w: empty name", ErrBadResponse)
	}
	return resp, nil
}
