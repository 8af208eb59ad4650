// Package websearch runs planned queries against the Serper search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"screener/internal/screening/models"
	"screener/internal/screening/trust"
	"screener/pkg/requestcontext"
)

const (
	defaultBaseURL = "https://google.serper.dev/search"
	maxBodyBytes   = 2 << 20

	// ProviderSerper names the only supported search backend.
	ProviderSerper = "serper"
)

// Outcome messages.
const (
	MsgNotConfigured = "No search provider configured"
	MsgNoResults     = "No search results found"
	MsgTimeout       = "Timeout"
)

// Client calls the search provider once per planned query. It never
// retries. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLimit sets how many organic results to request.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client. An empty apiKey makes every search report
// MsgNotConfigured.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		limit:      5,
		httpClient: &http.Client{Timeout: 8 * time.Second},
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer("screener/websearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Providers lists the configured search backends.
func (c *Client) Providers() []string {
	if !c.IsConfigured() {
		return []string{}
	}
	return []string{ProviderSerper}
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search executes q for entity. Failures are reported in the outcome.
func (c *Client) Search(ctx context.Context, q models.PlannedQuery, entity string) models.SearchOutcome {
	ctx, span := c.tracer.Start(ctx, "websearch.search", trace.WithAttributes(
		attribute.String("screening.entity", entity),
		attribute.String("websearch.context", q.Context),
	))
	defer span.End()

	out := c.search(ctx, q, entity)
	span.SetAttributes(attribute.Int("websearch.results", len(out.Results)))
	if !out.Success {
		span.SetStatus(codes.Error, out.Error)
	}
	return out
}

func (c *Client) search(ctx context.Context, q models.PlannedQuery, entity string) models.SearchOutcome {
	if !c.IsConfigured() {
		return models.SearchFailure(q, MsgNotConfigured)
	}

	payload, err := json.Marshal(searchRequest{Q: q.Text, Num: c.limit, GL: "us", HL: "en"})
	if err != nil {
		return models.SearchFailure(q, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return models.SearchFailure(q, err.Error())
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "web search request failed",
			"entity", entity,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if isTimeout(err) {
			return models.SearchFailure(q, MsgTimeout)
		}
		return models.SearchFailure(q, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.SearchFailure(q, fmt.Sprintf("read search response: %v", err))
	}
	results, err := parseSearchResponse(resp.StatusCode, body)
	if err != nil {
		c.logger.ErrorContext(ctx, "web search rejected",
			"entity", entity,
			"status", resp.StatusCode,
			"error", err,
		)
		return models.SearchFailure(q, err.Error())
	}
	if len(results) == 0 {
		c.logger.InfoContext(ctx, "web search returned nothing", "entity", entity, "context", q.Context)
		return models.SearchFailure(q, MsgNoResults)
	}

	c.logger.InfoContext(ctx, "web search completed",
		"entity", entity,
		"context", q.Context,
		"results", len(results),
	)
	return models.SearchOutcome{Success: true, Query: q, Results: results}
}

func parseSearchResponse(status int, body []byte) ([]models.WebResult, error) {
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("search API returned status %d", status)
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]models.WebResult, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		out = append(out, models.WebResult{
			Title:   PlainText(r.Title),
			Link:    link,
			Snippet: PlainText(r.Snippet),
			Domain:  trust.HostOf(link),
		})
	}
	return out, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
}
