// Package registry queries the OpenSanctions registry by name or identifier.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"screener/internal/screening/models"
	"screener/pkg/platform/circuit"
	"screener/pkg/requestcontext"
)

const (
	defaultBaseURL = "https://api.opensanctions.org"
	searchLimit    = 10
	maxBodyBytes   = 4 << 20
)

// DefaultCollections are searched in order until one yields hits.
var DefaultCollections = []string{"default", "sanctions"}

// Client is the registry search client. Safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	collections []string
	breaker     *circuit.Breaker
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds every outbound request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCollections overrides the ordered collection list.
func WithCollections(collections ...string) Option {
	return func(c *Client) {
		if len(collections) > 0 {
			c.collections = collections
		}
	}
}

// WithBreaker skips registry calls while the provider keeps failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client. An empty apiKey is allowed; every search then
// reports the missing configuration.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		collections: DefaultCollections,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("screener/registry"),
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

// Search looks the entity up. Identifier-shaped input is first tried as a
// direct lookup; a hit there is returned without running text search.
// Failures are reported in the outcome, never as an error.
func (c *Client) Search(ctx context.Context, q models.EntityQuery) models.RegistryOutcome {
	ctx, span := c.tracer.Start(ctx, "registry.search",
		trace.WithAttributes(attribute.String("screening.entity", q.String())))
	defer span.End()

	out := c.search(ctx, q)
	span.SetAttributes(
		attribute.Bool("registry.success", out.Success),
		attribute.Int("registry.hits", len(out.Hits)),
	)
	if !out.Success {
		span.SetStatus(codes.Error, out.Error)
	}
	return out
}

func (c *Client) search(ctx context.Context, q models.EntityQuery) models.RegistryOutcome {
	if !c.IsConfigured() {
		c.logger.WarnContext(ctx, "registry search skipped", "reason", MsgNotConfigured)
		return models.RegistryFailure(MsgNotConfigured)
	}
	if !c.breaker.Allow() {
		c.logger.WarnContext(ctx, "registry search skipped, circuit open",
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.RegistryFailure(MsgUnavailable)
	}
	entity := q.String()

	if IsIdentifier(entity) {
		hit, err := c.fetchEntity(ctx, entity)
		switch {
		case err == nil:
			c.record(ctx, nil)
			c.logger.InfoContext(ctx, "registry direct lookup hit",
				"entity_id", entity,
				"request_id", requestcontext.RequestID(ctx),
			)
			return models.RegistryOutcome{
				Success:    true,
				Hits:       []models.RegistryHit{hit},
				Total:      1,
				Collection: "entities",
				Query:      entity,
			}
		case IsTerminal(err):
			c.record(ctx, err)
			c.logger.ErrorContext(ctx, "registry direct lookup rejected", "error", err)
			return models.RegistryFailure(outcomeMessage(err))
		default:
			c.record(ctx, err)
			c.logger.InfoContext(ctx, "registry direct lookup missed, falling back to search",
				"entity_id", entity,
				"category", string(GetCategory(err)),
			)
		}
	}

	variants := []string{entity, `"` + entity + `"`}
	for _, collection := range c.collections {
		hits, total, err := c.searchCollection(ctx, collection, variants)
		c.record(ctx, err)
		if err != nil {
			c.logger.ErrorContext(ctx, "registry search failed",
				"collection", collection,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return models.RegistryFailure(outcomeMessage(err))
		}
		if len(hits) > 0 {
			c.logger.InfoContext(ctx, "registry search hit",
				"collection", collection,
				"hits", len(hits),
				"total", total,
			)
			return models.RegistryOutcome{
				Success:    true,
				Hits:       hits,
				Total:      max(total, len(hits)),
				Collection: collection,
				Query:      entity,
			}
		}
	}

	c.logger.InfoContext(ctx, "registry search found nothing", "entity", entity)
	return models.RegistryOutcome{Success: true, Hits: []models.RegistryHit{}, Query: entity}
}

// record feeds the breaker. Only outages and timeouts count against the
// provider; any answer, even a rejection, shows it is reachable.
func (c *Client) record(ctx context.Context, err error) {
	if c.breaker == nil {
		return
	}
	if err == nil || (GetCategory(err) != ErrorProviderOutage && GetCategory(err) != ErrorTimeout) {
		c.breaker.RecordSuccess()
		return
	}
	if c.breaker.RecordFailure() {
		c.logger.WarnContext(ctx, "registry circuit opened",
			"breaker", c.breaker.Name(),
			"error", err,
		)
	}
}

// searchCollection runs every query variant against one collection, merging
// hits by ID in first-seen order. A timed-out variant is skipped unless all
// of them time out; terminal and unexpected errors end the search.
func (c *Client) searchCollection(ctx context.Context, collection string, variants []string) ([]models.RegistryHit, int, error) {
	seen := make(map[string]struct{})
	var merged []models.RegistryHit
	total := 0
	timeouts := 0

	for _, variant := range variants {
		hits, reported, err := c.query(ctx, collection, variant)
		if err != nil {
			if GetCategory(err) == ErrorTimeout {
				c.logger.WarnContext(ctx, "registry variant timed out",
					"collection", collection,
					"query", variant,
				)
				timeouts++
				continue
			}
			return nil, 0, err
		}
		total = max(total, reported)
		for _, h := range hits {
			key := h.ID
			if key == "" {
				key = "name:" + h.Name
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, h)
		}
	}
	if timeouts == len(variants) {
		return nil, 0, NewProviderError(ErrorTimeout, MsgTimedOut, nil)
	}
	return merged, total, nil
}

func (c *Client) query(ctx context.Context, collection, q string) ([]models.RegistryHit, int, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(q))
	params.Set("limit", strconv.Itoa(searchLimit))
	endpoint := fmt.Sprintf("%s/search/%s?%s", c.baseURL, url.PathEscape(collection), params.Encode())

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}
	return parseSearchResponse(status, body)
}

func (c *Client) fetchEntity(ctx context.Context, id string) (models.RegistryHit, error) {
	endpoint := fmt.Sprintf("%s/entities/%s", c.baseURL, url.PathEscape(id))
	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return models.RegistryHit{}, err
	}
	return parseEntityResponse(status, body)
}

func (c *Client) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, NewProviderError(ErrorInternal, "build request", err)
	}
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, NewProviderError(ErrorTimeout, "reading response timed out", err)
		}
		return 0, nil, NewProviderError(ErrorProviderOutage, "read response", err)
	}
	return resp.StatusCode, body, nil
}
