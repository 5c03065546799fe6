package workshop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"modwatch/internal/scheduler"
)

// Listing is a single marketplace listing returned by a search.
type Listing struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// SearchResponse models the search endpoint payload.
type SearchResponse struct {
	ExternalID string    `json:"externalId"`
	Count      int       `json:"count"`
	Items      []Listing `json:"items"`
}

// CatalogResponse models a seller catalog page.
type CatalogResponse struct {
	ProfileID string    `json:"profileId"`
	Items     []Listing `json:"items"`
}

// Detail carries the per-listing metadata used by catalog import.
type Detail struct {
	ListingID  string `json:"listingId"`
	ExternalID string `json:"externalId"`
}

// Existence reports whether a listing is still reachable.
type Existence int

const (
	// ExistenceUnknown means the check could not decide either way.
	ExistenceUnknown Existence = iota
	// ExistenceActive means the listing is still up.
	ExistenceActive
	// ExistenceGone means the listing has been removed.
	ExistenceGone
)

// Searcher defines the marketplace operations used by tracking and
// takedown rechecks.
type Searcher interface {
	Search(ctx context.Context, externalID string, maxPages int) (*SearchResponse, error)
	Exists(ctx context.Context, listingID string) (Existence, error)
	Catalog(ctx context.Context, profileID string, maxPages int) (*CatalogResponse, error)
	ListingDetail(ctx context.Context, listingID string) (*Detail, error)
}

// Client talks to the marketplace search API. Every request is paced
// through the shared scheduler so batch operations never exceed the
// remote rate limits.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sched      *scheduler.Scheduler
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a marketplace client paced by sched.
func New(baseURL string, sched *scheduler.Scheduler, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("workshop base url required")
	}
	if sched == nil {
		return nil, errors.New("workshop scheduler required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sched:      sched,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search fetches all listings matching an embedded external identifier,
// up to maxPages result pages.
func (c *Client) Search(ctx context.Context, externalID string, maxPages int) (*SearchResponse, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.New("external id must not be empty")
	}
	params := url.Values{}
	params.Set("externalId", externalID)
	if maxPages > 0 {
		params.Set("maxPages", strconv.Itoa(maxPages))
	}

	var payload SearchResponse
	if err := c.get(ctx, "/api/search", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Exists checks whether a listing is still reachable on the
// marketplace.
func (c *Client) Exists(ctx context.Context, listingID string) (Existence, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return ExistenceUnknown, errors.New("listing id must not be empty")
	}
	params := url.Values{}
	params.Set("listingId", listingID)

	var payload struct {
		Exists *bool `json:"exists"`
	}
	if err := c.get(ctx, "/api/exists", params, &payload); err != nil {
		return ExistenceUnknown, err
	}
	switch {
	case payload.Exists == nil:
		return ExistenceUnknown, nil
	case *payload.Exists:
		return ExistenceActive, nil
	default:
		return ExistenceGone, nil
	}
}

// Catalog fetches a seller's listing catalog, up to maxPages pages.
func (c *Client) Catalog(ctx context.Context, profileID string, maxPages int) (*CatalogResponse, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("profile id must not be empty")
	}
	params := url.Values{}
	params.Set("profileId", profileID)
	if maxPages > 0 {
		params.Set("maxPages", strconv.Itoa(maxPages))
	}

	var payload CatalogResponse
	if err := c.get(ctx, "/api/catalog", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListingDetail fetches the detail page for a listing, including the
// external identifier embedded in it when present.
func (c *Client) ListingDetail(ctx context.Context, listingID string) (*Detail, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return nil, errors.New("listing id must not be empty")
	}
	params := url.Values{}
	params.Set("listingId", listingID)

	var payload Detail
	if err := c.get(ctx, "/api/detail", params, &payload); err != nil {
		return nil, err
	}
	if payload.ListingID == "" {
		payload.ListingID = listingID
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse workshop url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	return c.sched.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return fmt.Errorf("execute request (latency=%v): %w", latency, err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusTooManyRequests, http.StatusForbidden:
			return fmt.Errorf("workshop %s returned %d (latency=%v): %w", path, resp.StatusCode, latency, scheduler.ErrThrottled)
		default:
			return fmt.Errorf("workshop %s returned %d (latency=%v)", path, resp.StatusCode, latency)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode workshop response: %w", err)
		}
		return nil
	})
}
