package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"modwatch/internal/services"
)

// Progress phases reported by the verification tool.
const (
	PhaseDownload     = "download"
	PhaseReadManifest = "read_manifest"
	PhaseVerifyItem   = "verify_item"
)

// Progress is one progress report from a running verification job.
type Progress struct {
	Type    string `json:"type"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

// Target names one listing the tool should verify.
type Target struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Reference names one tracked item whose content the tool matches
// against.
type Reference struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name,omitempty"`
}

// StartRequest is the verification job submission payload.
type StartRequest struct {
	Targets    []Target    `json:"targets"`
	References []Reference `json:"references"`
}

// ItemResult is the per-reference portion of a listing result.
type ItemResult struct {
	MatchedFiles int     `json:"matchedFiles"`
	TotalFiles   int     `json:"totalFiles"`
	Percentage   float64 `json:"percentage"`
}

// Result is the verification outcome for one listing.
type Result struct {
	ListingID       string                `json:"listingId"`
	Verified        bool                  `json:"verified"`
	MatchPercentage float64               `json:"matchPercentage"`
	MatchedFiles    int                   `json:"matchedFiles"`
	TotalFiles      int                   `json:"totalFiles"`
	PerItem         map[string]ItemResult `json:"modResults,omitempty"`
	TakenDown       bool                  `json:"takenDown"`
	Error           string                `json:"error,omitempty"`
}

// Status is the polled state of the verification job.
type Status struct {
	Running  bool      `json:"running"`
	Progress *Progress `json:"progress,omitempty"`
	Results  []Result  `json:"results,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ToolConfig describes the verification tool binding.
type ToolConfig struct {
	Path       string `json:"path"`
	Configured bool   `json:"configured"`
}

// Client talks to the local verification tool's HTTP control surface.
// The tool downloads listings itself, so requests here are not paced
// by the marketplace scheduler.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

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

// WithPollInterval overrides the status polling cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// New creates a verification tool client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("verify base url required")
	}
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Start submits a verification job. A job already in flight maps to
// ErrAlreadyRunning; a tool without a configured binary maps to
// ErrPrecondition.
func (c *Client) Start(ctx context.Context, req StartRequest) error {
	if len(req.Targets) == 0 {
		return services.Wrap(services.ErrValidation, "verify", "start", "no listings to verify", nil)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal start request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/verify/start", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "verify", "start", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return services.Wrap(services.ErrAlreadyRunning, "verify", "start", "a verification job is already running", nil)
	case http.StatusPreconditionFailed:
		return services.Wrap(services.ErrPrecondition, "verify", "start", "verification tool is not configured", nil)
	default:
		return services.Wrap(services.ErrExternalTool, "verify", "start",
			fmt.Sprintf("tool returned %d: %s", resp.StatusCode, readBodySnippet(resp.Body)), nil)
	}
}

// FetchStatus reads the current job state once.
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/verify/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "verify", "status", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "verify", "status",
			fmt.Sprintf("tool returned %d", resp.StatusCode), nil)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// Poll watches a running job until it finishes, reporting each
// progress update through onProgress. It returns the final results, or
// the job's error. Cancelling the context stops polling; the job keeps
// running on the tool side.
func (c *Client) Poll(ctx context.Context, onProgress func(Progress)) ([]Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.FetchStatus(ctx)
		if err != nil {
			return nil, err
		}
		if status.Progress != nil && onProgress != nil {
			onProgress(*status.Progress)
		}
		if !status.Running {
			if status.Error != "" {
				return status.Results, services.Wrap(services.ErrExternalTool, "verify", "run", status.Error, nil)
			}
			if len(status.Results) == 0 {
				return nil, services.Wrap(services.ErrExternalTool, "verify", "run",
					"job finished without results or an error", nil)
			}
			return status.Results, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tool reads the current verification tool binding.
func (c *Client) Tool(ctx context.Context) (*ToolConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/verify/tool", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "verify", "tool", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "verify", "tool",
			fmt.Sprintf("tool returned %d", resp.StatusCode), nil)
	}
	var cfg ToolConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode tool config: %w", err)
	}
	return &cfg, nil
}

// SetToolPath points the verification service at a tool binary.
func (c *Client) SetToolPath(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrValidation, "verify", "set tool", "path must not be empty", nil)
	}
	body, err := json.Marshal(ToolConfig{Path: path})
	if err != nil {
		return fmt.Errorf("marshal tool config: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/verify/tool", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "verify", "set tool", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return services.Wrap(services.ErrExternalTool, "verify", "set tool",
			fmt.Sprintf("tool returned %d: %s", resp.StatusCode, readBodySnippet(resp.Body)), nil)
	}
	return nil
}

func readBodySnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
