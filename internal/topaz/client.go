// Package topaz integrates with the Topaz Labs enhancement API. The
// API's upload protocol changed shape over time; each observed
// generation is modeled as a Submitter and the active one is selected
// through configuration.
package topaz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"mediaboost/internal/infra"
	"mediaboost/internal/upload"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("topaz: api key is required")

// Options configures the Topaz API client.
type Options struct {
	APIKey         string
	BaseURL        string
	Protocol       string
	Concurrency    int
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Topaz enhancement API.
type Client struct {
	apiKey     string
	baseURL    string
	protocol   string
	httpClient *http.Client
	logger     *infra.Logger
	uploader   *upload.Uploader
}

// Submitter normalizes one generation of the job submission protocol
// behind a single operation: submit the job, transfer the source bytes
// and hand back the remote job identifier.
type Submitter interface {
	Submit(ctx context.Context, src Source, job JobRequest) (*Submission, error)
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Part transfers for long sources can legitimately take many
		// minutes, so there is no blanket timeout; callers bound the
		// work through their context.
		httpClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.topazlabs.com"
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = infra.ProtocolMultipart
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		protocol:   protocol,
		httpClient: httpClient,
		logger:     logger,
		uploader:   upload.NewUploader(httpClient, opts.Concurrency, *logger),
	}, nil
}

// Submitter returns the protocol implementation selected at
// construction time.
func (c *Client) Submitter() Submitter {
	switch c.protocol {
	case infra.ProtocolForm:
		return formSubmitter{c}
	case infra.ProtocolDirect:
		return directSubmitter{c}
	default:
		return multipartSubmitter{c}
	}
}

// SubmitAndUpload submits the job through the active protocol variant.
func (c *Client) SubmitAndUpload(ctx context.Context, src Source, job JobRequest) (*Submission, error) {
	return c.Submitter().Submit(ctx, src, job)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("topaz: build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("topaz: encode request: %w", err)
		}
		body = strings.NewReader(string(raw))
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("topaz: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("topaz: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// apiError turns a remote failure into a single human-readable message.
// Remote error bodies may be structured JSON, plain text or binary
// depending on how the call failed; binary bodies are never forwarded.
func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))

	var detail struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if msg := strings.TrimSpace(firstOf(detail.Error, detail.Message)); msg != "" {
			return fmt.Errorf("topaz: %s (status %d)", msg, resp.StatusCode)
		}
	}

	text := strings.TrimSpace(string(raw))
	if text != "" && utf8.ValidString(text) && !strings.ContainsRune(text, 0) {
		if len(text) > 300 {
			text = text[:300]
		}
		return fmt.Errorf("topaz: status %d: %s", resp.StatusCode, text)
	}
	return fmt.Errorf("topaz: status %d", resp.StatusCode)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
