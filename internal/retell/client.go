// Package retell wraps the voice agent platform's REST API and verifies the
// signatures it puts on webhook deliveries.
package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

const (
	defaultBaseURL   = "https://api.retellai.com"
	defaultUserAgent = "pharmacy-intake-bridge/0.1"
)

// Config controls how the client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client calls agent and call endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("retell: API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// GetAgent fetches one agent.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, errors.New("retell: agent id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/get-agent/"+url.PathEscape(agentID), nil)
	if err != nil {
		return nil, err
	}
	return decode[Agent](data)
}

// ListAgents returns every agent on the account.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/list-agents", nil)
	if err != nil {
		return nil, err
	}
	agents, err := decode[[]Agent](data)
	if err != nil {
		return nil, err
	}
	return *agents, nil
}

// CreateWebCall starts a browser call with an agent.
func (c *Client) CreateWebCall(ctx context.Context, req CreateWebCallRequest) (*Call, error) {
	if strings.TrimSpace(req.AgentID) == "" {
		return nil, errors.New("retell: agent id required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("retell: marshal web call: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/v2/create-web-call", body)
	if err != nil {
		return nil, err
	}
	return decode[Call](data)
}

// CreatePhoneCall places an outbound call, used for follow-ups.
func (c *Client) CreatePhoneCall(ctx context.Context, req CreatePhoneCallRequest) (*Call, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("retell: marshal phone call: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/v2/create-phone-call", body)
	if err != nil {
		return nil, err
	}
	return decode[Call](data)
}

// GetCall fetches a call with its transcript and analysis.
func (c *Client) GetCall(ctx context.Context, callID string) (*Call, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, errors.New("retell: call id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v2/get-call/"+url.PathEscape(callID), nil)
	if err != nil {
		return nil, err
	}
	return decode[Call](data)
}

func (c *Client) invoke(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("retell: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("retell: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("retell: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("retell: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.backoff * time.Duration(1<<attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	c.logger.Warn("retell retry", "path", path, "attempt", attempt+1, "status", status, "error", err)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	ErrorText  string `json:"error_message,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorText
	}
	if msg != "" {
		return fmt.Sprintf("retell: %s (status=%d)", msg, e.StatusCode)
	}
	return fmt.Sprintf("retell: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed APIError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	parsed.StatusCode = status
	return &parsed
}

func decode[T any](body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("retell: decode response: %w", err)
	}
	return &out, nil
}
