package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowdeck/internal/config"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL       string
	token         string
	http          *http.Client
	stream        *http.Client
	timeout       time.Duration
	feedTransport string
	streamDebug   bool
	logger        logging.Logger
	newMessageID  func() string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(logger)
	}
}

func WithFeedTransport(transport string) Option {
	return func(c *Client) {
		c.feedTransport = transport
	}
}

func WithStreamDebug(enabled bool) Option {
	return func(c *Client) {
		c.streamDebug = enabled
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout:       defaultTimeout,
		feedTransport: config.FeedTransportNDJSON,
		logger:        logging.Nop(),
		newMessageID:  uuid.NewString,
	}
	for _, apply := range options {
		if apply != nil {
			apply(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	// The feed is open-ended; only the caller's context bounds it.
	c.stream = &http.Client{Transport: c.http.Transport}
	return c
}

func NewFromConfig(cfg config.CoreConfig, logger logging.Logger) (*Client, error) {
	token, err := cfg.APIToken()
	if err != nil {
		return nil, fmt.Errorf("load api token: %w", err)
	}
	return New(cfg.APIBaseURL(),
		WithToken(token),
		WithTimeout(cfg.APITimeout()),
		WithLogger(logging.Component(logger, "client")),
		WithFeedTransport(cfg.FeedTransport()),
		WithStreamDebug(cfg.StreamDebugEnabled()),
	), nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListWorkflowRuns(ctx context.Context) ([]types.WorkflowRun, error) {
	var resp WorkflowRunsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/runs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

func (c *Client) GetWorkflowRun(ctx context.Context, runID string) (*types.WorkflowRun, error) {
	path, err := runPath(runID)
	if err != nil {
		return nil, err
	}
	var run types.WorkflowRun
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) ListActivityKnowledge(ctx context.Context, runID, activityKey string) ([]types.Document, error) {
	return c.listActivityDocuments(ctx, runID, activityKey, "knowledge")
}

func (c *Client) ListActivityInstructions(ctx context.Context, runID, activityKey string) ([]types.Document, error) {
	return c.listActivityDocuments(ctx, runID, activityKey, "instructions")
}

func (c *Client) listActivityDocuments(ctx context.Context, runID, activityKey, kind string) ([]types.Document, error) {
	path, err := runPath(runID)
	if err != nil {
		return nil, err
	}
	activityKey = strings.TrimSpace(activityKey)
	if activityKey == "" {
		return nil, errors.New("activity key is required")
	}
	path = fmt.Sprintf("%s/activities/%s/%s", path, url.PathEscape(activityKey), kind)
	var resp DocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *Client) ListMessages(ctx context.Context, runID string) ([]types.Message, error) {
	path, err := runPath(runID)
	if err != nil {
		return nil, err
	}
	var resp MessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, path+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage posts text to a running workflow. The generated message id
// lets the backend drop retried submissions.
func (c *Client) SendMessage(ctx context.Context, runID, text string) (*types.Message, error) {
	path, err := runPath(runID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message text is required")
	}
	req := SendMessageRequest{ID: c.newMessageID(), Text: text}
	var msg types.Message
	if err := c.doJSON(ctx, http.MethodPost, path+"/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func runPath(runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", errors.New("run id is required")
	}
	return "/v1/runs/" + url.PathEscape(runID), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(header http.Header) {
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	if resp.Body != nil {
		_ = json.NewDecoder(resp.Body).Decode(&payload)
	}
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
