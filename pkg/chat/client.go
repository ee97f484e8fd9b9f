package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"registerbot/pkg/ports/chatport"

	"go.uber.org/zap"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 250 * time.Millisecond
)

// Client talks to the chat platform's REST API and implements chatport.Port.
// Every request carries a deadline; rate limits and server errors are retried
// with exponential backoff before the coded error is surfaced.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries int
	backoff    time.Duration
}

var _ chatport.Port = (*Client)(nil)

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries overrides the retry budget and initial backoff.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.backoff = backoff
	}
}

// NewClient builds a platform client for the given API base URL and token.
func NewClient(baseURL, token string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api base url cannot be empty")
	}
	if token == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me resolves the identity of the account the token belongs to.
func (c *Client) Me(ctx context.Context) (chatport.Person, error) {
	var person chatport.Person
	err := c.do(ctx, "me", http.MethodGet, "/people/me", nil, &person)
	return person, err
}

// GetPerson fetches a user profile by id.
func (c *Client) GetPerson(ctx context.Context, personID string) (chatport.Person, error) {
	var person chatport.Person
	err := c.do(ctx, "get_person", http.MethodGet, "/people/"+url.PathEscape(personID), nil, &person)
	return person, err
}

// GetMessage fetches a full message body by id.
func (c *Client) GetMessage(ctx context.Context, messageID string) (chatport.Message, error) {
	var msg chatport.Message
	err := c.do(ctx, "get_message", http.MethodGet, "/messages/"+url.PathEscape(messageID), nil, &msg)
	return msg, err
}

// SendMessage posts a direct message to a person.
func (c *Client) SendMessage(ctx context.Context, personID, text string) (chatport.Message, error) {
	payload := map[string]string{
		"toPersonId": personID,
		"text":       text,
	}
	var msg chatport.Message
	err := c.do(ctx, "send_message", http.MethodPost, "/messages", payload, &msg)
	return msg, err
}

// ListMessages returns the messages of a room in the platform's list order.
func (c *Client) ListMessages(ctx context.Context, roomID string) ([]chatport.Message, error) {
	var list struct {
		Items []chatport.Message `json:"items"`
	}
	path := "/messages?roomId=" + url.QueryEscape(roomID)
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListWebhooks returns every webhook registered for this account.
func (c *Client) ListWebhooks(ctx context.Context) ([]chatport.Webhook, error) {
	var list struct {
		Items []chatport.Webhook `json:"items"`
	}
	if err := c.do(ctx, "list_webhooks", http.MethodGet, "/webhooks", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// CreateWebhook registers a callback for the given resource/event pair.
func (c *Client) CreateWebhook(ctx context.Context, name, targetURL, resource, event string) (chatport.Webhook, error) {
	payload := map[string]string{
		"name":      name,
		"targetUrl": targetURL,
		"resource":  resource,
		"event":     event,
	}
	var hook chatport.Webhook
	err := c.do(ctx, "create_webhook", http.MethodPost, "/webhooks", payload, &hook)
	return hook, err
}

// DeleteWebhook removes a webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	return c.do(ctx, "delete_webhook", http.MethodDelete, "/webhooks/"+url.PathEscape(webhookID), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return chatport.NewError(op, "encode_failed", err)
		}
		body = encoded
	}

	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff
			var ce *chatport.Error
			if ok := asError(lastErr, &ce); ok && ce.RetryAfter > 0 {
				wait = ce.RetryAfter
			}
			c.logger.Debug("retrying platform call",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return wrapContextError(op, ctx.Err())
			case <-time.After(wait):
			}
			backoff *= 2
		}

		err := c.once(ctx, op, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return chatport.NewError(op, "bad_request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return wrapContextError(op, ctxErr)
		}
		return chatport.NewError(op, chatport.CodeUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return chatport.NewError(op, chatport.CodeNotFound, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return chatport.NewError(op, chatport.CodeUnauthorized, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return &chatport.Error{
			Op:         op,
			Code:       chatport.CodeRateLimited,
			RetryAfter: retryAfter(resp),
			Wrapped:    fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return chatport.NewError(op, chatport.CodeUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return chatport.NewError(op, "rejected", fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return chatport.NewError(op, "decode_failed", err)
	}
	return nil
}

func retryable(err error) bool {
	return chatport.IsCode(err, chatport.CodeRateLimited) ||
		chatport.IsCode(err, chatport.CodeUnavailable)
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func asError(err error, target **chatport.Error) bool {
	if err == nil {
		return false
	}
	ce, ok := err.(*chatport.Error)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func wrapContextError(op string, err error) error {
	switch err {
	case context.Canceled:
		return chatport.NewError(op, chatport.CodeContextCanceled, err)
	case context.DeadlineExceeded:
		return chatport.NewError(op, chatport.CodeContextDeadline, err)
	default:
		return chatport.NewError(op, "context_error", err)
	}
}
