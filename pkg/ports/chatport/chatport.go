// Package chatport provides the outbound interface between the bot and the
// chat-platform client. Adapters normalize transport failures into coded
// errors so callers can branch on Code instead of parsing messages.
package chatport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Person is a platform user profile.
type Person struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Emails      []string `json:"emails"`
}

// PrimaryEmail returns the first listed address, or "" when none is known.
func (p Person) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// Message is a single platform message.
type Message struct {
	ID       string `json:"id"`
	PersonID string `json:"personId"`
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
}

// Webhook describes a registered event callback.
type Webhook struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
}

// Error wraps platform failures with retry hints and normalized codes.
type Error struct {
	Op         string
	Code       string
	RetryAfter time.Duration
	Wrapped    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap exposes the underlying failure for errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// NewError builds an Error with the provided operation/code, preserving the
// wrapped error.
func NewError(op, code string, err error) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Wrapped: err,
	}
}

// IsCode determines whether err represents an Error with the provided code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce != nil && ce.Code == code
	}
	return false
}

// Error codes produced by adapters.
const (
	CodeUnavailable     = "unavailable"
	CodeNotFound        = "not_found"
	CodeUnauthorized    = "unauthorized"
	CodeRateLimited     = "rate_limited"
	CodeContextCanceled = "context_canceled"
	CodeContextDeadline = "context_deadline"
)

// Port abstracts the chat-platform operations the bot consumes.
type Port interface {
	Me(ctx context.Context) (Person, error)
	GetPerson(ctx context.Context, personID string) (Person, error)
	GetMessage(ctx context.Context, messageID string) (Message, error)
	SendMessage(ctx context.Context, personID, text string) (Message, error)
	ListMessages(ctx context.Context, roomID string) ([]Message, error)
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	CreateWebhook(ctx context.Context, name, targetURL, resource, event string) (Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
}
