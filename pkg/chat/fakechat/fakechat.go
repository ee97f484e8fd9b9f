package fakechat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"registerbot/pkg/ports/chatport"
)

// FakeChat implements chatport.Port for headless tests. It keeps an in-memory
// platform: people, messages, rooms and webhook registrations, and records
// every operation so tests can assert on the call log.
type FakeChat struct {
	mu sync.Mutex

	Self     chatport.Person
	People   map[string]chatport.Person
	Messages map[string]chatport.Message
	Rooms    map[string][]chatport.Message

	Calls    []Call
	Webhooks []chatport.Webhook

	NextID   int
	FailNext map[string]error
}

// Call captures a platform operation invocation.
type Call struct {
	Op        string
	PersonID  string
	MessageID string
	RoomID    string
	WebhookID string
	Text      string
}

var _ chatport.Port = (*FakeChat)(nil)

// New returns an empty fake platform with the given bot identity.
func New(self chatport.Person) *FakeChat {
	return &FakeChat{
		Self:     self,
		People:   make(map[string]chatport.Person),
		Messages: make(map[string]chatport.Message),
		Rooms:    make(map[string][]chatport.Message),
	}
}

func (f *FakeChat) Me(ctx context.Context) (chatport.Person, error) {
	if err := f.begin(ctx, "me", Call{Op: "me"}); err != nil {
		return chatport.Person{}, err
	}
	return f.Self, nil
}

func (f *FakeChat) GetPerson(ctx context.Context, personID string) (chatport.Person, error) {
	if err := f.begin(ctx, "get_person", Call{Op: "get_person", PersonID: personID}); err != nil {
		return chatport.Person{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	person, ok := f.People[personID]
	if !ok {
		return chatport.Person{}, chatport.NewError("get_person", chatport.CodeNotFound, fmt.Errorf("person %s", personID))
	}
	return person, nil
}

func (f *FakeChat) GetMessage(ctx context.Context, messageID string) (chatport.Message, error) {
	if err := f.begin(ctx, "get_message", Call{Op: "get_message", MessageID: messageID}); err != nil {
		return chatport.Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.Messages[messageID]
	if !ok {
		return chatport.Message{}, chatport.NewError("get_message", chatport.CodeNotFound, fmt.Errorf("message %s", messageID))
	}
	return msg, nil
}

func (f *FakeChat) SendMessage(ctx context.Context, personID, text string) (chatport.Message, error) {
	if err := f.begin(ctx, "send_message", Call{Op: "send_message", PersonID: personID, Text: text}); err != nil {
		return chatport.Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NextID++
	return chatport.Message{
		ID:       fmt.Sprintf("fake-msg-%d", f.NextID),
		PersonID: f.Self.ID,
		Text:     text,
	}, nil
}

func (f *FakeChat) ListMessages(ctx context.Context, roomID string) ([]chatport.Message, error) {
	if err := f.begin(ctx, "list_messages", Call{Op: "list_messages", RoomID: roomID}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]chatport.Message, len(f.Rooms[roomID]))
	copy(msgs, f.Rooms[roomID])
	return msgs, nil
}

func (f *FakeChat) ListWebhooks(ctx context.Context) ([]chatport.Webhook, error) {
	if err := f.begin(ctx, "list_webhooks", Call{Op: "list_webhooks"}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	hooks := make([]chatport.Webhook, len(f.Webhooks))
	copy(hooks, f.Webhooks)
	return hooks, nil
}

func (f *FakeChat) CreateWebhook(ctx context.Context, name, targetURL, resource, event string) (chatport.Webhook, error) {
	if err := f.begin(ctx, "create_webhook", Call{Op: "create_webhook", Text: name}); err != nil {
		return chatport.Webhook{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NextID++
	hook := chatport.Webhook{
		ID:        fmt.Sprintf("fake-hook-%d", f.NextID),
		Name:      name,
		TargetURL: targetURL,
		Resource:  resource,
		Event:     event,
	}
	f.Webhooks = append(f.Webhooks, hook)
	return hook, nil
}

func (f *FakeChat) DeleteWebhook(ctx context.Context, webhookID string) error {
	if err := f.begin(ctx, "delete_webhook", Call{Op: "delete_webhook", WebhookID: webhookID}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.Webhooks[:0]
	for _, hook := range f.Webhooks {
		if hook.ID != webhookID {
			kept = append(kept, hook)
		}
	}
	f.Webhooks = kept
	return nil
}

// Fail configures the next call for op to return err (wrapped as a coded
// chatport.Error if needed).
func (f *FakeChat) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		f.FailNext = make(map[string]error)
	}
	f.FailNext[op] = err
}

// LastCall returns the most recent call for the given op.
func (f *FakeChat) LastCall(op string) *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			c := f.Calls[i]
			return &c
		}
	}
	return nil
}

// SentTexts returns every message text sent to the given person, in order.
func (f *FakeChat) SentTexts(personID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.Calls {
		if c.Op == "send_message" && c.PersonID == personID {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// CallCount returns how many times op was invoked.
func (f *FakeChat) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *FakeChat) begin(ctx context.Context, op string, call Call) error {
	if err := ctx.Err(); err != nil {
		return wrapContextError(op, err)
	}
	if err := f.maybeFail(op); err != nil {
		return err
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
	return nil
}

func (f *FakeChat) maybeFail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		return nil
	}
	err, ok := f.FailNext[op]
	if !ok {
		return nil
	}
	delete(f.FailNext, op)
	if _, ok := err.(*chatport.Error); ok {
		return err
	}
	return chatport.NewError(op, "fake_error", err)
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

// RateLimited scripts a rate-limit failure for tests.
func RateLimited(op string, retry time.Duration) *chatport.Error {
	return &chatport.Error{
		Op:         op,
		Code:       chatport.CodeRateLimited,
		RetryAfter: retry,
		Wrapped:    fmt.Errorf("rate limited"),
	}
}
