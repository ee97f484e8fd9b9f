package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"registerbot/pkg/ports/chatport"

	"github.com/gin-gonic/gin"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Webhook lifecycle states.
const (
	StateUnregistered = "unregistered"
	StateRegistering  = "registering"
	StateListening    = "listening"
	StateDraining     = "draining"
)

// Webhook lifecycle events.
const (
	EventRegister = "register"
	EventListen   = "listen"
	EventDrain    = "drain"
	EventStopped  = "stopped"
)

// Webhook names as registered with the platform.
const (
	hookMessageCreated = "message created"
	hookRoomCreated    = "room created"
)

const defaultMaxConcurrent = 32

func newLifecycleFSM() *fsm.FSM {
	events := fsm.Events{
		{Name: EventRegister, Src: []string{StateUnregistered}, Dst: StateRegistering},
		{Name: EventListen, Src: []string{StateRegistering}, Dst: StateListening},
		{Name: EventDrain, Src: []string{StateRegistering, StateListening}, Dst: StateDraining},
		{Name: EventStopped, Src: []string{StateDraining}, Dst: StateUnregistered},
	}
	return fsm.NewFSM(StateUnregistered, events, fsm.Callbacks{})
}

// Event is the webhook notification payload the platform posts to us.
type Event struct {
	Name string    `json:"name"`
	Data EventData `json:"data"`
}

// EventData carries the resource identifiers of one notification. For
// message events ID is the message id; for room events it is the room id.
type EventData struct {
	ID       string `json:"id"`
	PersonID string `json:"personId"`
	Type     string `json:"type"`
}

// Server is the webhook dispatch engine. It owns webhook registration and
// teardown with the platform, receives HTTP notifications, deduplicates
// messages and drives the command router. Handler tasks run concurrently,
// gated by a bounded semaphore so a slow platform call never stalls the
// listener.
type Server struct {
	chat        chatport.Port
	logger      *zap.Logger
	callbackURL string
	addr        string

	router     *Router
	ledger     *Ledger
	preMessage HandlerFunc
	lifecycle  *fsm.FSM
	sem        *semaphore.Weighted

	engine  *gin.Engine
	httpSrv *http.Server

	mu     sync.Mutex
	selfID string
	hooks  map[string]func(context.Context, EventData)

	tasksCtx    context.Context
	tasksCancel context.CancelFunc
	tasks       sync.WaitGroup
}

// Option adjusts server construction.
type Option func(*Server)

// WithLedgerCapacity bounds the dedup ledger.
func WithLedgerCapacity(capacity int) Option {
	return func(s *Server) { s.ledger = NewLedger(capacity) }
}

// WithMaxConcurrent bounds the number of in-flight handler tasks.
func WithMaxConcurrent(n int64) Option {
	return func(s *Server) { s.sem = semaphore.NewWeighted(n) }
}

// NewServer builds a dispatch engine listening on addr, registering webhooks
// that point at callbackURL.
func NewServer(chat chatport.Port, callbackURL, addr string, logger *zap.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	tasksCtx, tasksCancel := context.WithCancel(context.Background())
	s := &Server{
		chat:        chat,
		logger:      logger,
		callbackURL: callbackURL,
		addr:        addr,
		router:      NewRouter(logger),
		ledger:      NewLedger(0),
		lifecycle:   newLifecycleFSM(),
		sem:         semaphore.NewWeighted(defaultMaxConcurrent),
		hooks:       make(map[string]func(context.Context, EventData)),
		tasksCtx:    tasksCtx,
		tasksCancel: tasksCancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.POST("/", s.handleNotification)
	return s
}

// Handle registers a command handler for messages matching pattern.
func (s *Server) Handle(pattern string, handler HandlerFunc) {
	s.router.Handle(pattern, handler)
}

// Default registers the fallback handler for unmatched messages.
func (s *Server) Default(handler HandlerFunc) {
	s.router.Default(handler)
}

// PreMessage registers a hook that runs before every routed message.
func (s *Server) PreMessage(hook HandlerFunc) {
	s.preMessage = hook
}

// State returns the current lifecycle state.
func (s *Server) State() string {
	return s.lifecycle.Current()
}

// Setup moves the engine from unregistered to listening: stale webhooks for
// this endpoint are removed, the bot identity is resolved and the webhooks
// are registered concurrently, then the HTTP listener starts. Any failure is
// fatal to startup.
func (s *Server) Setup(ctx context.Context) error {
	if err := s.lifecycle.Event(ctx, EventRegister); err != nil {
		return fmt.Errorf("cannot set up from state %s: %w", s.lifecycle.Current(), err)
	}

	if err := s.removeEndpointWebhooks(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		me, err := s.chat.Me(gctx)
		if err != nil {
			return fmt.Errorf("failed to resolve own identity: %w", err)
		}
		s.mu.Lock()
		s.selfID = me.ID
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		if !s.router.HasRoutes() {
			return nil
		}
		return s.createHook(gctx, hookMessageCreated, "messages", "created", s.handleMessageCreated)
	})
	g.Go(func() error {
		return s.createHook(gctx, hookRoomCreated, "rooms", "created", s.handleRoomCreated)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.httpSrv = &http.Server{Addr: s.addr, Handler: s.engine}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook listener failed", zap.Error(err))
		}
	}()

	s.logger.Info("dispatch engine listening",
		zap.String("addr", s.addr),
		zap.String("callback_url", s.callbackURL))
	return s.lifecycle.Event(ctx, EventListen)
}

// Shutdown drains the engine: webhooks are removed unconditionally, the
// listener stops and in-flight tasks are awaited. Safe to call even when
// Setup partially failed.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.lifecycle.Event(ctx, EventDrain); err != nil {
		s.lifecycle.SetState(StateDraining)
	}

	s.removeAllWebhooks(ctx)

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("failed to stop webhook listener", zap.Error(err))
		}
	}

	s.tasks.Wait()
	s.tasksCancel()

	if err := s.lifecycle.Event(ctx, EventStopped); err != nil {
		s.lifecycle.SetState(StateUnregistered)
	}
	return nil
}

func (s *Server) handleNotification(c *gin.Context) {
	var ev Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		s.logger.Warn("unparseable webhook payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	// The platform only needs acknowledgment; unknown event names included.
	c.Status(http.StatusOK)

	s.mu.Lock()
	hook, ok := s.hooks[ev.Name]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("ignoring unknown event", zap.String("name", ev.Name))
		return
	}

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := s.sem.Acquire(s.tasksCtx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
		hook(s.tasksCtx, ev.Data)
	}()
}

func (s *Server) handleMessageCreated(ctx context.Context, data EventData) {
	s.mu.Lock()
	selfID := s.selfID
	s.mu.Unlock()
	if data.PersonID == selfID {
		return
	}

	if !s.ledger.Add(data.ID) {
		s.logger.Debug("duplicate message ignored", zap.String("message_id", data.ID))
		return
	}

	msg, err := s.chat.GetMessage(ctx, data.ID)
	if err != nil {
		s.logger.Error("failed to fetch message",
			zap.String("message_id", data.ID),
			zap.Error(err))
		return
	}

	s.deliver(ctx, msg)
}

// handleRoomCreated replays the history of a new one-to-one room through the
// normal message path, so the bot catches up when invited into an existing
// conversation. Group rooms are not auto-engaged.
func (s *Server) handleRoomCreated(ctx context.Context, data EventData) {
	if data.Type == "group" {
		return
	}

	msgs, err := s.chat.ListMessages(ctx, data.ID)
	if err != nil {
		s.logger.Error("failed to list room messages",
			zap.String("room_id", data.ID),
			zap.Error(err))
		return
	}

	for _, msg := range msgs {
		if !s.ledger.Add(msg.ID) {
			continue
		}
		s.deliver(ctx, msg)
	}
}

func (s *Server) deliver(ctx context.Context, msg chatport.Message) {
	if s.preMessage != nil {
		if err := s.preMessage(ctx, msg); err != nil {
			s.logger.Error("pre-message hook failed",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
	s.router.Dispatch(ctx, msg)
}

func (s *Server) createHook(ctx context.Context, name, resource, event string, fn func(context.Context, EventData)) error {
	s.mu.Lock()
	s.hooks[name] = fn
	s.mu.Unlock()

	if _, err := s.chat.CreateWebhook(ctx, name, s.callbackURL, resource, event); err != nil {
		return fmt.Errorf("failed to register webhook %q: %w", name, err)
	}
	return nil
}

// removeEndpointWebhooks deletes stale webhooks pointing at our callback URL
// so setup is idempotent across restarts.
func (s *Server) removeEndpointWebhooks(ctx context.Context) error {
	hooks, err := s.chat.ListWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}
	for _, hook := range hooks {
		if hook.TargetURL != s.callbackURL {
			continue
		}
		if err := s.chat.DeleteWebhook(ctx, hook.ID); err != nil {
			return fmt.Errorf("failed to delete stale webhook %s: %w", hook.ID, err)
		}
	}
	return nil
}

// removeAllWebhooks deletes every webhook registration. Failures are logged
// and skipped so teardown always makes as much progress as it can.
func (s *Server) removeAllWebhooks(ctx context.Context) {
	hooks, err := s.chat.ListWebhooks(ctx)
	if err != nil {
		s.logger.Error("failed to list webhooks during teardown", zap.Error(err))
		return
	}
	for _, hook := range hooks {
		if err := s.chat.DeleteWebhook(ctx, hook.ID); err != nil {
			s.logger.Error("failed to delete webhook",
				zap.String("webhook_id", hook.ID),
				zap.Error(err))
		}
	}
}
