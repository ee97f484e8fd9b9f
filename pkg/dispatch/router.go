package dispatch

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"registerbot/pkg/ports/chatport"

	"go.uber.org/zap"
)

// HandlerFunc processes one inbound message. Handler failures are logged and
// isolated; they never affect sibling handlers or the engine.
type HandlerFunc func(ctx context.Context, msg chatport.Message) error

type route struct {
	pattern *regexp.Regexp
	handler HandlerFunc
}

// Router matches inbound message text against registered patterns. Every
// matching handler runs concurrently; when nothing matches, the default
// handler runs alone.
type Router struct {
	mu        sync.RWMutex
	routes    []route
	defaultFn HandlerFunc
	logger    *zap.Logger
}

// NewRouter builds an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// Handle registers a handler for messages whose lower-cased text matches
// pattern. The pattern is a regular expression, anchored by the caller
// (e.g. "^register$").
func (r *Router) Handle(pattern string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{
		pattern: regexp.MustCompile(pattern),
		handler: handler,
	})
}

// Default registers the handler invoked when no pattern matches.
func (r *Router) Default(handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultFn = handler
}

// HasRoutes reports whether any pattern handler is registered.
func (r *Router) HasRoutes() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes) > 0
}

// Dispatch fans the message out to every matching handler and waits for all
// of them. No completion order is guaranteed between matches.
func (r *Router) Dispatch(ctx context.Context, msg chatport.Message) {
	text := strings.ToLower(msg.Text)

	r.mu.RLock()
	var matched []HandlerFunc
	for _, rt := range r.routes {
		if rt.pattern.MatchString(text) {
			matched = append(matched, rt.handler)
		}
	}
	defaultFn := r.defaultFn
	r.mu.RUnlock()

	if len(matched) == 0 {
		if defaultFn != nil {
			r.run(ctx, defaultFn, msg)
		}
		return
	}

	var wg sync.WaitGroup
	for _, handler := range matched {
		wg.Add(1)
		go func(h HandlerFunc) {
			defer wg.Done()
			r.run(ctx, h, msg)
		}(handler)
	}
	wg.Wait()
}

// run invokes one handler with panic and error isolation.
func (r *Router) run(ctx context.Context, handler HandlerFunc, msg chatport.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				zap.Any("panic", rec),
				zap.String("message_id", msg.ID),
				zap.String("person_id", msg.PersonID))
		}
	}()

	if err := handler(ctx, msg); err != nil {
		r.logger.Error("handler failed",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("person_id", msg.PersonID))
	}
}
