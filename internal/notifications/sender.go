package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrPermanent marks a delivery failure that will not heal by retrying
// (blocked bot, deleted chat, closed socket). The subscriber is pruned.
var ErrPermanent = errors.New("permanent delivery failure")

// Sender delivers one alert to one subscriber.
type Sender interface {
	Send(ctx context.Context, subscriber string, alert Alert) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, subscriber string, alert Alert) error

func (f SenderFunc) Send(ctx context.Context, subscriber string, alert Alert) error {
	return f(ctx, subscriber, alert)
}

// Router dispatches by subscriber id prefix ("tg:", "ws:").
type Router struct {
	mu     sync.RWMutex
	routes map[string]Sender
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Sender)}
}

// Handle registers sender for ids starting with prefix + ":".
func (r *Router) Handle(prefix string, sender Sender) {
	r.mu.Lock()
	r.routes[prefix] = sender
	r.mu.Unlock()
}

// Send routes the alert. Ids with no registered transport fail permanently.
func (r *Router) Send(ctx context.Context, subscriber string, alert Alert) error {
	prefix, _, ok := strings.Cut(subscriber, ":")
	if !ok {
		return fmt.Errorf("subscriber %q has no transport prefix: %w", subscriber, ErrPermanent)
	}
	r.mu.RLock()
	sender, ok := r.routes[prefix]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no transport for %q: %w", prefix, ErrPermanent)
	}
	return sender.Send(ctx, subscriber, alert)
}

// IsPermanent reports whether err should prune the subscriber.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
