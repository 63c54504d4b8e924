package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pharmacy-guard-backend/internal/domain"
)

// DefaultSuppressWindow is how long rendering stays off after a redirect.
const DefaultSuppressWindow = 100 * time.Millisecond

// SessionSource is the auth collaborator. The guard only reads from it.
type SessionSource interface {
	Session(ctx context.Context) (domain.Session, error)
}

// Navigator is the router collaborator. Key is empty until the navigation
// tree has mounted.
type Navigator interface {
	Segments() []string
	Key() string
	Replace(ctx context.Context, path string) error
}

type ControllerOption func(*Controller)

func WithSuppressWindow(d time.Duration) ControllerOption {
	return func(c *Controller) { c.window = d }
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller binds a Guard to its collaborators for one mounted navigation tree.
type Controller struct {
	auth  SessionSource
	nav   Navigator
	guard *Guard

	window time.Duration
	now    func() time.Time
	log    *slog.Logger

	mu            sync.Mutex
	loading       bool
	ready         bool
	suppressUntil time.Time
}

func NewController(auth SessionSource, nav Navigator, opts ...ControllerOption) *Controller {
	c := &Controller{
		auth:    auth,
		nav:     nav,
		window:  DefaultSuppressWindow,
		now:     time.Now,
		log:     slog.Default(),
		loading: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guard = New(WithLogger(c.log))
	return c
}

// OnChange must be called whenever the session or the navigation state changes.
// It performs at most one Replace on the navigator.
func (c *Controller) OnChange(ctx context.Context) (domain.Decision, error) {
	sess, err := c.auth.Session(ctx)
	if err != nil {
		return domain.Decision{Action: domain.ActionNone, Reason: ReasonLoading}, fmt.Errorf("guard: read session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in := Inputs{
		User:          sess.User,
		Segments:      c.nav.Segments(),
		IsLoading:     sess.IsLoading,
		NavigationKey: c.nav.Key(),
	}
	c.loading = in.IsLoading
	c.ready = in.NavigationKey != ""

	d := c.guard.Evaluate(in)
	if !d.Redirected() {
		return d, nil
	}

	d.SuppressFor = c.window
	d.SuppressMS = c.window.Milliseconds()
	c.suppressUntil = c.now().Add(c.window)
	if err := c.nav.Replace(ctx, d.Target); err != nil {
		c.log.Error("route replace failed", "target", d.Target, "error", err)
		return d, fmt.Errorf("guard: replace %s: %w", d.Target, err)
	}
	return d, nil
}

// ShouldRender reports whether the screen stack may be drawn at now.
func (c *Controller) ShouldRender(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading || !c.ready {
		return false
	}
	return !now.Before(c.suppressUntil)
}
