package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Source is the read side of the state manager.
type Source interface {
	State(ctx context.Context) (scoreboard.MatchState, error)
	Observe(fn func(scoreboard.MatchState, error)) (cancel func())
}

// Renderer receives every new View.
type Renderer interface {
	Render(View)
}

// RenderFunc adapts a func to Renderer.
type RenderFunc func(View)

func (f RenderFunc) Render(v View) { f(v) }

// Watcher is implemented by resolvers that hold derived resources and can
// report when their mapping changes.
type Watcher interface {
	Watch(onChange func()) (release func())
}

// DefaultTriggers are the message types that make an overlay re-read state.
var DefaultTriggers = []string{
	notify.TypeStateChanged,
	notify.TypePlayerScoreChanged,
	notify.TypePlayerNameChanged,
	notify.TypeLogoSlotChanged,
	notify.TypeAdsRefresh,
	notify.TypeAdsBackgroundChanged,
	notify.TypeThemeChanged,
	notify.TypeShotClockChanged,
	notify.TypeShotClockExpired,
	notify.TypeBallTrackerChanged,
	notify.TypeUIRefresh,
}

// Controller keeps a Renderer in sync with the live MatchState. It listens
// to both the store's live query and broadcast triggers; either one alone is
// enough to converge.
type Controller struct {
	source   Source
	notifier *notify.Notifier
	renderer Renderer
	resolver Resolver
	triggers []string
	logger   *slog.Logger

	renderMu sync.Mutex
	last     scoreboard.MatchState
	haveLast bool
	closed   bool

	mu      sync.Mutex
	ctx     context.Context
	cancels []func()
	started bool
}

// NewController wires a controller. notifier and resolver may be nil;
// triggers defaults to DefaultTriggers.
func NewController(source Source, notifier *notify.Notifier, renderer Renderer, resolver Resolver, triggers []string, logger *slog.Logger) *Controller {
	if triggers == nil {
		triggers = DefaultTriggers
	}
	return &Controller{
		source:   source,
		notifier: notifier,
		renderer: renderer,
		resolver: resolver,
		triggers: triggers,
		logger:   logger,
	}
}

// Start renders the current state and begins following changes. ctx bounds
// the re-reads done on trigger messages.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.ctx = ctx

	if w, ok := c.resolver.(Watcher); ok {
		c.cancels = append(c.cancels, w.Watch(c.rerender))
	}
	if c.notifier != nil {
		for _, typ := range c.triggers {
			c.cancels = append(c.cancels, c.notifier.On(typ, func(map[string]any, notify.Envelope) {
				c.refetch()
			}))
		}
	}
	c.cancels = append(c.cancels, c.source.Observe(func(st scoreboard.MatchState, err error) {
		if err != nil {
			c.logger.Warn("observing match state", "error", err)
			return
		}
		c.render(st)
	}))
}

// Close stops all listening and releases resolver resources. No Render call
// starts after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	// Reverse order: observation first, resolver last.
	for i := len(cancels) - 1; i >= 0; i-- {
		cancels[i]()
	}

	// Waits out a render already in progress.
	c.renderMu.Lock()
	c.closed = true
	c.renderMu.Unlock()
}

func (c *Controller) refetch() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	st, err := c.source.State(ctx)
	if err != nil {
		c.logger.Warn("re-reading match state", "error", err)
		return
	}
	c.render(st)
}

func (c *Controller) rerender() {
	c.renderMu.Lock()
	st, ok := c.last, c.haveLast
	c.renderMu.Unlock()
	if ok {
		c.render(st)
	}
}

func (c *Controller) render(st scoreboard.MatchState) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.closed {
		return
	}
	c.last, c.haveLast = st, true
	c.renderer.Render(Project(st, c.resolver))
}
