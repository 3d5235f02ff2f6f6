package contacts

import (
	"io"
	"log/slog"

	"github.com/davisshaver/audiencesync/pkg/audit"
	"github.com/davisshaver/audiencesync/pkg/lists"
	"github.com/davisshaver/audiencesync/pkg/provider"
)

// MetadataOrigin is the provenance marker injected into every outbound
// contact's metadata. Downstream integrations rely on it to tell our
// writes apart from writes made directly in the ESP dashboard.
const (
	MetadataOriginKey   = "origin_newspack"
	MetadataOriginValue = "1"
)

// Engine reconciles contact state against the active ESP. It is
// constructed with its provider explicitly, never read from an ambient
// global, so tests and multi-tenant processes can run several engines
// side by side.
//
// A nil provider is tolerated at construction and rejected per call with
// an invalid_provider error, matching deployments where the ESP is
// configured after boot.
type Engine struct {
	provider provider.Provider
	lists    lists.Source
	hooks    *Hooks
	trail    *audit.Trail
	log      *slog.Logger
	intents  IntentQueue

	asyncEnabled bool
	debugErrors  bool
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithHooks installs a shared hook set; by default each engine gets its
// own empty one.
func WithHooks(h *Hooks) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = h
		}
	}
}

// WithAuditTrail routes per-write audit events through trail.
func WithAuditTrail(t *audit.Trail) Option {
	return func(e *Engine) {
		if t != nil {
			e.trail = t
		}
	}
}

// WithIntentQueue enables the async subscribe path, deferring writes to q.
func WithIntentQueue(q IntentQueue) Option {
	return func(e *Engine) {
		if q != nil {
			e.intents = q
			e.asyncEnabled = true
		}
	}
}

// WithDebugErrors makes failed operations return the full error
// aggregate instead of a single reader-safe message. For operators, not
// readers.
func WithDebugErrors(enabled bool) Option {
	return func(e *Engine) {
		e.debugErrors = enabled
	}
}

// New creates an engine bound to the given provider and list source.
func New(p provider.Provider, src lists.Source, opts ...Option) *Engine {
	e := &Engine{
		provider: p,
		lists:    src,
		hooks:    NewHooks(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.trail == nil {
		e.trail = audit.NewTrail(e.log)
	}
	return e
}

// Hooks returns the engine's hook set for registration.
func (e *Engine) Hooks() *Hooks {
	return e.hooks
}

func (e *Engine) service() string {
	if e.provider == nil {
		return ""
	}
	return e.provider.Service()
}
