package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sender is the interface that provider adapters must implement for the engine.
// Defined here to avoid an import cycle with the providers package.
type Sender interface {
	ID() string
	// Models returns the ordered model candidates for this provider.
	Models() []string
	// Configured reports whether a credential is present. Unconfigured
	// providers are skipped without an attempt.
	Configured() bool
	Send(ctx context.Context, model string, req Request) (Completion, error)
	ClassifyError(err error) *ClassifiedError
}

// ErrorClass classifies provider errors for routing decisions.
type ErrorClass string

const (
	// ErrStatus is a non-2xx reply: the next model of the same provider is tried.
	ErrStatus ErrorClass = "status"
	// ErrTransport covers timeouts and connection failures: the remaining
	// models of the provider are abandoned.
	ErrTransport ErrorClass = "transport"
)

// ClassifiedError wraps an error with routing classification.
type ClassifiedError struct {
	Err   error
	Class ErrorClass
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// ErrNoProviders is returned when no provider has a credential configured.
var ErrNoProviders = errors.New("no LLM providers configured")

// ExhaustedError is returned when every configured provider failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all LLM providers failed after %d attempts; last: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// HealthChecker is an optional interface for provider health tracking.
// Defined here to avoid import cycles with the health package. It is
// observational only and never changes the provider order.
type HealthChecker interface {
	RecordSuccess(providerID string, latencyMs float64)
	RecordError(providerID string, errMsg string)
}

// Observer receives one callback per attempt, typically for metrics.
type Observer interface {
	ObserveAttempt(provider, model, outcome string, d time.Duration)
}

// Attempt outcomes reported to the Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "status_error"
	OutcomeTransport = "transport_error"
)

type EngineConfig struct {
	// Timeout bounds each individual attempt. Zero means no per-attempt limit.
	Timeout time.Duration
}

// Engine tries providers in registration order and, within a provider, its
// model candidates in order, until one attempt succeeds.
type Engine struct {
	cfg      EngineConfig
	health   HealthChecker
	observer Observer

	mu       sync.RWMutex
	adapters []Sender
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// SetHealthChecker attaches a health tracker to the engine.
func (e *Engine) SetHealthChecker(h HealthChecker) {
	e.health = h
}

// SetObserver attaches an attempt observer.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// RegisterAdapter appends a provider adapter to the priority list.
// Registering an ID twice replaces the earlier adapter in place.
func (e *Engine) RegisterAdapter(a Sender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.adapters {
		if existing.ID() == a.ID() {
			e.adapters[i] = a
			return
		}
	}
	e.adapters = append(e.adapters, a)
}

// Adapters returns a snapshot of the registered adapters in priority order.
func (e *Engine) Adapters() []Sender {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Sender, len(e.adapters))
	copy(out, e.adapters)
	return out
}

// Configured reports whether at least one provider has a credential.
func (e *Engine) Configured() bool {
	for _, a := range e.Adapters() {
		if a.Configured() {
			return true
		}
	}
	return false
}

// Complete runs the fallback chain. Attempts are sequential and the engine
// lock is never held during network I/O.
func (e *Engine) Complete(ctx context.Context, req Request) (Completion, error) {
	req.Params = req.Params.withDefaults()
	adapters := e.Adapters()

	var lastErr error
	attempts := 0
	configured := 0

	for _, a := range adapters {
		if !a.Configured() {
			slog.Debug("provider not configured, skipping", slog.String("provider", a.ID()))
			continue
		}
		configured++
		models := a.Models()

	candidates:
		for i, model := range models {
			attempts++
			slog.Info("routing request",
				slog.String("provider", a.ID()),
				slog.String("model", model),
				slog.Int("attempt", i+1),
				slog.Int("total", len(models)),
			)

			c, err := e.attempt(ctx, a, model, req)
			if err == nil {
				return c, nil
			}
			lastErr = fmt.Errorf("%s/%s: %w", a.ID(), model, err)

			if ctx.Err() != nil {
				return Completion{}, ctx.Err()
			}

			classified := a.ClassifyError(err)
			slog.Warn("provider failed",
				slog.String("provider", a.ID()),
				slog.String("model", model),
				slog.String("error", err.Error()),
				slog.String("class", string(classified.Class)),
			)
			if classified.Class == ErrTransport {
				break candidates
			}
		}
	}

	if configured == 0 {
		return Completion{}, ErrNoProviders
	}
	if lastErr == nil {
		lastErr = errors.New("no model candidates registered")
	}
	return Completion{}, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

// outcomeOf labels an attempt for the observer.
func outcomeOf(classify func(error) *ClassifiedError, err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case classify(err).Class == ErrStatus:
		return OutcomeStatus
	default:
		return OutcomeTransport
	}
}

func (e *Engine) attempt(ctx context.Context, a Sender, model string, req Request) (Completion, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	c, err := a.Send(ctx, model, req)
	elapsed := time.Since(start)

	if e.observer != nil {
		e.observer.ObserveAttempt(a.ID(), model, outcomeOf(a.ClassifyError, err), elapsed)
	}
	if e.health != nil {
		if err == nil {
			e.health.RecordSuccess(a.ID(), float64(elapsed.Milliseconds()))
		} else {
			e.health.RecordError(a.ID(), err.Error())
		}
	}
	if err != nil {
		return Completion{}, err
	}
	c.ProviderID = a.ID()
	c.Model = model
	return c, nil
}
