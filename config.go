package refx

import (
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/refx/pkg/hydrate"
	"github.com/vango-dev/refx/pkg/loop"
	"github.com/vango-dev/refx/pkg/telemetry"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config configures a Runtime. The zero value is usable.
type Config struct {
	// Logger is the structured logger for the runtime and its components.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// ErrorPolicy decides what happens to a binding whose source fails.
	// Default: hydrate.PolicyIgnore.
	ErrorPolicy hydrate.ErrorPolicy

	// SanitizeHTML runs innerHTML values through bluemonday's UGC policy.
	// Ignored when Sanitizer is set.
	SanitizeHTML bool

	// Sanitizer is the policy applied to innerHTML values.
	Sanitizer *bluemonday.Policy

	// NonBubbling replaces the set of event names bound with direct
	// listeners. Empty keeps template.DefaultNonBubbling.
	NonBubbling []string

	// Metrics receives runtime counters. nil disables metrics.
	Metrics *telemetry.Metrics

	// Tracer traces compilations and hydration batches. If nil, the
	// global OpenTelemetry provider's "refx" tracer is used.
	Tracer trace.Tracer

	// Loop is the host loop. If nil, the runtime creates its own.
	Loop *loop.Loop
}

// sanitizer returns the innerHTML policy implied by the config, or nil.
func (c Config) sanitizer() *bluemonday.Policy {
	if c.Sanitizer != nil {
		return c.Sanitizer
	}
	if c.SanitizeHTML {
		return bluemonday.UGCPolicy()
	}
	return nil
}
