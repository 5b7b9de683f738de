package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/refx"
	"github.com/vango-dev/refx/internal/config"
	"github.com/vango-dev/refx/internal/preview"
	"github.com/vango-dev/refx/pkg/hydrate"
	"github.com/vango-dev/refx/pkg/telemetry"
)

// loadConfig loads the project config and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flags.dir)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog handler named by the log section.
func newLogger(cfg config.LogConfig, level slog.Level, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// session is a runtime built from config plus the metrics registry it
// reports to.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	runtime  *refx.Runtime
	registry *prometheus.Registry
}

func newSession(cfg *config.Config, logOut io.Writer) (*session, error) {
	logger := newLogger(cfg.Log, cfg.SlogLevel(), logOut)

	policy, err := hydrate.ParseErrorPolicy(cfg.Runtime.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	rc := refx.Config{
		Logger:       logger,
		ErrorPolicy:  policy,
		SanitizeHTML: cfg.Runtime.SanitizeHTML,
		NonBubbling:  cfg.Runtime.NonBubbling,
		Tracer:       telemetry.Tracer(cfg.Telemetry.TracerName),
	}
	if cfg.Telemetry.Metrics {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector())
		rc.Metrics = telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Telemetry.Namespace),
			telemetry.WithRegistry(s.registry),
		)
	}

	s.runtime, err = refx.New(rc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// remoteLoader returns the S3 loader configured in storage, or nil.
func remoteLoader(cfg *config.Config) preview.Loader {
	s3cfg := cfg.Storage.S3
	if s3cfg.Bucket == "" {
		return nil
	}
	return preview.NewS3Loader(preview.NewS3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix)
}

// openTemplate loads the template at location using the configured storage.
func openTemplate(ctx context.Context, cfg *config.Config, location string) (*preview.Template, error) {
	return preview.Open(ctx, location, remoteLoader(cfg))
}

func (s *session) Close() { s.runtime.Close() }
