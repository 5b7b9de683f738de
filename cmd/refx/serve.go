package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/refx/internal/preview"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a live preview of a template",
		Long: `Host a template in a headless runtime behind an HTTP server.

Browsers load the page at / and forward clicks over /ws. Other websocket
clients may send {"source": name, "value": v} updates or
{"event": name, "path": "#id"} dispatches as JSON text frames or msgpack
binary frames; every reply carries the re-serialized DOM.

Prometheus metrics are served at /metrics.

Examples:
  refx serve page.html
  refx serve page.html --port=8080 --set count=0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Preview.Port = port
			}
			if host != "" {
				cfg.Preview.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			tpl, err := openTemplate(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			inst, err := preview.Bind(s.runtime, tpl, values)
			if err != nil {
				return err
			}

			opts := []preview.ServerOption{preview.WithServerLogger(s.logger)}
			if cfg.Preview.Title != "" {
				opts = append(opts, preview.WithTitle(cfg.Preview.Title))
			}
			if s.registry != nil {
				opts = append(opts, preview.WithGatherer(s.registry))
			}
			srv := preview.NewServer(inst, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := cfg.PreviewAddress()
			success(cmd, "Serving %s at http://%s", args[0], addr)
			info(cmd, "Press Ctrl+C to stop")

			err = srv.ListenAndServe(ctx, addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from refx config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from refx config)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Initial source value as name=value (repeatable)")
	return cmd
}
