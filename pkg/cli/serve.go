package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/engine"
	"github.com/dshills/keychord/pkg/httpapi"
	"github.com/dshills/keychord/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *Options) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve key sequence evaluation over HTTP",
		Long: `Build the configuration and answer evaluation requests over HTTP until
interrupted. Prometheus metrics are served on /metrics.

Endpoints:
  GET  /healthz
  GET  /modes
  GET  /bindings[?mode=<mode>]
  POST /evaluate   {"mode": "Normal", "keys": ["g", "g"], "variables": {"readonly": false}}
  GET  /metrics

With --watch the configuration named by --config is rebuilt whenever one of
its files changes; a configuration that fails to build is reported and the
previous one keeps serving.

Examples:
  keychord serve -c ./keys
  keychord serve -c ./keys --addr :7070 --watch
  keychord serve --db keychord.db --profile work`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && opts.ConfigPath == "" {
				return errors.New("--watch requires --config")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			collector, err := metrics.NewCollector(reg)
			if err != nil {
				return err
			}
			observe := engine.WithObserver(collector)

			tree, _, _, err := buildTree(ctx, opts, observe)
			if err != nil {
				return err
			}
			api := httpapi.New(tree, httpapi.WithLogger(opts.Logger()), httpapi.WithMetrics(reg))

			if watch {
				go func() {
					_ = newLoader(opts).Watch(ctx, config.DefaultDebounce, func(data config.Data, err error) {
						reload(cmd, opts, api, data, err, observe)
					})
				}()
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s (%d bindings)\n", ln.Addr(), len(tree.Bindings()))

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "Address to listen on")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild when files under --config change")
	return cmd
}

// reload rebuilds the served tree from freshly loaded data.
func reload(cmd *cobra.Command, opts *Options, api *httpapi.Server, data config.Data, loadErr error, extra ...engine.Option) {
	if loadErr != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ Reload failed: %v\n", loadErr)
		return
	}

	env, err := newEnvironment(opts)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ Reload failed: %v\n", err)
		return
	}
	tree, err := engine.Build(data, engine.StringCodec(), env, engineOptions(opts, extra...)...)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✗ Reload failed: %v\n", err)
		return
	}

	api.SetTree(tree)
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "✓ Reloaded (%d bindings)\n", len(tree.Bindings()))
}
