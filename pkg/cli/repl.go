package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/dshills/keychord/pkg/engine"
	"github.com/dshills/keychord/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const replHelp = `Type keys separated by spaces; each key is fed to the session in turn.
  :enter        resolve the pending sequence
  :has <key>    report whether <key> continues the pending sequence
  :mode <mode>  switch the active mode
  :set n=v      set a condition variable
  :unset <n>    remove a condition variable
  :pending      show the pending keys
  :reset        discard the pending keys
  :help         show this help
  :quit         exit`

// NewReplCommand creates the repl command.
func NewReplCommand(opts *Options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Feed keys one at a time and watch them resolve",
		Long: `Start an interactive session that feeds keys one at a time, the way a
host application would. A bound key that also starts longer sequences waits
for more input; use :enter to resolve it (or pass --commit).

` + replHelp + `

Examples:
  keychord repl -c ./keys
  echo "g g" | keychord repl -c ./keys
  keychord repl -c ./keys --metrics-addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []engine.Option
			var stop func()
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				collector, err := metrics.NewCollector(reg)
				if err != nil {
					return err
				}
				stop, err = serveMetrics(metricsAddr, reg, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer stop()
				extra = append(extra, engine.WithObserver(collector))
			}

			tree, env, _, err := buildTree(cmd.Context(), opts, extra...)
			if err != nil {
				return err
			}

			r := &repl{
				tree:        tree,
				env:         env,
				session:     tree.NewSession(),
				out:         cmd.OutOrStdout(),
				interactive: isTerminal(cmd.InOrStdin()),
			}
			opts.Logger().Debug("repl started", "session", r.session.ID(), "interactive", r.interactive)
			return r.run(cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the session runs")
	return cmd
}

type repl struct {
	tree        *stringTree
	env         *stringEnv
	session     *engine.Session[types.Mode, types.Key, types.Action]
	out         io.Writer
	interactive bool
}

func (r *repl) run(in io.Reader) error {
	if r.interactive {
		_, _ = fmt.Fprintln(r.out, "keychord repl - :help for commands")
	}

	scanner := bufio.NewScanner(in)
	for r.prompt(); scanner.Scan(); r.prompt() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := r.meta(line); quit {
				return nil
			}
			continue
		}
		for _, k := range splitKeys([]string{line}) {
			actions, err := r.session.Feed(r.env, k)
			r.report(actions, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func (r *repl) prompt() {
	if !r.interactive {
		return
	}
	pending := ""
	if p := r.session.Pending(); len(p) > 0 {
		pending = " " + strings.Join(types.Strings(p), " ")
	}
	_, _ = fmt.Fprintf(r.out, "%s%s> ", r.env.Mode(), pending)
}

func (r *repl) report(actions []types.Action, err error) {
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(r.out, "✗ %v\n", err)
	case actions != nil:
		_, _ = fmt.Fprintf(r.out, "→ %s\n", joinActions(actions))
	default:
		_, _ = fmt.Fprintf(r.out, "… %s\n", strings.Join(types.Strings(r.session.Pending()), " "))
	}
}

// meta handles a ":" command and reports whether the session should end.
func (r *repl) meta(line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "q", "exit":
		return true
	case "enter", "e":
		r.report(r.session.Terminate(r.env))
	case "has":
		if arg == "" {
			_, _ = fmt.Fprintln(r.out, "✗ usage: :has <key>")
			break
		}
		_, _ = fmt.Fprintln(r.out, r.session.HasNext(r.env, types.Key(arg)))
	case "mode":
		mode, err := types.ParseMode(arg)
		if err != nil {
			_, _ = fmt.Fprintf(r.out, "✗ %v\n", err)
			break
		}
		r.env.SetMode(mode)
		_, _ = fmt.Fprintf(r.out, "mode %s\n", mode)
	case "set":
		vars, err := parseVars([]string{arg})
		if err != nil {
			_, _ = fmt.Fprintf(r.out, "✗ %v\n", err)
			break
		}
		for n, v := range vars {
			r.env.Set(n, v)
		}
	case "unset":
		r.env.Unset(arg)
	case "pending":
		_, _ = fmt.Fprintf(r.out, "[%s]\n", strings.Join(types.Strings(r.session.Pending()), " "))
	case "reset":
		r.session.Reset()
	case "help", "h":
		_, _ = fmt.Fprintln(r.out, replHelp)
	default:
		_, _ = fmt.Fprintf(r.out, "✗ unknown command :%s (:help for commands)\n", name)
	}
	return false
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// serveMetrics starts a metrics endpoint and returns a function stopping it.
func serveMetrics(addr string, g prometheus.Gatherer, errOut io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_, _ = fmt.Fprintf(errOut, "metrics server: %v\n", err)
		}
	}()
	_, _ = fmt.Fprintf(errOut, "serving metrics on http://%s/metrics\n", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
