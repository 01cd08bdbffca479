package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/circle"
	"github.com/pmerten/fedicircle/pkg/config"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	config    string
	redisAddr string
}

// serveCommand creates the serve command exposing the circle pipeline over
// HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve circle computations over HTTP",
		Long: `Serve circle computations over HTTP.

Endpoints:
  GET /healthz                               liveness probe
  GET /api/circle?handle=<h>[&backend=<f>]   compute a circle

With --redis-addr, instance detection results are shared between processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.config, "config", "", "weights and band sizes config file (TOML)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address for a shared detection store")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, opts.redisAddr, false)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := c.newBuilder(cfg, store)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           c.routes(builder),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// routes builds the HTTP router. The builder is shared across requests so
// detection stays memoized for the server's lifetime.
func (c *CLI) routes(builder *circle.Builder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/circle", c.handleCircle(builder))

	return r
}

type errorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id"`
}

func (c *CLI) handleCircle(builder *circle.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		runID := uuid.NewString()
		logger := c.Logger.With("run", runID)

		handle := req.URL.Query().Get("handle")
		if handle == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing handle parameter", RunID: runID})
			return
		}

		forced, err := forcedFamily(req.URL.Query().Get("backend"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RunID: runID})
			return
		}

		logger.Info("circle requested", "handle", handle, "backend", req.URL.Query().Get("backend"))
		prog := newProgress(logger)

		result, err := builder.Build(req.Context(), handle, forced)
		if err != nil {
			logger.Warn("circle failed", "handle", handle, "err", err)
			status := http.StatusBadGateway
			if errors.Is(err, backend.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, errorResponse{Error: err.Error(), RunID: runID})
			return
		}

		prog.done("Ranked " + handle)
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
