package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"piprobe/pkg/buildinfo"
	pipErrors "piprobe/pkg/errors"
	"piprobe/pkg/puller"
)

// serveCommand creates the serve command: the resolve operation exposed
// as an HTTP event handler.
//
// The surface mirrors the worker contract piprobe is embedded in:
//
//	curl -X POST localhost:8080/run/pull -d '{"pkg": "requests", "alreadyInstalled": false}'
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resolve as an HTTP event handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			if addr != "" {
				c.cfg.Serve.Addr = addr
			}

			p, err := c.newPuller(cmd.Context(), false, false)
			if err != nil {
				return err
			}

			srv := &server{
				puller:  p,
				isolate: c.cfg.Serve.IsolateInvocations,
				logger:  c.Logger,
			}
			return srv.listen(cmd.Context(), c.cfg.Serve.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	return cmd
}

// server handles pull events over HTTP.
type server struct {
	puller  *puller.Puller
	isolate bool
	logger  *log.Logger
}

func (s *server) listen(ctx context.Context, addr string) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/run/pull", s.handlePull)
	r.Get("/status", s.handleStatus)
	r.Get("/debug", s.handleDebug)

	httpSrv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlePull decodes one event, resolves it, and writes the result.
// With isolation enabled, each event that installs gets its own target
// subdirectory so concurrent installs cannot race on shared files.
func (s *server) handlePull(w http.ResponseWriter, r *http.Request) {
	var ev puller.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event body: "+err.Error())
		return
	}

	p := s.puller
	if s.isolate && !ev.AlreadyInstalled {
		p = p.WithTarget(filepath.Join(p.Target(), uuid.NewString()))
	}

	res, err := p.Resolve(r.Context(), ev)
	if err != nil {
		s.logger.Error("resolve failed", "pkg", ev.Pkg, "err", err)
		writeError(w, statusFor(err), pipErrors.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ready",
		"version": buildinfo.Version,
	})
}

func (s *server) handleDebug(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"target":  s.puller.Target(),
		"isolate": s.isolate,
		"build":   buildinfo.String(),
	})
}

// statusFor maps structured error codes onto HTTP statuses.
func statusFor(err error) int {
	switch pipErrors.GetCode(err) {
	case pipErrors.ErrCodeInvalidSpecifier, pipErrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case pipErrors.ErrCodeInstallFailed, pipErrors.ErrCodeInstallStart:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
