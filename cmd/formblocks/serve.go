package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formblocks/internal/config"
	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/feedback"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured forms over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, opts, assembler.Navigator())
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			router, err := newRouter(a)
			if err != nil {
				return err
			}
			return listen(ctx, a.log.Logger, a.cfg.Server.Addr, router)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding the configuration")
	return cmd
}

// newRouter mounts every configured form on its route plus the metrics and
// health endpoints.
func newRouter(a *app) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if a.cfg.Server.MetricsPath != "" {
		r.Method(http.MethodGet, a.cfg.Server.MetricsPath, a.metrics.Handler())
	}

	presenter := feedback.Log(a.log.WithName("feedback"))
	for _, f := range a.cfg.Forms {
		form, err := f.Assembler()
		if err != nil {
			return nil, fmt.Errorf("formblocks: form %s: %w", f.Name, err)
		}
		r.Handle(f.Route, a.assembler.Handler(form, handlerOptions(f, presenter)...))
		a.log.V(1).Info("form mounted", "form", f.Name, "route", f.Route, "variant", f.Variant)
	}
	return r, nil
}

func handlerOptions(f config.Form, presenter feedback.Presenter) []assembler.HandlerOption {
	opts := []assembler.HandlerOption{assembler.WithPresenter(presenter)}
	if f.TwoStep {
		opts = append(opts, assembler.WithTwoStep(f.Redirect), assembler.WithFlowTTL(f.CodeTTL))
	}
	return opts
}

func requestLogger(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.V(1).Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"elapsed", time.Since(start).String(),
				"requestID", middleware.GetReqID(r.Context()))
		})
	}
}

func listen(ctx context.Context, log logr.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
