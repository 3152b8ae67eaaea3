package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gonkalabs/codeblur/internal/api"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API. Sessions live in memory and are dropped after
being idle for --ttl. Clients keep state across restarts with
GET and PUT /v1/sessions/{id}/state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			handler := api.New(a.sessionConfig(), ttl)
			defer handler.Close()

			mux := http.NewServeMux()
			handler.Register(mux)

			srv := &http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 300 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(sigCtx)

			g.Go(func() error {
				slog.Info("starting codeblur server",
					"addr", addr,
					"style", a.cfg.Style,
					"sessionTTL", ttl,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			// Graceful shutdown
			g.Go(func() error {
				<-ctx.Done()
				slog.Info("shutting down")

				shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutCancel()

				if err := srv.Shutdown(shutCtx); err != nil {
					slog.Error("shutdown error", "err", err)
					return err
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (default from config, :8080)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*time.Minute, "drop sessions idle for this long, 0 keeps them forever")
	return cmd
}
