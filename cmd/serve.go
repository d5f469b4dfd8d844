package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/promoops/artaudit/internal/config"
	"github.com/promoops/artaudit/internal/extraction"
	"github.com/promoops/artaudit/internal/gemini"
	"github.com/promoops/artaudit/internal/handlers"
	"github.com/promoops/artaudit/internal/queue"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server for the batch audit queue",
		Long: `Starts the artaudit web interface on the specified port.

The API accepts marketing-art image uploads, runs them through the audit
queue one at a time, and exposes queue snapshots plus the manual queue
controls (resume, prioritize, cancel).`,
		Example: `  # Start server on default port 8888
  artaudit serve

  # Start server on custom port with a config file
  artaudit serve --port 3000 --config artaudit.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			scheduler := newScheduler(cfg)
			scheduler.Start(cmd.Context())
			handler := handlers.New(scheduler)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/api/queue", handler.HandleQueue)
			mux.HandleFunc("/api/queue/", handler.HandleQueueItem)
			mux.HandleFunc("/api/settings/key", handler.HandleAPIKey)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Artaudit interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

// newScheduler builds the queue scheduler with the real Gemini provider.
func newScheduler(cfg config.Config) *queue.Scheduler {
	client := extraction.NewClient(gemini.New(), cfg.Model, cfg.Temperature)
	pipeline := queue.NewItemPipeline(client, cfg.Pipeline)
	return queue.NewScheduler(pipeline, cfg.Cooldown.Std())
}
