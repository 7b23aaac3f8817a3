package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/imagetoprompts/naimeta/internal/alpha"
	"github.com/imagetoprompts/naimeta/internal/caption"
	"github.com/imagetoprompts/naimeta/internal/extract"
	"github.com/imagetoprompts/naimeta/internal/handlers"
)

func newServeCmd() *cobra.Command {
	var port string
	var alphaURL string
	var captionProvider string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the metadata extraction API",
		Long: `Starts the HTTP API on the specified port.

POST an image to /api/extract as a multipart upload or as a JSON body with
an image_url. Extracted records are kept in memory under /api/records.`,
		Example: `  # Start server on default port 8888
  naimeta serve

  # Start server on custom port with the alpha decoder enabled
  naimeta serve --port 3000 --alpha-url http://localhost:5000/decode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := handlers.New(newServeService(alphaURL, captionProvider))

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/extract", handler.HandleExtract)
			mux.HandleFunc("/api/records", handler.HandleRecords)
			mux.HandleFunc("/api/records/", handler.HandleRecordDetail)
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
				slog.Info("naimeta API available", "addr", addr, "url", "http://localhost"+addr)
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
	cmd.Flags().StringVar(&alphaURL, "alpha-url", "", "Alpha decoder URL (defaults to ALPHA_DECODER_URL)")
	cmd.Flags().StringVar(&captionProvider, "caption", "", "Caption provider for images without metadata (gemini, ollama, openai; defaults to CAPTION_PROVIDER)")

	return cmd
}

// newServeService reads the environment fallbacks at run time, after the
// root command has loaded .env
func newServeService(alphaURL, captionProvider string) *extract.Service {
	svc := &extract.Service{}
	if client := alpha.New(alphaURL); client.Enabled() {
		svc.Alpha = client
	}
	if captionProvider == "" {
		captionProvider = caption.DefaultProvider()
	}
	if captionProvider != "" {
		svc.Captions = caption.NewService()
		svc.CaptionProvider = captionProvider
	}
	return svc
}
