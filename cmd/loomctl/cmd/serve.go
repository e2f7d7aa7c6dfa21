package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/config"
	"github.com/loomkit/loom/pkg/dispatch"
	"github.com/loomkit/loom/pkg/engine"
	"github.com/loomkit/loom/pkg/logging"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
	"github.com/loomkit/loom/pkg/transport/httpadapter"
)

var (
	serveAddr string
	serveEnv  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh a loom application and serve it over HTTP until signaled",
	RunE: func(c *cobra.Command, args []string) error {
		exitCode = runServe(c.Context())
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().StringVar(&serveEnv, "env", "development", "logging environment (development|production)")
}

func runServe(ctx context.Context) int {
	log := logging.New(serveEnv)
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("invalid config", "error", err)
		return engine.ExitStartupFailure
	}

	e := engine.New(cfg, log)

	// A default liveness route so `serve` is immediately useful even
	// before an embedding application registers its own routes/components.
	_ = e.RegisterRoute(&dispatch.HandlerDescriptor{
		Method:  "GET",
		Pattern: "/healthz",
		Handler: func(ctx context.Context, rc *reqcontext.Context, bound map[string]any) (*response.Response, error) {
			return response.Text(http.StatusOK, "ok"), nil
		},
	})

	if configPath != "" {
		if err := e.WatchConfig(configPath); err != nil {
			log.Warn("config watcher disabled", "error", err)
		}
	}

	server := &http.Server{Addr: serveAddr, Handler: httpadapter.Handler(e)}

	return engine.Run(ctx, e, func(ctx context.Context) error {
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErrCh := make(chan error, 1)
		go func() { serveErrCh <- server.ListenAndServe() }()

		select {
		case err := <-serveErrCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCtx.Done():
			log.Info("shutting down")
			return server.Shutdown(context.Background())
		}
	})
}
