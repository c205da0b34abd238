package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/api"
	"github.com/mesh-intelligence/todos/internal/mcp"
	"github.com/mesh-intelligence/todos/internal/tracker"
)

const (
	shutdownTimeout = 10 * time.Second
	serveLogLevel   = "info"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and MCP tools over HTTP",
		Long: `Serve starts an HTTP server with the JSON API under /api and the MCP
streamable HTTP endpoint at /mcp. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(f)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.ListenAddr
			}
			logger, err := newLogger(cmd.ErrOrStderr(), s.LogLevel, serveLogLevel)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr, err := tracker.Open(ctx, s.Config, logger)
			if err != nil {
				return sysError("%w", err)
			}
			defer func() {
				if err := tr.Close(context.Background()); err != nil {
					logger.WithError(err).Error("closing storage failed")
				}
			}()

			e := api.NewServer(tr, logger)
			mcpHTTP := server.NewStreamableHTTPServer(mcp.NewServer(tr, Version))
			e.Any("/mcp", echo.WrapHandler(mcpHTTP))

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", addr).Info("server starting")
				errCh <- e.Start(addr)
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return sysError("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return sysError("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config, 127.0.0.1:8080)")
	return cmd
}
