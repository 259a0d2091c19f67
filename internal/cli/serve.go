package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/internal/httpapi"
	"github.com/dshills/personarag/internal/mcp"
	"github.com/dshills/personarag/internal/storage"
)

var (
	serveHTTP bool
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over MCP (stdio) or HTTP",
	Long: `Serve the engine until interrupted.

By default the MCP protocol is spoken on stdin/stdout, so all logging goes
to stderr and the log file. With --http a JSON API is served instead.

Examples:
  personarag serve
  personarag serve --http --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "serve the HTTP API instead of MCP stdio")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default: PERSONARAG_HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger.Info("personarag starting",
		"version", Version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName)

	if serveHTTP {
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		if err := httpapi.New(engine, logger).Listen(ctx, addr, cfg.ShutdownTimeout); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		logger.Info("server stopped")
		return nil
	}

	server, err := mcp.NewServer(engine)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	logger.Info("MCP server ready, listening on stdio")
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
