package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mol-cyberwhip/veteranVR/internal/mcp"
)

var (
	serveTransport string
	servePort      int
	serveAPIKey    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start a Model Context Protocol (MCP) server that exposes the catalog,
the install queue, uninstall, logs and the readiness check as tools.
The download worker runs for as long as the server does.

Transport options:
  stdio: Standard input/output (default, for local CLI integration)
  sse:   Server-Sent Events over HTTP (for remote connections, requires API key)
  http:  Streamable HTTP (for bidirectional HTTP communication, requires API key)

Examples:
  # Start stdio server
  veteranvr serve

  # Start HTTP/SSE server on port 8080 (API key required)
  veteranvr serve --transport sse --port 8080 --serve-api-key mysecretkey

  # Or use environment variable for API key
  export VETERANVR_SERVE_API_KEY=mysecretkey
  veteranvr serve --transport http --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport type: stdio, sse, or http")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port for HTTP/SSE server")
	serveCmd.Flags().StringVar(&serveAPIKey, "serve-api-key", "", "API key for HTTP authentication (or VETERANVR_SERVE_API_KEY env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	server := mcpserver.NewServer(s.app, Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- s.app.Run(ctx)
	}()
	defer func() {
		cancel()
		<-workerDone
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch serveTransport {
	case "stdio":
		go func() {
			<-sigChan
			cancel()
		}()
		s.logger.Info("Starting MCP server on stdio")
		return server.RunStdio(ctx)

	case "sse":
		return runHTTPServerWithShutdown(server.NewHTTPHandler(), "SSE", s.cfg.Serve.APIKey, sigChan)

	case "http":
		return runHTTPServerWithShutdown(server.NewStreamableHTTPHandler(), "HTTP", s.cfg.Serve.APIKey, sigChan)

	default:
		return fmt.Errorf("unknown transport: %s (must be stdio, sse, or http)", serveTransport)
	}
}

func runHTTPServerWithShutdown(handler http.Handler, transportName, configuredKey string, sigChan chan os.Signal) error {
	// Flag first, then the environment or config file
	httpAPIKey := serveAPIKey
	if httpAPIKey == "" {
		httpAPIKey = configuredKey
	}

	// Require API key for HTTP server
	if httpAPIKey == "" {
		return fmt.Errorf("API key required for HTTP server. Use --serve-api-key or set VETERANVR_SERVE_API_KEY environment variable")
	}

	handler = mcpserver.APIKeyMiddleware(httpAPIKey, handler)

	addr := fmt.Sprintf(":%d", servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on signal
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	fmt.Fprintf(os.Stderr, "Starting MCP %s server on http://localhost%s (API key authentication enabled)\n", transportName, addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
