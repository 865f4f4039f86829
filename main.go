// Command tictactoe-rooms starts the room-based tic-tac-toe server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and a .env file); flags override
// host/port, debug logging and the optional ngrok tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/tictactoe-rooms/api"
	"github.com/wricardo/tictactoe-rooms/game/config"
	"github.com/wricardo/tictactoe-rooms/game/room"
	"github.com/wricardo/tictactoe-rooms/game/service"
	"github.com/wricardo/tictactoe-rooms/transport/mcp"
	"github.com/wricardo/tictactoe-rooms/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tic-Tac-Toe Rooms Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("error loading .env file", "error", err)
		}
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the command line. Flags only override what the
// environment already configured.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "tictactoe-rooms",
		Usage:     AppName,
		Version:   Version,
		ArgsUsage: "[MODE]",
		Description: `Available modes:
  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)
  stdio-mcp        Run MCP stdio server with internal HTTP server
  mcp-stdio        Alias for stdio-mcp
  mcp              Alias for stdio-mcp

Examples:
  tictactoe-rooms                    # Run HTTP server on default port 8080
  tictactoe-rooms --port 9090        # Run HTTP server on port 9090
  tictactoe-rooms stdio-mcp          # Run MCP stdio server`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (HOST)"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (PORT)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging (DEBUG)"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: text or json (LOG_FORMAT)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (NGROK_ENABLED)"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (NGROK_DOMAIN)"},
		},
		Action: run,
	}
}

// run loads the configuration and starts the selected mode.
func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout belongs to the MCP stdio transport, so logs always go to stderr.
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	mode := cmd.Args().First()
	if mode == "" {
		mode = "server"
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		return runStdioMCPWithInternalServer(ctx, cfg, logger)
	case "server", "http":
		return runHTTPServer(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown mode %q: use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	// Also support the underscore spelling of the token variable.
	if cfg.Ngrok.AuthToken == "" {
		cfg.Ngrok.AuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the configured format and level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// application is the wired server: room registry, coordinator, hub and REST
// API.
type application struct {
	rooms   *room.Manager
	service service.GameService
	hub     *websocket.Hub
	api     *api.Server
}

// newApplication wires the services and starts the hub and the idle room
// sweep. Both stop when ctx is cancelled.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) *application {
	if logger == nil {
		logger = slog.Default()
	}
	rooms := room.NewManager(room.NewBcryptHasher(cfg.BcryptCost), logger)
	gameService := service.NewGameService(rooms, logger)

	hub := websocket.NewHub(gameService, cfg.WebSocket, logger)
	go hub.Run(ctx)

	if cfg.RoomIdleTimeout > 0 {
		go roomCleanupRoutine(ctx, gameService, hub, cfg.RoomIdleTimeout, cfg.RoomSweepInterval(), logger)
	}

	return &application{
		rooms:   rooms,
		service: gameService,
		hub:     hub,
		api:     api.NewServer(gameService, hub, logger),
	}
}

func (a *application) Close() {
	a.rooms.Close()
}

// roomCleanupRoutine periodically empties rooms that have not changed within
// maxIdle. REST clients never disconnect, so this is the only way their
// rooms go away.
func roomCleanupRoutine(ctx context.Context, svc service.GameService, out service.Transport, maxIdle, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := svc.CleanupIdleRooms(ctx, out, maxIdle); removed > 0 {
				logger.Info("cleaned up idle rooms", "rooms", removed)
			}
		}
	}
}

// newRouter mounts the API at the root and the MCP JSON-RPC endpoint at /mcp.
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApplication(ctx, cfg, logger)
	defer app.Close()

	addr := cfg.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	mainRouter := newRouter(app.api, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"rest", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws",
			"mcp", "http://"+addr+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	var tunnelServer *http.Server
	if cfg.Ngrok.Enabled {
		tunnelServer = &http.Server{Handler: mainRouter}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveNgrok(ctx, cfg.Ngrok, tunnelServer, logger); err != nil {
				logger.Error("ngrok tunnel failed", "error", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if tunnelServer != nil {
		if err := tunnelServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("ngrok server shutdown error", "error", err)
		}
	}

	wg.Wait()
	logger.Info("server stopped")
	return runErr
}

// serveNgrok exposes handler through an ngrok tunnel until the server is
// shut down.
func serveNgrok(ctx context.Context, opts config.Ngrok, tunnelServer *http.Server, logger *slog.Logger) error {
	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
		logger.Info("using custom ngrok domain", "domain", opts.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.AuthToken))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"rest", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws",
		"mcp", ngrokURL+"/mcp")

	// Serve closes the tunnel listener when it returns.
	if err := tunnelServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// apiAvailable reports whether a healthy API answers at baseURL.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse the API at cfg.APIURL; if unavailable, it starts an
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	baseURL := cfg.APIURL
	logger.Info("checking for external API server", "url", baseURL)

	if apiAvailable(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}

		app := newApplication(ctx, cfg, logger)
		defer app.Close()

		httpServer := &http.Server{Handler: app.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL, "connection_id", mcpClient.ConnectionID())

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
