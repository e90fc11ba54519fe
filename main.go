package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/pagemenu/server/button"
	"github.com/pagemenu/server/content"
	"github.com/pagemenu/server/logger"
	"github.com/pagemenu/server/mcp"
	"github.com/pagemenu/server/menu"
	"github.com/pagemenu/server/middleware"
	"github.com/pagemenu/server/page"
	"github.com/pagemenu/server/registry"
	"github.com/pagemenu/server/settings"
	"github.com/pagemenu/server/ws"
)

const version = "1.0.0"

func newHandler(token string, rpcHandler *ws.RPCHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// WebSocket endpoint (handles its own auth via the auth RPC)
	mux.Handle("GET /ws", rpcHandler)

	return middleware.Auth(token)(mux)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	token := os.Getenv("AUTH_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "AUTH_TOKEN environment variable is required")
		os.Exit(1)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	devMode := os.Getenv("DEV_MODE") == "true"

	logger.Init(logger.Config{DataDir: dataDir, DevMode: devMode})

	settingsStore, err := settings.NewStore(dataDir)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	cfg := settingsStore.Get()

	sessions := registry.New()
	for _, sl := range cfg.SessionLimits {
		if err := sessions.SetLimit(registry.Scope(strings.ToLower(sl.Scope)), sl.Limit, sl.Message); err != nil {
			slog.Error("failed to apply session limit", "scope", sl.Scope, "error", err)
			os.Exit(1)
		}
	}

	if len(os.Args) > 1 && os.Args[1] == "--mcp" {
		if err := mcp.NewServer(sessions).Run(context.Background()); err != nil {
			slog.Error("mcp server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	hub := ws.NewHub()
	hub.DeleteInteractions = cfg.DeleteInteractions

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	var source *content.Source
	if dir := os.Getenv("CONTENT_DIR"); dir != "" {
		source, err = startContentSession(ctx, dir, cfg, hub, sessions)
		if err != nil {
			slog.Error("failed to start content session", "dir", dir, "error", err)
			os.Exit(1)
		}
		defer source.Stop()
	}

	rpcHandler := ws.NewRPCHandler(token, version, devMode, hub, sessions)
	server := &http.Server{
		Addr:    ":" + port,
		Handler: newHandler(token, rpcHandler),
	}

	slog.Info("server starting", "port", port, "dataDir", dataDir)
	printConnectQR(port, token)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}

	if err := sessions.StopAll(); err != nil {
		slog.Warn("failed to stop sessions cleanly", "error", err)
	}
}

// startContentSession serves the pages found in dir as a shared menu
// session and keeps them live through the directory watcher.
func startContentSession(ctx context.Context, dir string, cfg settings.Settings, hub *ws.Hub, sessions *registry.Registry) (*content.Source, error) {
	source := content.NewSource(dir)
	pages, err := source.Load()
	if err != nil {
		return nil, err
	}

	store := page.NewStore()
	store.AppendPages(pages)

	buttons := button.NewRegistry()
	for _, b := range button.AllNav() {
		if err := buttons.Add(b); err != nil {
			return nil, err
		}
	}

	sess, err := menu.New(menu.Config{
		Name:        "content",
		Owner:       "server",
		Channel:     "lobby",
		Timeout:     time.Duration(cfg.DefaultTimeoutSeconds) * time.Second,
		AllCanClick: true,
		Director:    page.Director{Show: true, Style: cfg.DirectorStyle},
	}, store, buttons, hub, sessions)
	if err != nil {
		return nil, err
	}
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	if err := source.Start(); err != nil {
		sess.Stop()
		return nil, err
	}
	source.Subscribe(sess)
	return source, nil
}

// printConnectQR renders a scannable connect URL when running in a
// terminal. Skipped for piped output so logs stay clean.
func printConnectQR(port, token string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	url := fmt.Sprintf("ws://localhost:%s/ws?token=%s", port, token)
	fmt.Println("Scan to connect:")
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:     qrterminal.L,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
	fmt.Println(url)
}
