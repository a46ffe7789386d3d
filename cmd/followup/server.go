package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/followup/internal/api"
	"github.com/kalambet/followup/internal/config"
	"github.com/kalambet/followup/internal/extract"
	"github.com/kalambet/followup/internal/friends"
	"github.com/kalambet/followup/internal/ingest"
	"github.com/kalambet/followup/internal/ollama"
	"github.com/kalambet/followup/internal/storage"
	"github.com/kalambet/followup/internal/weather"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the followup server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		noMCP, _ := cmd.Flags().GetBool("no-mcp")
		return runServer(noMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running followup server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show followup system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("no-mcp", false, "do not serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "followup.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newExtractor picks the extraction mode from config. LLM mode needs a
// running Ollama with the model pulled.
func newExtractor(ctx context.Context, cfg config.Config) (extract.Service, error) {
	if cfg.Extract.Mode != config.ModeLLM {
		return extract.Heuristic(nil), nil
	}
	client := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, client, cfg.Ollama.Model, os.Stderr); err != nil {
		return nil, err
	}
	return extract.NewLLMExtractor(client, cfg.Ollama.Model, cfg.Extract.Timeout, nil), nil
}

func runServer(noMCP bool) error {
	fmt.Fprintf(os.Stderr, "followup version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})))

	apiToken, err := config.APIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start a second instance on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("followup is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("followup is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("extractor ready", "mode", cfg.Extract.Mode)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	friendsSvc := friends.NewService(store)

	handler := api.NewHandler(api.Deps{
		Store:      store,
		Friends:    friendsSvc,
		Extractor:  extractor,
		Token:      apiToken,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "followup listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	worker := ingest.NewWorker(store, extractor, cfg.Worker.PollInterval)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if !noMCP {
		var wc api.WeatherClient
		if cfg.Weather.APIKey != "" {
			wc = weather.New(cfg.Weather.BaseURL, cfg.Weather.APIKey)
		} else {
			slog.Warn("weather API key not set, weather tools disabled")
		}
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Store:     store,
			Friends:   friendsSvc,
			Extractor: extractor,
			Weather:   wc,
			Version:   version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		// A closed stdin ends MCP but not the HTTP server.
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("followup is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop followup (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to followup (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Extraction", "%s", cfg.Extract.Mode)
	if cfg.Extract.Mode == config.ModeLLM {
		oc := ollama.New(cfg.Ollama.BaseURL)
		if oc.IsRunning(ctx) {
			printStatus("Ollama", "running at %s (model %s)", cfg.Ollama.BaseURL, cfg.Ollama.Model)
		} else {
			printStatus("Ollama", "not running")
		}
	}
	if cfg.Weather.APIKey == "" {
		printStatus("Weather", "no API key")
	} else {
		printStatus("Weather", "configured")
	}

	if running {
		if c, err := newAPIClient(); err == nil {
			var open []actionItem
			if err := c.call(ctx, http.MethodGet, "/action-items?completed=false&limit=200", nil, &open); err == nil {
				printStatus("Open items", "%s", countLabel(len(open), 200))
			}
			var notes []note
			if err := c.call(ctx, http.MethodGet, "/notes?limit=200", nil, &notes); err == nil {
				printStatus("Notes", "%s", countLabel(len(notes), 200))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
