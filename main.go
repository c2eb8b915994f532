package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/workspace-mcp/backend"
	"github.com/lexandro/workspace-mcp/config"
	"github.com/lexandro/workspace-mcp/metrics"
	"github.com/lexandro/workspace-mcp/persist"
	"github.com/lexandro/workspace-mcp/register"
	"github.com/lexandro/workspace-mcp/server"
	"github.com/lexandro/workspace-mcp/terminal"
	"github.com/lexandro/workspace-mcp/tools"
	"github.com/lexandro/workspace-mcp/vcs"
	"github.com/lexandro/workspace-mcp/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

// indexStaleAfter is how long the search index is trusted before a query
// re-verifies it against the disk.
const indexStaleAfter = 30 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "register" {
		if err := register.Run(register.DeriveServerName(os.Args[0]), os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		rootDir          string
		configPath       string
		stateDir         string
		metricsAddr      string
		logLevel         string
		logFile          string
		excludes         []string
		maxFileSizeBytes int64
		maxResults       int
	)

	flagSet := pflag.NewFlagSet("workspace-mcp", pflag.ContinueOnError)
	flagSet.StringVar(&rootDir, "root", "", "project to open on start (default: the restored project)")
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: ~/.workspace-mcp/config.yaml)")
	flagSet.StringVar(&stateDir, "state-dir", "", "directory for persisted workspace state (default: next to the config file)")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flagSet.StringVar(&logFile, "log-file", "", "log file path (default: stderr)")
	flagSet.StringArrayVar(&excludes, "exclude", nil, "extra ignore pattern (repeatable)")
	flagSet.Int64Var(&maxFileSizeBytes, "max-file-size", 0, "largest file in bytes to open or index (overrides config)")
	flagSet.IntVar(&maxResults, "max-results", 0, "search result limit (overrides config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	// Setup logger (always to file or stderr, never to stdout - stdout is for MCP stdio)
	logger := setupLogger(logLevel, logFile)

	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("max-file-size") {
		cfg.Tree.MaxFileSize = maxFileSizeBytes
	}
	if flagSet.Changed("max-results") {
		cfg.Search.MaxResults = maxResults
	}
	cfg.Tree.Excludes = append(cfg.Tree.Excludes, excludes...)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if stateDir == "" {
		stateDir = filepath.Join(filepath.Dir(configPath), "state")
	}
	compression, _ := persist.ParseCompression(cfg.Persistence.Compression)

	logger.Info("starting workspace-mcp",
		"config", configPath,
		"stateDir", stateDir,
		"maxFileSize", cfg.Tree.MaxFileSize,
		"maxResults", cfg.Search.MaxResults,
		"compression", compression,
	)
	startTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	// Local collaborator
	search, err := backend.NewSearch(backend.SearchOptions{
		Excludes:         cfg.Tree.Excludes,
		RespectGitignore: cfg.Tree.RespectGitignore,
		MaxFileSize:      cfg.Tree.MaxFileSize,
		StaleAfter:       indexStaleAfter,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}
	defer search.Close()
	fs := backend.NewFS(backend.FSOptions{
		Excludes:         cfg.Tree.Excludes,
		RespectGitignore: cfg.Tree.RespectGitignore,
		MaxFileSize:      cfg.Tree.MaxFileSize,
		Indexer:          search,
		Logger:           logger,
	})

	// Workspace engine
	store := workspace.New(workspace.Options{
		Filesystem:       fs,
		Searcher:         search,
		Snapshots:        &persist.Snapshots{Store: openStateStore(stateDir, logger), Compression: compression},
		Logger:           logger,
		MaxSearchResults: cfg.Search.MaxResults,
	})
	if err := store.Restore(); err != nil {
		logger.Warn("discarding unreadable workspace state", "error", err)
		if err := store.Reset(); err != nil {
			logger.Warn("clearing workspace state failed", "error", err)
		}
	}
	if rootDir != "" {
		rootDir, _ = filepath.Abs(rootDir)
		if err := store.SetProject(ctx, rootDir); err != nil {
			return err
		}
	} else if store.ProjectPath() != "" {
		if err := store.LoadRoot(ctx); err != nil {
			logger.Warn("restored project could not be loaded", "project", store.ProjectPath(), "error", err)
		}
	}

	overlay := vcs.New(vcs.Options{
		VCS:     backend.NewGit(logger),
		Project: store,
		Buffers: store,
		Logger:  logger,
	})
	if err := overlay.CheckRepository(ctx); err != nil {
		logger.Warn("repository check failed", "error", err)
	}

	tabs := terminal.New(ctx, terminal.Options{
		Shells:       backend.Shells{},
		DefaultShell: cfg.Terminal.DefaultShell,
		Logger:       logger,
	})

	// Setup and run MCP server on stdio
	mcpServer := server.Setup(server.Handlers{
		Project:  &tools.ProjectHandler{Store: store, VCS: overlay, Logger: logger},
		Buffers:  &tools.BufferHandler{Store: store, Logger: logger},
		Search:   &tools.SearchHandler{Store: store, Logger: logger},
		VCS:      &tools.VCSHandler{Overlay: overlay, Store: store, Logger: logger},
		Terminal: &tools.TerminalHandler{Registry: tabs, Logger: logger},
		Status: &tools.StatusHandler{
			Store:     store,
			VCS:       overlay,
			Terminal:  tabs,
			StartTime: startTime,
			Logger:    logger,
		},
	})

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}

// openStateStore returns a file-backed snapshot store, or an in-memory one
// when the state directory cannot be used.
func openStateStore(dir string, logger *slog.Logger) persist.Store {
	store, err := persist.NewFileStore(dir)
	if err != nil {
		logger.Warn("workspace state will not survive restarts", "dir", dir, "error", err)
		return persist.NewMemoryStore()
	}
	return store
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "addr", addr, "error", err)
	}
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
