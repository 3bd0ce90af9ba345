// Package main is the askindex CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/askindex/internal/cli"
	"github.com/hyperjump/askindex/internal/config"
	"github.com/hyperjump/askindex/internal/metrics"
	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/server"
	"github.com/hyperjump/askindex/internal/service"
	"github.com/hyperjump/askindex/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "askindex",
		Short: "Semantic question search over per-industry vector indexes",
		Long: `askindex embeds a natural-language question and returns the nearest
rows of the requested industry's vector index.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.AddCommand(newServeCmd(), newSearchCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "askindex %s (%s, %s)\n", version, commit, buildDate)
		},
	}
}

// serveFlags are command-line overrides applied on top of the config file.
type serveFlags struct {
	configPath string
	modelPath  string
	dataPath   string
	driver     string
	host       string
	port       int
	logLevel   string
	jsonLogs   bool
	debug      bool
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the embedder, connect to the index engine and serve POST /search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "config file path (defaults are used when empty)")
	fl.StringVar(&f.modelPath, "model-path", "", "ONNX embedding model path")
	fl.StringVar(&f.dataPath, "data-path", "", "index engine data source (sqlite database file)")
	fl.StringVar(&f.driver, "driver", "", "index engine driver: sqlite3, sqlite or memory")
	fl.StringVar(&f.host, "host", "", "listen host")
	fl.IntVar(&f.port, "port", 0, "listen port")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fl.BoolVar(&f.jsonLogs, "json-logs", false, "emit JSON logs")
	fl.BoolVar(&f.debug, "debug", false, "enable debug logging")
	return cmd
}

// loadServeConfig reads the config file (or defaults) and applies flags the user set.
func loadServeConfig(cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	changed := cmd.Flags().Changed
	if changed("model-path") {
		cfg.Embedding.ModelPath = f.modelPath
	}
	if changed("data-path") {
		cfg.Index.DataSource = f.dataPath
	}
	if changed("driver") {
		cfg.Index.Driver = f.driver
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("json-logs") {
		cfg.Logging.JSON = f.jsonLogs
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	return cfg, nil
}

func runServe(cfg *config.Config) error {
	logger, err := utils.NewLoggerWithOptions(utils.LoggerOptions{
		Debug: cfg.Debug,
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Register()

	state, err := service.Start(context.Background(), cfg, logger)
	if err != nil {
		var se *service.StartupError
		if errors.As(err, &se) {
			logger.Error("Startup failed", zap.String("stage", se.Stage), zap.Error(se.Err))
		}
		return err
	}
	defer func() {
		if err := state.Stop(); err != nil {
			logger.Warn("Shutdown released resources with errors", zap.Error(err))
		}
	}()

	srv := server.NewServer(state, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}
	return nil
}

func newSearchCmd() *cobra.Command {
	var (
		serverURL string
		industry  string
		topK      int
		output    string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "search [flags] <question...>",
		Short: "Query a running server",
		Long: `Query a running askindex server. The question is all remaining arguments
joined by spaces, so quoting multi-word questions is optional.

Examples:
  askindex search --industry finance how do I open an account
  askindex search --industry retail --top-k 5 --output json "return policy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := &models.SearchQuery{
				Question: buildQuestion(args),
				Industry: industry,
				TopK:     topK,
			}
			if err := q.Validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			results, err := cli.NewClient(serverURL).Search(ctx, q)
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), q, results, cli.SearchOutputFormat(output))
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&serverURL, "server", "http://localhost:8001", "server base URL")
	fl.StringVar(&industry, "industry", "", "tenant (industry) whose index is searched")
	fl.IntVar(&topK, "top-k", 3, "number of results to return")
	fl.StringVar(&output, "output", string(cli.OutputText), "output format: text or json")
	fl.DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("industry")
	return cmd
}

// buildQuestion joins positional args into a single question.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
