package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/falkordb/falkordb-mcp/core/config"
	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/runtime"
)

// serveCmd runs the gateway until interrupted.
var serveCmd = &cobra.Command{
	Use:           "serve",
	Short:         "Start the FalkorDB MCP gateway",
	RunE:          serve,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file (environment variables take precedence)")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (overrides config and PORT env var)")
	serveCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG")
	serveCmd.Flags().BoolVarP(&verbose, "verbose", "", false, "Enable verbose logging (sets log level to DEBUG)")
	serveCmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides MCP_LOG_TAGS env var")
	serveCmd.Flags().BoolVar(&logFile, "log-file", false, "Also write logs to a file in the temp directory")
}

func serve(cmd *cobra.Command, args []string) error {
	rt, err := prepareRuntime(cmd.Context())
	if err != nil {
		return err
	}
	return rt.Start()
}

func prepareRuntime(ctx context.Context) (*runtime.Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New("main")

	// Configure logger before loading config for consistent startup logs.
	switch {
	case verbose:
		logger.SetLogLevel(logger.LogLevelDebug)
	case logLevel > 0:
		logger.SetLogLevel(logLevel)
	default:
		logger.SetLogLevel(logger.LogLevelInfo)
	}

	if logFile {
		filePath, err := logger.SetLogFile("")
		if err != nil {
			return nil, logger.WithTag("main", fmt.Errorf("failed to initialize log file: %w", err))
		}
		log.Infof("Log file: %s", filePath)
	}

	envDir := ""
	if configFile != "" {
		envDir = filepath.Dir(configFile)
	}
	LoadEnvFiles(envDir)

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if port > 0 {
		if cfg.Server.BaseURL == fmt.Sprintf("http://localhost:%d", cfg.Server.Port) {
			cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", port)
		}
		cfg.Server.Port = port
		if err := config.Validate(cfg); err != nil {
			return nil, logger.WithTag("config", err)
		}
	}

	tagFilter := logTags
	if tagFilter == "" {
		tagFilter = cfg.Log.Tags
	}
	if tagFilter != "" {
		logger.SetTagFilter(tagFilter)
	}

	log.Infof("Configuration loaded (environment: %s)", cfg.Server.Environment)

	rt, err := runtime.NewRuntime(ctx, cfg, GetVersion())
	if err != nil {
		return nil, err
	}
	log.Infof("Runtime initialized")
	return rt, nil
}
