package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/falkordb/falkordb-mcp/core/config"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

// validateCmd checks the effective configuration without starting anything.
var validateCmd = &cobra.Command{
	Use:           "validate [config.yaml]",
	Short:         "Validate the gateway configuration",
	RunE:          validateConfig,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	log := logger.New("validate")

	path := configFile
	if len(args) > 0 {
		if configFile != "" {
			return logger.WithTag("validate", fmt.Errorf("cannot combine path argument with --config"))
		}
		path = args[0]
	}

	envDir := ""
	if path != "" {
		envDir = filepath.Dir(path)
	}
	LoadEnvFiles(envDir)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	auth := "api key"
	switch {
	case cfg.Auth.APIKey == "" && cfg.Development():
		auth = "disabled (development, no key)"
	case cfg.Auth.APIKey == "":
		auth = "reject all (no key)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "environment:   %s\n", cfg.Server.Environment)
	fmt.Fprintf(out, "port:          %d\n", cfg.Server.Port)
	fmt.Fprintf(out, "falkordb:      %s:%d (graph %s)\n", cfg.FalkorDB.Host, cfg.FalkorDB.Port, cfg.FalkorDB.DefaultGraph)
	fmt.Fprintf(out, "auth:          %s\n", auth)
	fmt.Fprintf(out, "subscribers:   %d (enforced: %t)\n", cfg.Stream.MaxSubscribers, cfg.Stream.EnforceLimit)
	fmt.Fprintf(out, "heartbeat:     %s\n", cfg.Stream.HeartbeatInterval)
	log.Successf("Configuration is valid")
	return nil
}
