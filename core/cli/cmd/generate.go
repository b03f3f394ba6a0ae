package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	transporthttp "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

var (
	generateOutput  string
	generateBaseURL string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate artifacts describing the gateway",
	Long: `Generate artifacts describing the gateway API.
Available subcommands include 'openapi'.`,
}

var generateOpenAPICmd = &cobra.Command{
	Use:           "openapi",
	Short:         "Write the OpenAPI document served at /docs",
	RunE:          generateOpenAPI,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.AddCommand(generateOpenAPICmd)

	generateOpenAPICmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
	generateOpenAPICmd.Flags().StringVar(&generateBaseURL, "base-url", "http://localhost:3000", "Server URL advertised in the document")
}

func generateOpenAPI(cmd *cobra.Command, args []string) error {
	body, err := transporthttp.GenerateOpenAPISpec(generateBaseURL)
	if err != nil {
		return logger.WithTag("generate", fmt.Errorf("failed to generate OpenAPI document: %w", err))
	}

	if generateOutput == "" {
		_, err := cmd.OutOrStdout().Write(append(body, '\n'))
		return err
	}

	if err := os.MkdirAll(filepath.Dir(generateOutput), 0o755); err != nil {
		return logger.WithTag("generate", err)
	}
	if err := os.WriteFile(generateOutput, body, 0o644); err != nil {
		return logger.WithTag("generate", fmt.Errorf("failed to write %s: %w", generateOutput, err))
	}
	logger.New("generate").Successf("OpenAPI document written to %s", generateOutput)
	return nil
}
