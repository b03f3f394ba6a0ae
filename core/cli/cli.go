package cli

import (
	"github.com/falkordb/falkordb-mcp/core/cli/cmd"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

// Execute runs the CLI
func Execute() error {
	if err := cmd.Execute(); err != nil {
		tag := logger.ErrorTag(err)
		if tag == "" {
			tag = "cli"
		}
		logger.New(tag).Errorf("%v", err)
		return err
	}
	return nil
}
