package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configFile, generateOutput, showVersion = "", "", false
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	SetVersion("1.2.3")
	defer SetVersion("dev")

	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestGenerateOpenAPIWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "openapi.json")

	_, err := run(t, "generate", "openapi", "-o", path, "--base-url", "http://gateway:8080")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, string(data), "http://gateway:8080")
}

func TestValidateConfigFile(t *testing.T) {
	for _, key := range []string{"PORT", "MCP_ENV", "NODE_ENV", "MCP_API_KEY", "FALKORDB_HOST"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 4100\n  environment: development\n"), 0o600))

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "port:          4100")
	assert.Contains(t, out, "disabled (development, no key)")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  environment: staging\n"), 0o600))
	t.Setenv("MCP_ENV", "")
	t.Setenv("NODE_ENV", "")

	_, err := run(t, "validate", "-c", path)
	assert.Error(t, err)
}
