package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliCatalog = `
tools:
  - id: fs.read
    name: read_file
    category: file
skills:
  - id: skill.debug
    name: debugger
    description: debug code
    category: development
    tools: [fs.read]
  - id: skill.lint
    name: linter
    description: lint code
    category: development
    tools: [fs.read]
store:
  driver: bolt
  path: usage.bolt
`

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func writeCLIConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "validate", "recommend", "search", "popular", "related", "stats", "health", "record", "retention", "catalog"})
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("chatty")
	require.Error(t, err)
}

func TestCLI_EndToEnd(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog)

	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "validate"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "--json", "recommend", "debug", "my", "code", "--threshold", "0.1"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "record", "skill.debug", "--duration", "120ms"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "popular", "--limit", "3"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "related", "skill.debug"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "search", "code", "--category", "development"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "stats"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "health"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "retention", "run", "--at", "2030-01-01T00:00:00Z"))
}

func TestCLI_Errors(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog)

	err := runCLI(t, "--config", config, "--log-level", "error", "record", "missing")
	require.Error(t, err)

	err = runCLI(t, "--config", config, "--log-level", "error", "retention", "run", "--at", "yesterday")
	require.ErrorContains(t, err, "invalid --at")

	err = runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--log-level", "error", "validate")
	require.Error(t, err)

	unhealthy := writeCLIConfig(t, "tools:\n  - id: t1\n    name: a\n  - id: t1\n    name: b\n")
	err = runCLI(t, "--config", unhealthy, "--log-level", "error", "validate")
	var exitErr exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.code)
}

func TestCLI_CatalogEdits(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog)

	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "catalog", "info"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "catalog", "disable", "skill", "skill.lint"))
	require.NoError(t, runCLI(t, "--config", config, "--log-level", "error", "catalog", "set-recommend", "--limit", "2"))

	data, err := os.ReadFile(config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "enabled: false")
	assert.Contains(t, string(data), "limit: 2")

	err = runCLI(t, "--config", config, "--log-level", "error", "catalog", "enable", "tool", "missing")
	require.Error(t, err)
	err = runCLI(t, "--config", config, "--log-level", "error", "catalog", "set-recommend")
	require.Error(t, err)
}
