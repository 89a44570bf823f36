// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/weblayout/internal/observability"
)

// resetForTest isolates a test from the global logger, the working
// directory's config.yaml and the system font directories.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	t.Chdir(t.TempDir())
	t.Setenv("WEBLAYOUT_FONTS_DIRECTORIES", t.TempDir())
	t.Setenv("WEBLAYOUT_LOGGER_LEVEL", "error")
}

// execute runs the root command and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)

	out, _, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	resetForTest(t)

	out, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "weblayout "+Version)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("viewport:\n  width: 321\n  height: 123\n"), 0o644))
	page := writeFile(t, dir, "index.html", `<p>x</p>`)

	out, _, err := execute(t, "--config", cfgPath, "render", "--format", "json", page)

	require.NoError(t, err)
	assert.Contains(t, out, `"width": 321`)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	resetForTest(t)
	t.Setenv("WEBLAYOUT_VIEWPORT_WIDTH", "-5")

	_, _, err := execute(t, "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "viewport")
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	resetForTest(t)

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")

	assert.Error(t, err)
}

func TestConfigFromRequiresRoot(t *testing.T) {
	_, err := configFrom(context.Background())
	assert.Error(t, err)
}
