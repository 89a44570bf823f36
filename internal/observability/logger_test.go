// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/weblayout/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lockedBuffer is a WriteSyncer backed by memory.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ zapcore.WriteSyncer = (*lockedBuffer)(nil)

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes levels", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}
		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "weblayout",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)

		Component("layout").Info("box tree generated")
		Sync()

		s := out.String()
		assert.Contains(t, s, "INFO")
		assert.Contains(t, s, "box tree generated")
		assert.Contains(t, s, palette["green"])
		assert.Contains(t, s, ansiReset)
		assert.Contains(t, s, "weblayout.layout.")
	})

	t.Run("json format", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "jsontest"}, out)

		GetLogger().Warn("font missing", zap.String("family", "Inter"))
		Sync()

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(out.String()), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "jsontest", entry["logger"])
		assert.Equal(t, "font missing", entry["msg"])
		assert.Equal(t, "Inter", entry["family"])
	})

	t.Run("level filters debug", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}
		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, out)

		GetLogger().Debug("hidden")
		GetLogger().Info("hidden too")
		Sync()
		assert.Empty(t, out.String())
	})

	t.Run("file sink", func(t *testing.T) {
		ResetForTest()
		path := filepath.Join(t.TempDir(), "weblayout.log")
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", LogFile: path, MaxSize: 1}, &lockedBuffer{})

		GetLogger().Error("written to file")
		Sync()

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "written to file")
	})

	t.Run("only the first call applies", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, out)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "second"}, out)

		assert.Same(t, first, GetLogger())
		GetLogger().Info("hello")
		Sync()
		assert.Contains(t, out.String(), "first")
		assert.NotContains(t, out.String(), "second")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("returns the stored logger", func(t *testing.T) {
		ResetForTest()
		Initialize(config.LoggerConfig{Level: "info"}, &lockedBuffer{})
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
