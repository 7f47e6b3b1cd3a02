package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggersAreSilentBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		LogInfo("info")
		LogWarn("warn")
		LogError("error")
		LogSuccess("success")
		LogDebug("debug")
		LogResponse("id", 500, 12)
	})
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestTruncatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w := getLogFileWriter(path).(*truncatingWriter)

	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)

	// sparse file past the cap
	require.NoError(t, os.Truncate(path, MaxLogFileSize+1))

	_, err = w.Write([]byte("after\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(data))
}
