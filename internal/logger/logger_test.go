package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesExtraOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hr-screener.log")

	log, err := New(true, false, " ", file)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("interview started", zap.Int("turns", 3))
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "interview started", entry["step"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 3, entry["turns"])
}
