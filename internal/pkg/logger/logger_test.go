package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func resetLogger() {
	global = nil
	once = sync.Once{}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"json warn", "warn", "json", zapcore.WarnLevel, false},
		{"invalid level", "loud", "json", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()
			err := Init(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, GetLevel())
		})
	}
}

func TestSetLevel(t *testing.T) {
	resetLogger()
	require.NoError(t, Init("info", "json"))

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, GetLevel())

	require.Error(t, SetLevel("bogus"))
	assert.Equal(t, zapcore.DebugLevel, GetLevel(), "failed SetLevel must keep the previous level")

	require.NoError(t, SetLevel("info"))
}

func TestL_NopBeforeInit(t *testing.T) {
	resetLogger()

	assert.NotNil(t, L())
	assert.NotPanics(t, func() {
		Info("dropped")
		With().Warn("dropped too")
	})
	assert.NoError(t, Sync())
}

func TestLevelHandler(t *testing.T) {
	resetLogger()
	require.NoError(t, Init("info", "json"))

	h := LevelHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"warn"}`))
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, zapcore.WarnLevel, GetLevel())
	require.NoError(t, SetLevel("info"))
}
