package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("sync.pass"), KeyOperation, "sync.pass"},
		{"calendar", Calendar("primary"), KeyCalendar, "primary"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
		{"path", Path("/tmp/cache.json"), KeyPath, "/tmp/cache.json"},
		{"duration", Duration(1500 * time.Millisecond), KeyDuration, "1.5s"},
		{"error", Err(errors.New("boom")), KeyError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.attr.Key)
			assert.Equal(t, tt.wantVal, tt.attr.Value.String())
		})
	}
}

func TestErr_NilIsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	logger.Info("done", Err(nil))
	assert.NotContains(t, buf.String(), KeyError+"=")
}

func TestWithCalendar(t *testing.T) {
	var buf bytes.Buffer
	logger := WithCalendar(WithOperation(NewLogger(&buf, slog.LevelInfo), "sync.calendar"), "work@example.com")
	logger.Info("synced")
	assert.Contains(t, buf.String(), "operation=sync.calendar")
	assert.Contains(t, buf.String(), "calendar=work@example.com")
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("abcdef"))
	assert.NotContains(t, SanitizeToken("secret-token"), "secret")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogAdapter(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)
	adapter := NewSlogAdapter(logger)
	assert.Same(t, logger, adapter.Logger())

	adapter.Debug("d", "k", 1)
	adapter.Info("i")
	adapter.Warn("w")
	adapter.Error("e")
	out := buf.String()
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		assert.Contains(t, out, "level="+level)
	}

	assert.NotNil(t, NewSlogAdapter(nil).Logger())
	assert.NotNil(t, DefaultLogger().Logger())
	Discard().Error("dropped")
}
