package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/config"
	"github.com/teemow/talendar/internal/server"
	"github.com/teemow/talendar/internal/store"
	"github.com/teemow/talendar/internal/syncer"
)

// runCLI executes the root command with isolated config lookup.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func seedCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	c := cache.New()
	c.SetLocation(time.UTC)
	c.SetCalendars([]cache.CalendarDescriptor{
		{ID: "primary", Summary: "me@example.com", SummaryOverride: "Work", Primary: true, AccessRole: "owner"},
		{ID: "holidays", Summary: "Holidays", AccessRole: "reader"},
	})
	c.SetSyncToken("primary", "tok")
	c.SetColors(cache.ColorPalette{Event: map[string]cache.ColorDefinition{
		"1": {Foreground: "#1d1d1d", Background: "#a4bdfc"},
	}})
	c.Upsert(cache.Event{
		ID: "standup", CalendarID: "primary", Summary: "Standup", ColorID: "1",
		Start: &cache.EventDateTime{DateTime: "2024-06-01T09:00:00Z"},
		End:   &cache.EventDateTime{DateTime: "2024-06-01T09:15:00Z"},
	})
	c.Upsert(cache.Event{
		ID: "trip", CalendarID: "holidays",
		Start: &cache.EventDateTime{Date: "2024-06-02"},
		End:   &cache.EventDateTime{Date: "2024-06-05"},
	})
	require.NoError(t, store.NewFileStore(filepath.Join(dir, "cache.json")).Save(context.Background(), c))
	return dir
}

func TestShowCommand(t *testing.T) {
	dir := seedCache(t)

	out, _, err := runCLI(t, "show", "2024-06-01", "--days", "2", "--data-dir", dir, "--time-zone", "UTC")
	require.NoError(t, err)

	assert.Contains(t, out, "2024-06-01 Saturday")
	assert.Contains(t, out, "2024-06-01 09:00 UTC")
	assert.Contains(t, out, "Standup  [Work]  #1d1d1d")
	assert.Contains(t, out, "2024-06-02 Sunday")
	assert.Contains(t, out, "(no title)  [Holidays]")
	assert.Contains(t, out, "(multi-day)")
}

func TestShowCommand_EmptyCache(t *testing.T) {
	out, _, err := runCLI(t, "show", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "run 'talendar sync' first")
}

func TestShowCommand_BadDate(t *testing.T) {
	_, _, err := runCLI(t, "show", "June", "--data-dir", t.TempDir())
	assert.Error(t, err)
}

func TestCalendarsCommand(t *testing.T) {
	dir := seedCache(t)

	out, _, err := runCLI(t, "calendars", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Work (primary)")
	assert.Contains(t, out, "holidays")
	assert.Regexp(t, `Work \(primary\)\s+owner\s+yes\s+primary`, out)
	assert.Regexp(t, `Holidays\s+reader\s+no\s+holidays`, out)
}

func TestExportCommand(t *testing.T) {
	dir := seedCache(t)
	output := filepath.Join(t.TempDir(), "out.ics")

	_, stderr, err := runCLI(t, "export", "--from", "2024-06-01", "--to", "2024-06-01",
		"-o", output, "--data-dir", dir, "--time-zone", "UTC")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported 1 events")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
	assert.Contains(t, string(data), "SUMMARY:Standup")
}

func TestExportCommand_Stdout(t *testing.T) {
	dir := seedCache(t)

	out, _, err := runCLI(t, "export", "--from", "2024-06-01", "--to", "2024-06-30", "--data-dir", dir, "--time-zone", "UTC")
	require.NoError(t, err)
	assert.Contains(t, out, "UID:standup@primary")
	assert.Contains(t, out, "UID:trip@holidays")
}

func TestExportCommand_InvertedRange(t *testing.T) {
	_, _, err := runCLI(t, "export", "--from", "2024-06-05", "--to", "2024-06-01", "--data-dir", t.TempDir())
	assert.Error(t, err)
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"parallelism", []string{"--parallelism", "99"}},
		{"time zone", []string{"--time-zone", "Nowhere/City"}},
		{"log level", []string{"--log-level", "loud"}},
		{"cache backend", []string{"--cache-backend", "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"show", "--data-dir", t.TempDir()}, tt.args...)
			_, _, err := runCLI(t, args...)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestNewApp(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "bad log level", mutate: func(c *config.Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad time zone", mutate: func(c *config.Config) { c.TimeZone = "Nowhere/City" }, wantErr: true},
		{name: "bad backend", mutate: func(c *config.Config) { c.CacheBackend = "sqlite" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := slog.Default()
			t.Cleanup(func() { slog.SetDefault(prev) })

			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			a, err := newApp(cfg, &bytes.Buffer{})
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
				assert.Nil(t, a)
				assert.Same(t, prev, slog.Default(), "default logger must not change on error")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, a.loc)
			assert.NotNil(t, a.store)
			assert.NotNil(t, a.logger)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "talendar version 1.2.3\n", out)
}

func TestParseDateArg(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		arg     string
		loc     *time.Location
		want    string
		wantErr bool
	}{
		{arg: "", loc: time.UTC, want: "2024-06-01"},
		{arg: "today", loc: time.UTC, want: "2024-06-01"},
		{arg: "Tomorrow", loc: time.UTC, want: "2024-06-02"},
		{arg: "yesterday", loc: time.UTC, want: "2024-05-31"},
		{arg: "today", loc: berlin, want: "2024-06-02"},
		{arg: "2024-02-29", loc: time.UTC, want: "2024-02-29"},
		{arg: "2023-02-29", loc: time.UTC, wantErr: true},
		{arg: "next week", loc: time.UTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseDateArg(tt.arg, now, tt.loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSyncSummary(t *testing.T) {
	res := syncer.Result{
		Calendars: []syncer.CalendarResult{{CalendarID: "a", FullSync: true}, {CalendarID: "b"}},
		Duration:  1234567 * time.Microsecond,
	}
	assert.Equal(t, "Synced 2 calendars (1 full) in 1.235s, 7 events cached in /tmp/cache.json",
		syncSummary(res, 7, "/tmp/cache.json"))
}

func TestDescribeSyncError(t *testing.T) {
	transient := &syncer.SyncError{Stage: syncer.StageEvents, Index: 1, CalendarID: "x",
		Err: &googleapi.Error{Code: 503}}
	err := describeSyncError(transient)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "temporary")

	gone := &syncer.SyncError{Stage: syncer.StageEvents, Index: 0, CalendarID: "x",
		Err: &googleapi.Error{Code: 410}}
	assert.Contains(t, describeSyncError(gone).Error(), "full sync")

	plain := errors.New("boom")
	assert.Equal(t, plain, describeSyncError(plain))
}

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) Sync(_ context.Context, c *cache.Cache) (syncer.Result, error) {
	f.calls++
	return syncer.Result{Duration: time.Millisecond}, f.err
}

func TestWatcher_Pass(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	runner := &fakeRunner{err: &syncer.SyncError{Stage: syncer.StageCalendars, Index: -1, Err: &googleapi.Error{Code: 500}}}
	health := server.NewHealthChecker()
	w := &watcher{engine: runner, cache: cache.New(), health: health, logger: logger}

	w.pass(context.Background())
	assert.False(t, health.IsReady())
	assert.Contains(t, logs.String(), "sync pass failed")
	assert.Contains(t, logs.String(), "transient=true")

	runner.err = nil
	w.pass(context.Background())
	assert.True(t, health.IsReady())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.pass(ctx)
	assert.Equal(t, 2, runner.calls, "a cancelled watcher does not start a pass")
}

func TestCronLogger(t *testing.T) {
	var logs bytes.Buffer
	l := cronLogger{slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.Info("skip", "reason", "still running")
	l.Error(errors.New("boom"), "panic", "job", 1)

	assert.Contains(t, logs.String(), `msg="cron: skip" reason="still running"`)
	assert.Contains(t, logs.String(), `msg="cron: panic" job=1 error=boom`)
}
