package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/instrumentation"
	"github.com/teemow/talendar/internal/logging"
)

// DefaultRequestTimeout bounds a single remote call.
const DefaultRequestTimeout = 30 * time.Second

// Config tunes an Engine.
type Config struct {
	// TimeZone is the IANA name sent with every events request. Defaults to
	// the cache location; the process-local zone sends none.
	TimeZone string

	// RequestTimeout bounds every remote call (default: 30s).
	RequestTimeout time.Duration

	// Parallelism is the number of calendars fetched at once. Values below 2
	// sync calendars strictly one after another.
	Parallelism int
}

// Result summarizes a successful pass or what completed before a failure.
type Result struct {
	Calendars []CalendarResult
	Duration  time.Duration
	Saved     bool
}

// Engine runs sync passes.
type Engine struct {
	remote  Remote
	saver   Saver
	config  Config
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an Engine syncing from remote and persisting through saver.
func NewEngine(remote Remote, saver Saver, config Config, opts ...Option) *Engine {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	e := &Engine{
		remote: remote,
		saver:  saver,
		config: config,
		logger: logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync runs one pass against c: calendar list, every calendar, colour
// palette, then Save. Any failure aborts the pass before persistence and is
// returned as a *SyncError; the returned Result still lists the calendars
// that completed.
func (e *Engine) Sync(ctx context.Context, c *cache.Cache) (Result, error) {
	start := time.Now()
	ctx, span := instrumentation.StartSpan(ctx, "sync.pass")
	defer span.End()

	res, err := e.sync(ctx, c)
	res.Duration = time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		args := []any{logging.KeyError, err.Error(), logging.KeyDuration, res.Duration}
		if id := instrumentation.GetTraceID(ctx); id != "" {
			args = append(args, "trace_id", id)
		}
		e.logger.Error("sync pass failed", args...)
	} else {
		instrumentation.SetSpanSuccess(span)
		e.logger.Info("sync pass completed",
			"calendars", len(res.Calendars),
			"events", c.Len(),
			logging.KeyDuration, res.Duration)
	}
	e.metrics.RecordSyncPass(ctx, status, res.Duration)
	return res, err
}

func (e *Engine) sync(ctx context.Context, c *cache.Cache) (Result, error) {
	var res Result

	calendars, err := e.listCalendars(ctx)
	if err != nil {
		return res, &SyncError{Stage: StageCalendars, Index: -1, Err: err}
	}
	c.SetCalendars(calendars)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(instrumentation.SpanAttrCalendarCount, len(calendars)))

	tz := requestTimeZone(e.config.TimeZone, c.Location())

	if e.config.Parallelism > 1 && len(calendars) > 1 {
		res.Calendars, err = e.syncParallel(ctx, c, calendars, tz)
	} else {
		res.Calendars, err = e.syncSequential(ctx, c, calendars, tz)
	}
	if err != nil {
		return res, err
	}

	palette, err := e.getColors(ctx)
	if err != nil {
		return res, &SyncError{Stage: StageColors, Index: -1, Err: err}
	}
	c.SetColors(palette)

	if err := e.saver.Save(ctx, c); err != nil {
		return res, &SyncError{Stage: StageSave, Index: -1, Err: err}
	}
	res.Saved = true
	return res, nil
}

func (e *Engine) syncSequential(ctx context.Context, c *cache.Cache, calendars []cache.CalendarDescriptor, tz string) ([]CalendarResult, error) {
	results := make([]CalendarResult, 0, len(calendars))
	for i, cal := range calendars {
		if err := ctx.Err(); err != nil {
			return results, e.calendarError(ctx, i, cal.ID, err)
		}
		token, _ := c.SyncToken(cal.ID)
		r, err := IncrementalSync(ctx, e.remote, c, e.request(cal.ID, token, tz), e.logger, e.metrics)
		if err != nil {
			return results, e.calendarError(ctx, i, cal.ID, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// syncParallel fetches calendars concurrently, each into its own buffer, and
// merges the buffers in list order. When calendar k fails, buffers 0..k are
// merged (k partially) and later ones discarded, which leaves the cache in
// the state a sequential pass would have produced. Calendars after a known
// failure are not started.
func (e *Engine) syncParallel(ctx context.Context, c *cache.Cache, calendars []cache.CalendarDescriptor, tz string) ([]CalendarResult, error) {
	type outcome struct {
		buf    *cache.Buffer
		result CalendarResult
		err    error
	}
	outcomes := make([]outcome, len(calendars))

	var (
		mu        sync.Mutex
		firstFail = len(calendars)
	)

	var g errgroup.Group
	g.SetLimit(e.config.Parallelism)
	for i, cal := range calendars {
		token, _ := c.SyncToken(cal.ID)
		outcomes[i].buf = c.NewBuffer()
		g.Go(func() error {
			mu.Lock()
			skip := firstFail < i
			mu.Unlock()
			if skip {
				return nil
			}

			r, err := IncrementalSync(ctx, e.remote, outcomes[i].buf, e.request(cal.ID, token, tz), e.logger, e.metrics)
			outcomes[i].result, outcomes[i].err = r, err
			if err != nil {
				mu.Lock()
				firstFail = min(firstFail, i)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Skipped calendars all follow the first failure, so the loop returns
	// before it reaches them.
	results := make([]CalendarResult, 0, len(calendars))
	for i, o := range outcomes {
		// Buffered removals were counted as pending; settle them now that
		// the cache has been consulted.
		stats := c.Apply(o.buf)
		o.result.Removed -= stats.Missing
		o.result.Absent += stats.Missing
		if o.err != nil {
			return results, e.calendarError(ctx, i, calendars[i].ID, o.err)
		}
		results = append(results, o.result)
	}
	return results, nil
}

func (e *Engine) request(calendarID, token, tz string) CalendarRequest {
	return CalendarRequest{
		CalendarID:     calendarID,
		SyncToken:      token,
		TimeZone:       tz,
		RequestTimeout: e.config.RequestTimeout,
	}
}

func (e *Engine) calendarError(ctx context.Context, index int, calendarID string, err error) error {
	transient := IsTransient(err)
	e.metrics.RecordCalendarFailure(ctx, calendarID, transient)
	e.logger.Warn("calendar sync failed",
		logging.KeyCalendar, calendarID,
		"index", index,
		"transient", transient,
		logging.KeyError, err.Error())
	return &SyncError{Stage: StageEvents, Index: index, CalendarID: calendarID, Err: err}
}

func (e *Engine) listCalendars(ctx context.Context) ([]cache.CalendarDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()
	return e.remote.ListCalendars(ctx)
}

func (e *Engine) getColors(ctx context.Context) (cache.ColorPalette, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()
	return e.remote.GetColorPalette(ctx)
}

// AsSyncError returns the *SyncError in err's chain, if any.
func AsSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	ok := errors.As(err, &se)
	return se, ok
}
