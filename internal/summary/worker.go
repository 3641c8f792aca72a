// Package summary runs the background job that recomputes each active
// stream's derived summary. A tick is a pure function of current store
// state, so recomputing is always safe and a failed tick is just logged.
package summary

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/streamyard/internal/store"
)

// DefaultInterval is the default time between summary recomputations.
const DefaultInterval = 10 * time.Second

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Opts configures a Worker.
type Opts struct {
	Interval time.Duration // ignored when CronExpr is set
	CronExpr string        // optional 5-field cron schedule
	Out      io.Writer
}

// Worker periodically recomputes summaries for active streams.
type Worker struct {
	store    *store.Store
	interval time.Duration
	cronExpr string
	out      io.Writer
}

// New creates a Worker over the store.
func New(st *store.Store, opts Opts) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Worker{
		store:    st,
		interval: opts.Interval,
		cronExpr: opts.CronExpr,
		out:      opts.Out,
	}
}

// Run loops until ctx is cancelled. Tick failures are reported and
// swallowed; a single bad iteration never terminates the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(w.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := w.Tick(); err != nil && w.out != nil {
			fmt.Fprintf(w.out, "summary: tick: %v\n", err)
		}
	}
}

// Tick recomputes the summary for every active stream. Per-stream failures
// are reported but do not stop the rest of the pass.
func (w *Worker) Tick() error {
	streams, err := w.store.ListByStatus("active")
	if err != nil {
		return err
	}
	var firstErr error
	for i := range streams {
		stream := &streams[i]
		commits, err := w.store.RecentCommits(stream.ID, 10)
		if err == nil {
			err = w.store.UpdateSummary(stream.ID, Summarize(stream, commits))
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// nextWait returns the delay before the next tick: the cron schedule when
// one is configured, the fixed interval otherwise.
func (w *Worker) nextWait() time.Duration {
	if w.cronExpr == "" {
		return w.interval
	}
	sched, err := cronParser.Parse(w.cronExpr)
	if err != nil {
		return w.interval
	}
	d := time.Until(sched.Next(time.Now()))
	if d <= 0 {
		return w.interval
	}
	return d
}
