package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/config"
)

// FeedSink receives every successfully generated feed.
type FeedSink interface {
	Update(data []byte, events int)
}

// Worker regenerates the follow-up feed on a schedule and whenever Trigger fires.
type Worker struct {
	Generator *FeedGenerator
	Sink      FeedSink
	Phones    []string
	Interval  time.Duration

	// Trigger forces an immediate sync, e.g. when the local file changes. May be nil.
	Trigger <-chan struct{}
}

// Run syncs once, then keeps syncing until ctx is cancelled. Sync failures are
// logged and the previous feed stays published.
func (w *Worker) Run(ctx context.Context) error {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	interval := w.Interval
	if interval <= 0 {
		interval = time.Duration(config.DefaultRefreshMin) * time.Minute
	}

	w.sync(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	trigger := w.Trigger
	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return nil

		case _, ok := <-trigger:
			if !ok {
				// Disable this case once the source is gone.
				trigger = nil
				continue
			}
			w.sync(ctx)

		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

func (w *Worker) sync(ctx context.Context) {
	slog.Info(config.MsgSyncReq, config.LogKeyComponent, config.CompWorker)

	data, events, err := w.Generator.Generate(ctx, w.Phones)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error(config.MsgSyncFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err)
		return
	}
	w.Sink.Update(data, events)
}
