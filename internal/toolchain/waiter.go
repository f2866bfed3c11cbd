package toolchain

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DeveloperToolsDir is where macOS materializes the command-line tools.
// Watching its parent wakes the wait loop as soon as the install lands,
// without shortening the poll interval.
const DeveloperToolsDir = "/Library/Developer"

// Waiter blocks until a probe reports presence.
type Waiter struct {
	Probe    Probe
	Interval time.Duration
	// WatchDir, when non-empty, is watched with fsnotify so filesystem
	// activity triggers an immediate re-check between polls.
	WatchDir string
	Logger   *zap.Logger

	// OnCheck, if set, is invoked after every probe attempt. Used by
	// the UI spinner and by tests counting poll iterations.
	OnCheck func(Status)
}

// Wait polls until the probe turns true or ctx is cancelled. It never
// returns early: a true return means the probe reported presence on the
// final check. The wait is unbounded unless ctx carries a deadline.
func (w *Waiter) Wait(ctx context.Context) (Status, error) {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	// First check before any sleeping; the condition may already hold.
	status, err := w.Probe.Check(ctx)
	if err != nil {
		return Status{}, err
	}
	if w.OnCheck != nil {
		w.OnCheck(status)
	}
	if status.Present {
		return status, nil
	}

	var events chan fsnotify.Event
	if w.WatchDir != "" {
		if watcher, werr := fsnotify.NewWatcher(); werr == nil {
			if werr = watcher.Add(w.WatchDir); werr == nil {
				events = make(chan fsnotify.Event, 1)
				go forwardEvents(ctx, watcher, events)
				defer watcher.Close()
			} else {
				logger.Debug("waiter: cannot watch dir, polling only",
					zap.String("dir", w.WatchDir), zap.Error(werr))
				watcher.Close()
			}
		} else {
			logger.Debug("waiter: fsnotify unavailable, polling only", zap.Error(werr))
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-ticker.C:
		case ev := <-events:
			logger.Debug("waiter: filesystem activity, re-checking", zap.String("path", ev.Name))
		}

		status, err = w.Probe.Check(ctx)
		if err != nil {
			return Status{}, err
		}
		if w.OnCheck != nil {
			w.OnCheck(status)
		}
		if status.Present {
			return status, nil
		}
		logger.Debug("waiter: still absent", zap.String("probe", w.Probe.Name()))
	}
}

// forwardEvents coalesces watcher events onto a single-slot channel so a
// burst of filesystem activity triggers one re-check.
func forwardEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- fsnotify.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			select {
			case out <- ev:
			default:
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
