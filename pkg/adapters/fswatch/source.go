// Package fswatch adapts filesystem notifications into a loop event source,
// so file changes can drive state transitions like any other external
// producer.
package fswatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loopkit/loopkit/internal/logging"
	"github.com/loopkit/loopkit/pkg/stream"
)

// Change represents one observed filesystem change.
type Change struct {
	// Path is the path of the changed file.
	Path string

	// Op is the raw fsnotify operation bitmask.
	Op fsnotify.Op

	// Time is when the change was observed.
	Time time.Time
}

// Option configures the source.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Source returns a stream of filesystem changes under the given paths,
// suitable for feedback.Just or for mapping into application events via
// stream.FilterMap. The watcher is created lazily when the source runs and
// closed when its context is cancelled. Watcher errors are logged and end
// the stream.
func Source(paths []string, opts ...Option) stream.Source[Change] {
	cfg := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context) <-chan Change {
		out := make(chan Change)
		go func() {
			defer close(out)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				cfg.logger.Error("fswatch: creating watcher failed", "error", err)
				return
			}
			defer watcher.Close()

			for _, p := range paths {
				if err := watcher.Add(p); err != nil {
					cfg.logger.Error("fswatch: watching path failed", "path", p, "error", err)
					return
				}
			}

			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					change := Change{Path: ev.Name, Op: ev.Op, Time: time.Now()}
					select {
					case out <- change:
					case <-ctx.Done():
						return
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					cfg.logger.Error("fswatch: watcher error", "error", err)
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}
