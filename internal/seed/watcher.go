package seed

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/wayfarer/internal/errors"
)

// DefaultDebounce coalesces the bursts of write events editors and
// atomic-save tools emit for a single logical change.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-seeds when the corpus file changes on disk.
type Watcher struct {
	seeder     *Seeder
	corpusPath string
	debounce   time.Duration
	logger     *slog.Logger

	fsw *fsnotify.Watcher
}

// NewWatcher creates a corpus file watcher. debounce <= 0 uses the
// default window.
func NewWatcher(seeder *Seeder, corpusPath string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to create file watcher", err)
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(corpusPath)); err != nil {
		fsw.Close()
		return nil, errors.New(errors.ErrCodeInternal, "failed to watch corpus directory", err)
	}

	return &Watcher{
		seeder:     seeder,
		corpusPath: corpusPath,
		debounce:   debounce,
		logger:     logger,
		fsw:        fsw,
	}, nil
}

// Run watches until the context is cancelled. Each debounced change
// triggers a full re-seed through the locked path; a failed re-seed is
// logged and leaves the previous corpus serving.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.isCorpusEvent(event) {
				continue
			}
			w.logger.Debug("corpus_changed",
				slog.String("op", event.Op.String()),
				slog.String("path", event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				resetTimer(timer, timerC, w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reseed(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// resetTimer restarts the debounce timer. A tick that fired but was not
// yet consumed is drained first, otherwise the stale tick would end the
// new window immediately.
func resetTimer(timer *time.Timer, timerC <-chan time.Time, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timerC:
		default:
		}
	}
	timer.Reset(d)
}

// isCorpusEvent reports whether the event is a content change to the
// watched corpus file.
func (w *Watcher) isCorpusEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.corpusPath) {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

func (w *Watcher) reseed(ctx context.Context) {
	w.logger.Info("reseed_start", slog.String("corpus", w.corpusPath))
	if err := w.seeder.SeedFile(ctx, w.corpusPath); err != nil {
		w.logger.Error("reseed_failed", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("reseed_complete")
}
