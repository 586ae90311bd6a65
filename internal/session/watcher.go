package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/quantmind-br/tkblender/internal/engine"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events a single save produces
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports writes to the open file of a Host as saves
type Watcher struct {
	fsw      *fsnotify.Watcher
	host     *Host
	dir      string
	debounce time.Duration
	log      zerolog.Logger
}

// NewWatcher creates a watcher for host. A debounce <= 0 uses DefaultDebounce.
func NewWatcher(host *Host, debounce time.Duration, log *zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session: create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	l := zerolog.Nop()
	if log != nil {
		l = log.With().Str("component", "session").Logger()
	}
	return &Watcher{fsw: fsw, host: host, debounce: debounce, log: l}, nil
}

// Sync points the watcher at the directory of the open file
func (w *Watcher) Sync() error {
	path := w.host.FilePath()
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fsw.Remove(w.dir)
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("session: watch %s: %w", dir, err)
	}
	w.dir = dir
	w.log.Debug().Str("dir", dir).Msg("watching open file directory")
	return nil
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant reports whether evt is a write of the open file. Blender saves
// through a temporary file that is renamed over the document, which shows
// up as a create of the document.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(evt.Name) == w.host.FilePath()
}

// Run pumps filesystem events and the main thread queue on the calling
// goroutine until ctx is cancelled. The watcher may be nil.
func Run(ctx context.Context, host *Host, w *Watcher, mt *engine.MainThread) error {
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
		timer  *time.Timer
		fire   <-chan time.Time
	)
	if w != nil {
		if err := w.Sync(); err != nil {
			return err
		}
		events = w.fsw.Events
		errs = w.fsw.Errors
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// drain work queued before the loop started
	mt.ProcessEvents()

	for {
		select {
		case <-ctx.Done():
			mt.ProcessEvents()
			return nil

		case <-mt.Pending():
			mt.ProcessEvents()

		case evt, ok := <-events:
			if !ok {
				return fmt.Errorf("session: fsnotify event channel closed")
			}
			if !w.relevant(evt) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-errs:
			if !ok {
				return fmt.Errorf("session: fsnotify error channel closed")
			}
			w.log.Warn().Err(err).Msg("fsnotify error")

		case <-fire:
			fire = nil
			w.log.Debug().Str("file", host.FilePath()).Msg("open file saved")
			host.Save()
			if err := w.Sync(); err != nil {
				w.log.Warn().Err(err).Msg("failed to follow the open file")
			}
			mt.ProcessEvents()
		}
	}
}
