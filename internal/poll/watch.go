package poll

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pollbot/pkg/logx"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the polls file whenever it changes on disk and invokes
// onReload with the fresh definitions. Events are debounced so editors
// that write in several steps trigger a single reload. Watch blocks until
// ctx is done.
func (l *Library) Watch(ctx context.Context, onReload func([]Definition)) error {
	dir := filepath.Dir(l.path)
	file := filepath.Base(l.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	l.log.Debug("polls file watcher started", logx.String("dir", dir), logx.String("file", file))

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			if err := l.Reload(); err != nil {
				l.log.Warn("polls file reload failed", logx.String("path", l.path), logx.Err(err))
				return
			}
			if onReload != nil {
				onReload(l.Definitions())
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Compare by basename; editors often rename into place.
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
					debounce()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				l.log.Warn("polls file watch error", logx.Err(err))
			}
		}
	}
}
