package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"overseer/internal/logging"
)

// Watch observes a config file and invokes onChange after it is written.
// Events are debounced because editors commonly emit several writes per
// save. The returned stop function is idempotent.
func Watch(path string, onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: many editors replace the file on save, which
	// drops a watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Clean(path)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-stop:
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(200 * time.Millisecond)
					timerC = timer.C
				} else {
					timer.Reset(200 * time.Millisecond)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				logging.Get(logging.CategoryBoot).Info("config change detected: %s", target)
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryBoot).Warn("config watcher error: %v", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			watcher.Close()
			<-done
		})
	}, nil
}
