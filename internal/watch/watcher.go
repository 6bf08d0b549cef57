// Package watch re-audits skill files as they change on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config holds configuration for the skill watcher.
type Config struct {
	// Root is the directory tree to watch for skill file changes.
	Root string

	// DebounceInterval is the quiet period after the last write before
	// the audit callback fires. Editors often emit several events per save.
	DebounceInterval time.Duration

	// OnChange is called with the path of a skill file that changed.
	OnChange func(ctx context.Context, path string) error

	// OnError is called when watching or auditing fails.
	OnError func(err error)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(root string) Config {
	return Config{
		Root:             root,
		DebounceInterval: 500 * time.Millisecond,
		OnError:          func(err error) { slog.Warn("watch error", "err", err) },
	}
}

// Watcher monitors a directory tree and triggers re-audits of changed
// markdown skill files.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// New creates a watcher over the configured root.
func New(config Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:  config,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start registers the root tree and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// fsnotify watches are not recursive; register every directory.
	err := filepath.WalkDir(w.config.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	// One debounce timer per path so edits to different skills do not
	// suppress each other.
	pending := map[string]*time.Timer{}
	fired := make(chan string, 16)

	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
					continue
				}
			}
			if !isSkillFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := event.Name
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(w.config.DebounceInterval, func() {
				select {
				case fired <- path:
				case <-w.stopCh:
				case <-ctx.Done():
				}
			})

		case path := <-fired:
			delete(pending, path)
			if w.config.OnChange == nil {
				continue
			}
			if err := w.config.OnChange(ctx, path); err != nil {
				if w.config.OnError != nil {
					w.config.OnError(err)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.config.OnError != nil {
				w.config.OnError(err)
			}
		}
	}
}

func isSkillFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
