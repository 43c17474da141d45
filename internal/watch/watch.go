// Package watch notices ref changes made to a bare repository by other
// processes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// Watcher calls onChange, debounced, whenever a branch ref or packed-refs
// changes below the watched repository.
type Watcher struct {
	mu       sync.Mutex
	path     string
	fsw      *fsnotify.Watcher
	debounce *debounce.Debouncer
	log      *zap.Logger
	done     chan struct{}
}

func New(path string, delay time.Duration, onChange func(), log *zap.Logger) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		fsw:  fsw,
		log:  log.Named("watch"),
		done: make(chan struct{}),
	}
	w.debounce = debounce.New(delay, func() {
		w.log.Debug("refs changed", zap.String("path", w.Path()))
		onChange()
	})
	if err := w.Reset(path); err != nil {
		return nil, errors.Join(err, fsw.Close())
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Reset drops every watch and starts over at path. Mirrors call it after
// replacing their clone directory.
func (w *Watcher) Reset(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.fsw.WatchList() {
		_ = w.fsw.Remove(p)
	}
	w.path = path
	for _, p := range watchPaths(path) {
		w.log.Debug("adding path to FS watcher", zap.String("path", p))
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	return nil
}

// watchPaths returns the repository directory, which holds packed-refs, and
// every directory below refs/heads.
func watchPaths(root string) []string {
	return append([]string{root}, dirsUnder(filepath.Join(root, "refs", "heads"))...)
}

func dirsUnder(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	return paths
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("fsnotify error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ignored(ev.Name) {
		return
	}
	root := w.Path()
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel != "packed-refs" && rel != "refs/heads" && !strings.HasPrefix(rel, "refs/heads/") {
		return
	}
	// Branch names with slashes create new directories.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			for _, p := range dirsUnder(ev.Name) {
				if err := w.fsw.Add(p); err != nil {
					w.log.Warn("watch new ref directory", zap.String("path", p), zap.Error(err))
				}
			}
			w.mu.Unlock()
		}
	}
	w.log.Debug("fsnotify event",
		zap.String("op", ev.Op.String()),
		zap.String("path", ev.Name),
	)
	w.debounce.Trigger()
}

func ignored(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock"
}

func (w *Watcher) Close() error {
	w.debounce.Stop()
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.fsw.Close()
}
