package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Publisher receives workspace change events.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Watcher reports file changes in the workspace root, including those made
// by the external agent outside of Store.
type Watcher struct {
	root     string
	pub      Publisher
	debounce time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher for the store's root directory.
func NewWatcher(store *Store, pub Publisher) *Watcher {
	return &Watcher{
		root:     store.Root(),
		pub:      pub,
		debounce: defaultDebounce,
		lastSeen: make(map[string]time.Time),
	}
}

// Start begins watching. It returns once the watch is registered; events are
// delivered from a background goroutine until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fw
	w.done = make(chan struct{})
	w.mu.Unlock()

	slog.Info("Workspace watcher started", "root", w.root)
	go w.run(ctx, fw)
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if err := fw.Close(); err != nil {
		slog.Debug("Failed to close workspace watcher", "error", err)
	}
	<-done
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Warn("Workspace watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	var typ string
	switch {
	case ev.Has(fsnotify.Create):
		typ = domain.EventFileCreated
	case ev.Has(fsnotify.Write):
		typ = domain.EventFileModified
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		typ = domain.EventFileDeleted
	default:
		return
	}

	now := time.Now()
	key := typ + ":" + name
	w.mu.Lock()
	if last, ok := w.lastSeen[key]; ok && now.Sub(last) < w.debounce {
		w.mu.Unlock()
		return
	}
	if len(w.lastSeen) > 1024 {
		w.lastSeen = make(map[string]time.Time)
	}
	w.lastSeen[key] = now
	w.mu.Unlock()

	slog.Debug("Workspace change", "type", typ, "path", name)
	w.pub.Publish(ctx, domain.Event{Type: typ, Path: name, At: now.UTC()})
}
