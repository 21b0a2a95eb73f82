package ml

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce gives an out-of-band trainer time to finish writing
// both artifact files before a reload is attempted.
const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the artifact pair when the files under the store
// directory change, e.g. after an out-of-band cmd/train run. A freshly
// decoded pipeline is swapped in atomically; each loaded pair stays
// immutable, so readers never need a lock. If the new pair does not
// decode (half-written), the previous pipeline keeps serving.
type Watcher struct {
	store   *Store
	current *atomic.Pointer[Pipeline]
	result  *atomic.Pointer[TrainingResult]
	fsw     *fsnotify.Watcher
	logger  *zap.Logger
	done    chan struct{}
}

// NewWatcher watches the store directory for artifact replacement.
func NewWatcher(store *Store, current *atomic.Pointer[Pipeline], result *atomic.Pointer[TrainingResult], logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(store.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", store.Dir, err)
	}
	return &Watcher{
		store:   store,
		current: current,
		result:  result,
		fsw:     fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the watch loop in its own goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.fsw.Close()
	<-w.done
}

func (w *Watcher) run() {
	defer close(w.done)

	var pending *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(reloadDebounce)
				fire = pending.C
			} else {
				if !pending.Stop() {
					<-pending.C
				}
				pending.Reset(reloadDebounce)
			}
		case <-fire:
			pending = nil
			fire = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return name == ModelFile || name == ScalerFile
}

func (w *Watcher) reload() {
	pipeline, result, err := w.store.Load()
	if err != nil {
		w.logger.Warn("artifact reload skipped, keeping current model", zap.Error(err))
		return
	}
	w.current.Store(pipeline)
	if result != nil {
		w.result.Store(result)
	}
	w.logger.Info("model artifacts reloaded", zap.String("dir", w.store.Dir))
}
