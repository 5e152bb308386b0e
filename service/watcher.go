package service

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ludo-technologies/pystage/domain"
)

// DefaultDebounce is how long the watcher waits for more events before
// reporting a batch
const DefaultDebounce = 200 * time.Millisecond

// SourceWatcher reports changes to Python files below a set of paths using
// OS-native notifications
type SourceWatcher struct {
	w         *fsnotify.Watcher
	recursive bool
	debounce  time.Duration
	logger    *log.Logger
}

// NewSourceWatcher watches paths. Directories are watched with their
// subdirectories when recursive is set; files are watched through their
// parent directory so editors that replace files are still seen.
func NewSourceWatcher(paths []string, recursive bool) (*SourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &SourceWatcher{w: w, recursive: recursive, debounce: DefaultDebounce}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			w.Close()
			return nil, err
		}
		if !info.IsDir() {
			path = filepath.Dir(path)
		}
		if err := sw.addTree(path); err != nil {
			w.Close()
			return nil, err
		}
	}
	return sw, nil
}

// SetDebounce changes the quiet period before a batch is reported
func (sw *SourceWatcher) SetDebounce(d time.Duration) {
	sw.debounce = d
}

// SetLogger reports watch errors to logger
func (sw *SourceWatcher) SetLogger(logger *log.Logger) {
	sw.logger = logger
}

func (sw *SourceWatcher) addTree(root string) error {
	if !sw.recursive {
		return sw.w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || shouldSkipDirectory(d.Name())) {
			return filepath.SkipDir
		}
		return sw.w.Add(path)
	})
}

// Run delivers batches to onChange until ctx ends or onChange fails. Calls
// to onChange are sequential.
func (sw *SourceWatcher) Run(ctx context.Context, onChange func(context.Context, domain.ChangeSet) error) error {
	changed := make(map[string]bool)
	removed := make(map[string]bool)

	// Stop and Reset never leave a stale tick behind
	timer := time.NewTimer(sw.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-sw.w.Events:
			if !ok {
				return nil
			}
			if !sw.record(ev, changed, removed) {
				continue
			}
			timer.Reset(sw.debounce)

		case err, ok := <-sw.w.Errors:
			if !ok {
				return nil
			}
			if sw.logger != nil {
				sw.logger.Printf("watch error: %v", err)
			}

		case <-timer.C:
			batch := domain.ChangeSet{Changed: sortedSet(changed), Removed: sortedSet(removed)}
			changed = make(map[string]bool)
			removed = make(map[string]bool)
			if batch.Empty() {
				continue
			}
			if err := onChange(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// record folds one event into the pending batch and reports whether it is
// of interest
func (sw *SourceWatcher) record(ev fsnotify.Event, changed, removed map[string]bool) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if sw.recursive {
				if err := sw.addTree(ev.Name); err != nil && sw.logger != nil {
					sw.logger.Printf("watch %s: %v", ev.Name, err)
				}
			}
			return false
		}
	}

	if strings.ToLower(filepath.Ext(ev.Name)) != ".py" || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(changed, ev.Name)
		removed[ev.Name] = true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		delete(removed, ev.Name)
		changed[ev.Name] = true
	default:
		return false
	}
	return true
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close stops watching
func (sw *SourceWatcher) Close() error {
	return sw.w.Close()
}
