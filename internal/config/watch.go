package config

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/vnykmshr/ticktask/pkg/logx"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watcher reloads a task file whenever it changes on disk.
type Watcher struct {
	Path     string
	Fs       afero.Fs      // default: afero.NewOsFs()
	Log      logx.Logger   // default: no output
	Debounce time.Duration // default: 250ms

	// Initial is the file currently in effect. Reloads with identical
	// content are not delivered.
	Initial []byte
}

// Watch is shorthand for a Watcher on the OS filesystem.
func Watch(ctx context.Context, path string, log logx.Logger, onChange func(*File)) error {
	return (&Watcher{Path: path, Log: log}).Run(ctx, onChange)
}

// Run watches the file's directory until ctx is done. Each burst of events
// is debounced into one reload; files that fail to parse or validate are
// logged and skipped, keeping the previous configuration in effect. The
// underlying fsnotify watcher is recreated with jittered backoff if it breaks.
func (w *Watcher) Run(ctx context.Context, onChange func(*File)) error {
	fs := w.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := w.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	wait := w.Debounce
	if wait <= 0 {
		wait = defaultDebounce
	}
	dir := filepath.Dir(w.Path)
	file := filepath.Base(w.Path)

	var (
		mu       sync.Mutex
		timer    *time.Timer
		lastHash uint64
	)
	if len(w.Initial) > 0 {
		lastHash = hashBytes(w.Initial)
	}

	reload := func() {
		data, err := afero.ReadFile(fs, w.Path)
		if err != nil {
			log.Warn("task file read failed", logx.String("path", w.Path), logx.Err(err))
			return
		}
		h := hashBytes(data)
		mu.Lock()
		unchanged := h == lastHash
		mu.Unlock()
		if unchanged {
			log.Debug("task file unchanged; skipping reload", logx.String("path", w.Path))
			return
		}

		f, err := Parse(data, w.Path)
		if err == nil {
			err = f.Validate()
		}
		if err != nil {
			log.Warn("task file rejected", logx.String("path", w.Path), logx.Err(err))
			return
		}

		mu.Lock()
		lastHash = h
		mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		onChange(f)
	}

	debounce := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sleep := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for ctx.Err() == nil {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("task file watch init failed", logx.String("dir", dir), logx.Err(err))
			if !sleep() {
				return nil
			}
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			log.Warn("task file watch add failed", logx.String("dir", dir), logx.Err(err))
			if !sleep() {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		log.Debug("task file watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if filepath.Base(ev.Name) == file &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					log.Warn("task file watch overflow; forcing reload", logx.String("dir", dir))
					debounce()
					continue
				}
				log.Warn("task file watch error", logx.String("dir", dir), logx.Err(err))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		log.Warn("task file watcher stopped; restarting", logx.String("dir", dir))
		if !sleep() {
			return nil
		}
	}
	return nil
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
