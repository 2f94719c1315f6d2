// Package watch signals when a local record file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tartampluch/go-svcrecords/internal/config"
)

// Watcher notifies on writes to a single file. It watches the parent
// directory so editors that save by rename are still seen.
type Watcher struct {
	path string
	fw   *fsnotify.Watcher
	out  chan struct{}
}

// New starts watching path. Changes are delivered on Changes() until ctx ends.
func New(ctx context.Context, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrWatchStart, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrWatchStart, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrWatchStart, err)
	}

	w := &Watcher{
		path: abs,
		fw:   fw,
		out:  make(chan struct{}, config.ChannelBufferSize),
	}
	go w.loop(ctx)
	return w, nil
}

// Changes is closed once the watcher stops. Bursts of events are coalesced.
func (w *Watcher) Changes() <-chan struct{} {
	return w.out
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.out)
	defer func() { _ = w.fw.Close() }()

	log := slog.With(config.LogKeyComponent, config.CompWatch, config.LogKeyFile, w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(evt) {
				continue
			}
			log.Debug(config.MsgFileChanged, config.LogKeyOp, evt.Op.String())
			select {
			case w.out <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn(config.MsgWatchError, config.LogKeyError, err)
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}
	return name == w.path
}
