package docs

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taskhub/taskhub-cli/internal/richtext"
)

// DefaultDebounce collapses the burst of events an editor emits per save.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls onChange with the file's Markdown each time path is written,
// until ctx is done. The parent directory is watched so that editors that
// save by renaming a temp file over path are seen too. An error from
// onChange stops the watch and is returned.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(md string) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			md, err := richtext.ReadSource(abs)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			if err := onChange(md); err != nil {
				return err
			}
		}
	}
}
