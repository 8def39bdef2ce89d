package ml

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes to the artifact files on disk. The loaded model is
// never reloaded; a change only means the process must be restarted to pick
// the new files up.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]string
	logger   *zap.Logger
	OnChange func(artifact, path string)
}

func NewWatcher(paths ArtifactPaths, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create artifact watcher: %w", err)
	}

	files := make(map[string]string, 2)
	dirs := make(map[string]struct{}, 2)
	for artifact, path := range map[string]string{"pipeline": paths.Pipeline, "label encoder": paths.LabelEncoder} {
		abs, err := filepath.Abs(path)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s path: %w", artifact, err)
		}
		files[abs] = artifact
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	// Watch directories, not files, so atomic replace-by-rename is seen.
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return &Watcher{watcher: fw, files: files, logger: logger}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	artifact, ok := w.files[abs]
	if !ok {
		return
	}
	w.logger.Warn("artifact changed on disk; restart to load it",
		zap.String("artifact", artifact),
		zap.String("path", abs),
		zap.String("op", event.Op.String()),
	)
	if w.OnChange != nil {
		w.OnChange(artifact, abs)
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
