package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

const settingsDebounce = 250 * time.Millisecond

// WatchSettingsFile reloads the settings file when it is changed outside of the admin panel, calling
// onReload (if set) after each reload that changed its contents. The directory is watched rather than
// the file so that editors that replace the file are handled. It blocks until ctx is cancelled
func WatchSettingsFile(ctx context.Context, onReload func()) error {
	setDefaultCfgIfNotSet()
	settingsPath, err := filepath.Abs(cfg.SettingsFile)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(settingsPath)); err != nil {
		return err
	}

	debounce := time.NewTimer(settingsDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != settingsPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(settingsDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fautil.LogError(err).Str("settingsFile", settingsPath).Msg("Settings file watcher error")
		case <-debounce.C:
			changed, err := LoadFileSettings()
			if err != nil {
				fautil.LogError(err).Str("settingsFile", settingsPath).Msg("Unable to reload settings file")
				continue
			}
			if !changed {
				continue
			}
			fautil.LogInfo().Str("settingsFile", settingsPath).Msg("Reloaded settings file")
			if onReload != nil {
				onReload()
			}
		}
	}
}
