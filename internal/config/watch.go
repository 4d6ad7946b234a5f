// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 150 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// new Config to fn. Invalid edits are logged and skipped. Watching stops when
// ctx is done.
//
// The parent directory is watched rather than the file itself so that
// editors that save by rename keep being observed.
func Watch(ctx context.Context, path string, logger zerolog.Logger, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}

	logger = logger.With().Str("component", "config").Str("path", target).Logger()
	go watchLoop(ctx, watcher, target, logger, fn)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, logger zerolog.Logger, fn func(*Config)) {
	defer watcher.Close()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")

		case <-timer.C:
			cfg, err := LoadFromPath(target)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring invalid config change")
				continue
			}
			logger.Info().Msg("config reloaded")
			fn(cfg)
		}
	}
}
