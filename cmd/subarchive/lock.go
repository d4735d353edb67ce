package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"subarchive/internal/config"
)

// withVideoLock runs fn while holding the advisory lock for videoID. A lock
// already held by another process fails fast instead of waiting.
func withVideoLock(cfg *config.Config, videoID string, fn func() error) error {
	lockPath := filepath.Join(cfg.LockDir(), lockFileName(videoID))
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return fmt.Errorf("video %s is being processed by another subarchive run (lock %s)", videoID, lockPath)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func lockFileName(videoID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, videoID)
	return safe + ".lock"
}
