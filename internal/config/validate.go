package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateOwnership(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDownloads() error {
	switch c.Downloads.SubtitleSource {
	case SourceUser, SourceAuto:
	default:
		return fmt.Errorf("downloads.subtitle_source must be %q or %q, got %q", SourceUser, SourceAuto, c.Downloads.SubtitleSource)
	}
	if c.Downloads.SleepInterval < 0 {
		return errors.New("downloads.sleep_interval must be >= 0")
	}
	if c.Downloads.RequestTimeout <= 0 {
		return errors.New("downloads.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateIndex() error {
	if c.Downloads.SubtitleIndex && c.Index.URL == "" {
		return errors.New("index.url must be set when downloads.subtitle_index is true (or set ES_URL)")
	}
	if c.Index.Timeout <= 0 {
		return errors.New("index.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateOwnership() error {
	if c.Ownership.UID < 0 || c.Ownership.GID < 0 {
		return errors.New("ownership.uid and ownership.gid must be >= 0")
	}
	if (c.Ownership.UID > 0) != (c.Ownership.GID > 0) {
		return errors.New("ownership.uid and ownership.gid must be set together")
	}
	return nil
}
