package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloads()
	c.normalizeIndex()
	if err := c.normalizeOwnership(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		if value, ok := os.LookupEnv("TA_MEDIA_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.MediaDir = strings.TrimSpace(value)
		} else {
			c.Paths.MediaDir = defaultMediaDir
		}
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownloads() {
	parts := strings.Split(c.Downloads.Subtitle, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	c.Downloads.Subtitle = strings.Join(cleaned, ",")

	c.Downloads.SubtitleSource = strings.ToLower(strings.TrimSpace(c.Downloads.SubtitleSource))
	if c.Downloads.SubtitleSource == "" {
		c.Downloads.SubtitleSource = defaultSubtitleSource
	}
	if c.Downloads.RequestTimeout == 0 {
		c.Downloads.RequestTimeout = defaultRequestTimeout
	}
	c.Downloads.UserAgent = strings.TrimSpace(c.Downloads.UserAgent)
	if c.Downloads.UserAgent == "" {
		c.Downloads.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeIndex() {
	c.Index.URL = strings.TrimSpace(c.Index.URL)
	if c.Index.URL == "" {
		if value, ok := os.LookupEnv("ES_URL"); ok {
			c.Index.URL = strings.TrimSpace(value)
		}
	}
	c.Index.URL = strings.TrimRight(c.Index.URL, "/")
	c.Index.Name = strings.TrimSpace(c.Index.Name)
	if c.Index.Name == "" {
		c.Index.Name = defaultIndexName
	}
	c.Index.Username = strings.TrimSpace(c.Index.Username)
	if c.Index.Username == "" {
		if value, ok := os.LookupEnv("ELASTIC_USER"); ok {
			c.Index.Username = strings.TrimSpace(value)
		}
	}
	if c.Index.Password == "" {
		if value, ok := os.LookupEnv("ELASTIC_PASSWORD"); ok {
			c.Index.Password = value
		}
	}
	if c.Index.Timeout == 0 {
		c.Index.Timeout = defaultIndexTimeout
	}
}

func (c *Config) normalizeOwnership() error {
	if c.Ownership.UID == 0 {
		uid, err := lookupIntEnv("HOST_UID")
		if err != nil {
			return fmt.Errorf("ownership.uid: %w", err)
		}
		c.Ownership.UID = uid
	}
	if c.Ownership.GID == 0 {
		gid, err := lookupIntEnv("HOST_GID")
		if err != nil {
			return fmt.Errorf("ownership.gid: %w", err)
		}
		c.Ownership.GID = gid
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupIntEnv(key string) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, value, err)
	}
	return parsed, nil
}
