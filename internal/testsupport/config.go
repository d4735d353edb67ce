package testsupport

import (
	"path/filepath"
	"testing"

	"subarchive/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Courtesy delays are disabled so pipeline tests run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Downloads.SleepInterval = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithLanguages sets the caption language policy.
func WithLanguages(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.Subtitle = policy
	}
}

// WithAutoCaptions allows machine-generated captions to fill missing languages.
func WithAutoCaptions() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.SubtitleSource = config.SourceAuto
	}
}

// WithIndex enables indexing against the given endpoint.
func WithIndex(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.SubtitleIndex = true
		b.cfg.Index.URL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MediaDir)
}
