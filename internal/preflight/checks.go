package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subarchive/internal/config"
	"subarchive/internal/searchindex"
	"subarchive/internal/subtitles"
)

const indexCheckTimeout = 5 * time.Second

// CheckSearchIndex verifies that the configured search index answers. It
// uses a short timeout and a single attempt.
func CheckSearchIndex(ctx context.Context, cfg *config.Config) Result {
	const name = "Search index"

	if strings.TrimSpace(cfg.Index.URL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	client, err := searchindex.New(searchindex.Config{
		URL:      cfg.Index.URL,
		Username: cfg.Index.Username,
		Password: cfg.Index.Password,
		Timeout:  indexCheckTimeout,
	})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, indexCheckTimeout)
	defer cancel()
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeIndexError(err)}
	}
	detail := "reachable"
	if !cfg.Downloads.SubtitleIndex {
		detail = "reachable (indexing disabled)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckLanguagePolicy verifies that downloads.subtitle parses.
func CheckLanguagePolicy(cfg *config.Config) Result {
	const name = "Language policy"

	policy, err := subtitles.ParsePolicy(cfg.Downloads.Subtitle, cfg.PreferAuto())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if policy.Empty() {
		return Result{Name: name, Passed: true, Detail: "no languages requested (captions disabled)"}
	}
	patterns := make([]string, 0, len(policy.Languages))
	for _, p := range policy.Languages {
		patterns = append(patterns, p.String())
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (source: %s)", strings.Join(patterns, ","), cfg.Downloads.SubtitleSource),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeIndexError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "ping timed out (index unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ping timed out (index unreachable)"
	}
	return err.Error()
}
