package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	mediaDir   string
	dataDir    string
	logDir     string
	upstream   *httptest.Server

	mu      sync.Mutex
	bulk    []string
	deletes []string
}

func setupCLITestEnv(t *testing.T, languages string) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"ES_URL", "ELASTIC_USER", "ELASTIC_PASSWORD", "HOST_UID", "HOST_GID", "TA_MEDIA_DIR"} {
		t.Setenv(key, "")
	}
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliTestEnv{
		baseDir:  base,
		mediaDir: filepath.Join(base, "media"),
		dataDir:  filepath.Join(base, "data"),
		logDir:   filepath.Join(base, "logs"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/captions/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, eventsBody(6))
	})
	mux.HandleFunc("/_bulk", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		env.mu.Lock()
		env.bulk = append(env.bulk, string(payload))
		env.mu.Unlock()
		_, _ = io.WriteString(w, `{"errors":false,"items":[{"index":{"status":201}}]}`)
	})
	mux.HandleFunc("/ta_subtitle/_delete_by_query", func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.deletes = append(env.deletes, r.URL.RawQuery)
		env.mu.Unlock()
		_, _ = io.WriteString(w, `{"deleted":1}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"version":{"number":"8.14.0"}}`)
	})
	env.upstream = httptest.NewServer(mux)
	t.Cleanup(env.upstream.Close)

	env.configPath = filepath.Join(base, "subarchive.toml")
	content := fmt.Sprintf(`[paths]
media_dir = %q
data_dir = %q
log_dir = %q

[downloads]
subtitle = %q
subtitle_source = "user"
subtitle_index = true
sleep_interval = 0

[index]
url = %q

[logging]
level = "error"
`, env.mediaDir, env.dataDir, env.logDir, languages, env.upstream.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) writeInfo(t *testing.T, id string, languages ...string) string {
	t.Helper()
	entries := make([]string, 0, len(languages))
	for _, lang := range languages {
		entries = append(entries, fmt.Sprintf(`%q:[{"ext":"json3","url":"%s/captions/%s/%s"}]`, lang, e.upstream.URL, id, lang))
	}
	doc := fmt.Sprintf(`{"id":%q,"title":"Title %s","channel":"Channel","channel_id":"chan","ext":"mp4","subtitles":{%s},"automatic_captions":{}}`,
		id, id, strings.Join(entries, ","))
	path := filepath.Join(e.baseDir, id+".info.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}
	return path
}

func eventsBody(n int) string {
	events := make([]string, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, fmt.Sprintf(`{"tStartMs":%d,"dDurationMs":900,"segs":[{"utf8":"cue %d"}]}`, i*1000, i+1))
	}
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
