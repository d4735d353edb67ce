package subtitles_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subarchive/internal/config"
	"subarchive/internal/logging"
	"subarchive/internal/metadata"
	"subarchive/internal/services"
	"subarchive/internal/subtitles"
	"subarchive/internal/testsupport"
)

type fakeUpstream struct {
	mu       sync.Mutex
	tracks   map[string]string
	bulk     []string
	deletes  []string
	fetched  []string
	bulkFail bool
	server   *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{tracks: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/tracks/")
		f.mu.Lock()
		f.fetched = append(f.fetched, name)
		body, ok := f.tracks[name]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/_bulk", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bulk = append(f.bulk, string(payload))
		fail := f.bulkFail
		f.mu.Unlock()
		if fail {
			http.Error(w, "cluster unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"errors":false,"items":[{"index":{"status":201}}]}`)
	})
	mux.HandleFunc("/ta_subtitle/_delete_by_query", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.deletes = append(f.deletes, r.URL.RawQuery+" "+string(payload))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"deleted":2}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) serve(name, body string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[name] = body
	return f.server.URL + "/tracks/" + name
}

func (f *fakeUpstream) bulkRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bulk...)
}

func (f *fakeUpstream) deleteRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

func eventsBody(n int) string {
	events := make([]string, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, fmt.Sprintf(`{"tStartMs":%d,"dDurationMs":1000,"segs":[{"utf8":"line %d"}]}`, i*1000, i+1))
	}
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func trackEntry(lang, url string) metadata.LanguageFormats {
	return metadata.LanguageFormats{Language: lang, Formats: []metadata.Format{{Ext: "json3", URL: url}}}
}

func newVideo(user ...metadata.LanguageFormats) *metadata.Video {
	return &metadata.Video{
		ID:        "abc123",
		Title:     "A Video",
		Channel:   "A Channel",
		ChannelID: "chan",
		MediaURL:  "chan/abc123.mp4",
		Subtitles: metadata.TrackSet(user),
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func newService(t *testing.T, cfg *config.Config, opts ...subtitles.ServiceOption) *subtitles.Service {
	t.Helper()
	opts = append([]subtitles.ServiceOption{subtitles.WithSleeper(noSleep)}, opts...)
	svc, err := subtitles.NewService(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestProcessWritesCaptionFile(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en"), testsupport.WithIndex(upstream.server.URL))
	svc := newService(t, cfg)

	video := newVideo(trackEntry("en", upstream.serve("en", `{"events":[
		{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"hello"}]},
		{"tStartMs":2000,"dDurationMs":1000,"segs":[{"utf8":"world"}]}
	]}`)))

	persisted, err := svc.Process(context.Background(), video)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Language != "en" {
		t.Fatalf("persisted = %+v", persisted)
	}

	got := testsupport.ReadFile(t, filepath.Join(cfg.Paths.MediaDir, "chan", "abc123.en.vtt"))
	want := "WEBVTT\nKind: captions\nLanguage: en" +
		"\n\n1\n00:00:00.000 --> 00:00:01.500\nhello" +
		"\n\n2\n00:00:02.000 --> 00:00:03.000\nworld"
	if got != want {
		t.Fatalf("caption file =\n%q\nwant\n%q", got, want)
	}
	if reqs := upstream.bulkRequests(); len(reqs) != 0 {
		t.Fatalf("expected no bulk request for a two cue track, got %d", len(reqs))
	}
}

func TestProcessIndexesCompleteDocuments(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en"), testsupport.WithIndex(upstream.server.URL))
	store := testsupport.MustOpenLedger(t, cfg)
	svc := newService(t, cfg, subtitles.WithLedger(store),
		subtitles.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))

	video := newVideo(trackEntry("en", upstream.serve("en", eventsBody(7))))
	if _, err := svc.Process(context.Background(), video); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	reqs := upstream.bulkRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 bulk request, got %d", len(reqs))
	}
	if !strings.Contains(reqs[0], `"_id":"abc123-en-1"`) || !strings.Contains(reqs[0], `"subtitle_last_refresh":1700000000`) {
		t.Fatalf("unexpected bulk payload %q", reqs[0])
	}
	if strings.Contains(reqs[0], "abc123-en-2") {
		t.Fatalf("trailing partial document must not be indexed: %q", reqs[0])
	}

	rec, err := store.Track(context.Background(), "abc123", "en")
	if err != nil {
		t.Fatalf("ledger Track: %v", err)
	}
	if rec == nil || rec.CueCount != 7 || rec.DocumentCount != 1 || !rec.Indexed {
		t.Fatalf("ledger record = %+v", rec)
	}
}

func TestProcessSkipsFailedTracks(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("de,en,fr,es"))
	store := testsupport.MustOpenLedger(t, cfg)

	var sleeps int
	svc := newService(t, cfg, subtitles.WithLedger(store), subtitles.WithSleeper(func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}))

	video := newVideo(
		trackEntry("de", upstream.server.URL+"/tracks/missing"),
		trackEntry("en", upstream.serve("en", eventsBody(2))),
		trackEntry("fr", upstream.serve("fr", "<html>")),
		trackEntry("es", upstream.serve("es", `{"events":[]}`)),
	)
	persisted, err := svc.Process(context.Background(), video)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Language != "en" {
		t.Fatalf("persisted = %+v", persisted)
	}
	if sleeps != 4 {
		t.Fatalf("expected a courtesy delay after every track, got %d", sleeps)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.MediaDir, "chan", "abc123.de.vtt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file for failed track, stat err = %v", err)
	}
	tracks, err := store.TracksForVideo(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("TracksForVideo: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Language != "en" || tracks[0].Indexed {
		t.Fatalf("ledger tracks = %+v", tracks)
	}
}

func TestProcessPropagatesWriteFailure(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en"))
	// A regular file where the channel directory belongs blocks the write.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MediaDir, "chan"), "not a directory")
	svc := newService(t, cfg)

	video := newVideo(trackEntry("en", upstream.serve("en", eventsBody(1))))
	_, err := svc.Process(context.Background(), video)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestProcessPropagatesIndexFailure(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.bulkFail = true
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en"), testsupport.WithIndex(upstream.server.URL))
	svc := newService(t, cfg)

	video := newVideo(trackEntry("en", upstream.serve("en", eventsBody(5))))
	_, err := svc.Process(context.Background(), video)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestProcessInvalidPolicy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en,(unclosed"))
	svc := newService(t, cfg)
	_, err := svc.Process(context.Background(), newVideo())
	var selErr *subtitles.InvalidSelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected InvalidSelectionError, got %v", err)
	}
	if services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("exit code = %d", services.ExitCode(err))
	}
}

func TestProcessEmptyPolicyDownloadsNothing(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages(""))
	svc := newService(t, cfg)
	video := newVideo(trackEntry("en", upstream.serve("en", eventsBody(1))))

	persisted, err := svc.Process(context.Background(), video)
	if err != nil || len(persisted) != 0 {
		t.Fatalf("Process = %v, %v", persisted, err)
	}
	if len(upstream.fetched) != 0 {
		t.Fatalf("expected no downloads, got %v", upstream.fetched)
	}
}

func TestProcessAutoFallback(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("all"), testsupport.WithAutoCaptions())
	svc := newService(t, cfg)

	video := newVideo(trackEntry("en", upstream.serve("en-user", eventsBody(1))))
	video.AutomaticCaptions = metadata.TrackSet{
		trackEntry("en", upstream.serve("en-auto", eventsBody(1))),
		trackEntry("fr", upstream.serve("fr-auto", `{"events":[
			{"tStartMs":0,"dDurationMs":2000,"segs":[{"utf8":"un"}]},
			{"tStartMs":1000,"dDurationMs":2000,"segs":[{"utf8":"deux"}]}
		]}`)),
	}

	persisted, err := svc.Process(context.Background(), video)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(persisted) != 2 || persisted[0].Source != subtitles.SourceUser || persisted[1].Source != subtitles.SourceAuto {
		t.Fatalf("persisted = %+v", persisted)
	}
	for _, name := range upstream.fetched {
		if name == "en-auto" {
			t.Fatal("auto track fetched although a user track exists")
		}
	}
	fr := testsupport.ReadFile(t, filepath.Join(cfg.Paths.MediaDir, "chan", "abc123.fr.vtt"))
	if !strings.HasSuffix(fr, "\n\n1\n00:00:00.000 --> 00:00:02.000\nun\ndeux") {
		t.Fatalf("auto track not merged: %q", fr)
	}
}

func TestDownloadStopsOnCancellation(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("all"))
	ctx, cancel := context.WithCancel(context.Background())
	svc := newService(t, cfg, subtitles.WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return nil
	}))

	video := newVideo(
		trackEntry("en", upstream.serve("en", eventsBody(1))),
		trackEntry("de", upstream.serve("de", eventsBody(1))),
	)
	persisted, err := svc.Process(ctx, video)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(persisted) != 1 || persisted[0].Language != "en" {
		t.Fatalf("persisted = %+v", persisted)
	}
}

func TestDeleteRemovesFilesAndPurgesIndex(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en,de"), testsupport.WithIndex(upstream.server.URL))
	store := testsupport.MustOpenLedger(t, cfg)
	svc := newService(t, cfg, subtitles.WithLedger(store))

	video := newVideo(
		trackEntry("en", upstream.serve("en", eventsBody(5))),
		trackEntry("de", upstream.serve("de", eventsBody(5))),
	)
	if _, err := svc.Process(context.Background(), video); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Delete(context.Background(), "abc123", nil); err != nil {
			t.Fatalf("Delete #%d returned error: %v", i+1, err)
		}
	}
	for _, lang := range []string{"en", "de"} {
		path := filepath.Join(cfg.Paths.MediaDir, "chan", "abc123."+lang+".vtt")
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err = %v", path, err)
		}
	}
	deletes := upstream.deleteRequests()
	if len(deletes) != 2 {
		t.Fatalf("expected a purge per delete, got %d", len(deletes))
	}
	if !strings.HasPrefix(deletes[0], "refresh=true ") || !strings.Contains(deletes[0], `"youtube_id":{"value":"abc123"}`) {
		t.Fatalf("unexpected purge request %q", deletes[0])
	}
	tracks, err := store.TracksForVideo(context.Background(), "abc123")
	if err != nil || len(tracks) != 0 {
		t.Fatalf("ledger not cleared: %+v, %v", tracks, err)
	}
}

func TestDeleteExplicitTracksToleratesMissingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newService(t, cfg)
	tracks := []subtitles.TrackDescriptor{{Language: "en", Source: subtitles.SourceUser, MediaPath: "chan/abc123.en.vtt"}}
	if err := svc.Delete(context.Background(), "abc123", tracks); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestNewServiceRequiresIndexWhenIndexing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Downloads.SubtitleIndex = true
	cfg.Index.URL = ""
	if _, err := subtitles.NewService(cfg, slog.Default()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProcessChownsWhenOwnershipConfigured(t *testing.T) {
	upstream := newFakeUpstream(t)
	cfg := testsupport.NewConfig(t, testsupport.WithLanguages("en"))
	cfg.Ownership.UID = 1000
	cfg.Ownership.GID = 1000

	var chowned []string
	svc := newService(t, cfg, subtitles.WithChown(func(path string, uid, gid int) error {
		chowned = append(chowned, fmt.Sprintf("%s:%d:%d", filepath.Base(path), uid, gid))
		return nil
	}))
	video := newVideo(trackEntry("en", upstream.serve("en", eventsBody(1))))
	if _, err := svc.Process(context.Background(), video); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(chowned) != 1 || chowned[0] != "abc123.en.vtt:1000:1000" {
		t.Fatalf("chown calls = %v", chowned)
	}
}
