package subtitles

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"subarchive/internal/config"
	"subarchive/internal/fileutil"
	"subarchive/internal/ledger"
	"subarchive/internal/logging"
	"subarchive/internal/metadata"
	"subarchive/internal/searchindex"
	"subarchive/internal/services"
	"subarchive/internal/subtitles/fetch"
)

type downloader interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type indexClient interface {
	Bulk(ctx context.Context, payload []byte) (searchindex.BulkResult, error)
	DeleteByVideo(ctx context.Context, index, videoID string) (int, error)
}

type trackLedger interface {
	UpsertTrack(ctx context.Context, track ledger.Track) (*ledger.Track, error)
	TracksForVideo(ctx context.Context, videoID string) ([]ledger.Track, error)
	DeleteVideo(ctx context.Context, videoID string) (int64, error)
	DeleteTrack(ctx context.Context, videoID, language string) error
}

type sleeper func(ctx context.Context, d time.Duration) error

// Service fetches, normalizes, and persists caption tracks for videos.
type Service struct {
	config  *config.Config
	logger  *slog.Logger
	fetcher downloader
	index   indexClient
	ledger  trackLedger
	sleep   sleeper
	jitter  func(time.Duration) time.Duration
	now     func() time.Time
	chown   func(path string, uid, gid int) error
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithDownloader replaces the HTTP track downloader (primarily for tests).
func WithDownloader(d downloader) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.fetcher = d
		}
	}
}

// WithIndexClient replaces the search index client.
func WithIndexClient(c indexClient) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.index = c
		}
	}
}

// WithLedger records persisted tracks in store.
func WithLedger(store trackLedger) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.ledger = store
		}
	}
}

// WithSleeper overrides the courtesy delay implementation.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithClock overrides the time source used for document refresh stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithChown overrides the ownership hook applied to written caption files.
func WithChown(fn func(path string, uid, gid int) error) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.chown = fn
		}
	}
}

// NewService builds a Service from configuration. An index client is created
// whenever an index URL is configured so deletes can purge documents even
// when new tracks are not being indexed.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "subtitles", "init", "config is required", nil)
	}
	s := &Service{
		config: cfg,
		logger: logging.NewComponentLogger(logger, "subtitles"),
		fetcher: fetch.New(fetch.Config{
			UserAgent: cfg.Downloads.UserAgent,
			Timeout:   cfg.RequestTimeout(),
		}),
		sleep:  fetch.SleepWithContext,
		jitter: fetch.Jitter,
		now:    time.Now,
		chown:  os.Chown,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil && cfg.Index.URL != "" {
		client, err := searchindex.New(searchindex.Config{
			URL:      cfg.Index.URL,
			Username: cfg.Index.Username,
			Password: cfg.Index.Password,
			Timeout:  cfg.IndexTimeout(),
		})
		if err != nil {
			return nil, err
		}
		s.index = client
	}
	if cfg.Downloads.SubtitleIndex && s.index == nil {
		return nil, services.Wrap(services.ErrConfiguration, "subtitles", "init", "indexing enabled without an index client", nil)
	}
	return s, nil
}

// SetLogger swaps the service logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "subtitles")
}

// SelectTracks parses the configured language policy and resolves it against
// the tracks offered in video.
func (s *Service) SelectTracks(video *metadata.Video) ([]TrackDescriptor, error) {
	policy, err := ParsePolicy(s.config.Downloads.Subtitle, s.config.PreferAuto())
	if err != nil {
		return nil, err
	}
	if policy.Empty() {
		return nil, nil
	}

	user, err := CandidateTracks(video, SourceUser)
	if err != nil {
		return nil, err
	}
	var auto *TrackSet
	if policy.PreferAuto {
		if auto, err = CandidateTracks(video, SourceAuto); err != nil {
			return nil, err
		}
	}
	return Select(policy, user, auto), nil
}

// Process selects and downloads the configured caption tracks for video.
func (s *Service) Process(ctx context.Context, video *metadata.Video) ([]TrackDescriptor, error) {
	ctx = services.WithVideoID(ctx, video.ID)
	logger := logging.WithContext(ctx, s.logger)

	tracks, err := s.SelectTracks(video)
	if err != nil {
		logging.ErrorWithContext(logger, "caption selection failed", "caption_selection_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix downloads.subtitle in the config"),
		)
		return nil, err
	}
	if len(tracks) == 0 {
		logger.Info("no caption tracks selected",
			logging.String(logging.FieldEventType, "caption_selection_empty"),
			logging.String("policy", s.config.Downloads.Subtitle),
		)
		return nil, nil
	}
	logger.Info("caption tracks selected",
		logging.String(logging.FieldEventType, "caption_selection"),
		logging.Int("count", len(tracks)),
		logging.Any("languages", languagesOf(tracks)),
	)
	return s.Download(ctx, video, tracks)
}

// Download fetches and persists tracks in order. Tracks that fail to
// download, come back empty, or hold no usable cues are logged and skipped.
// Write, index, and ledger failures stop the run. The returned slice holds
// the tracks persisted before any stop.
func (s *Service) Download(ctx context.Context, video *metadata.Video, tracks []TrackDescriptor) ([]TrackDescriptor, error) {
	ctx = services.WithVideoID(ctx, video.ID)
	persisted := make([]TrackDescriptor, 0, len(tracks))
	for _, track := range tracks {
		if err := ctx.Err(); err != nil {
			return persisted, err
		}
		ok, err := s.persistTrack(ctx, video, track)
		if err != nil {
			return persisted, err
		}
		if ok {
			persisted = append(persisted, track)
		}
		if err := s.sleep(ctx, s.jitter(s.config.SleepInterval())); err != nil {
			return persisted, err
		}
	}
	return persisted, nil
}

func (s *Service) persistTrack(ctx context.Context, video *metadata.Video, track TrackDescriptor) (bool, error) {
	ctx = services.WithLanguage(ctx, track.Language)
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldSource, string(track.Source)))

	body, err := s.fetcher.Get(ctx, track.URL)
	if err != nil {
		hint := "track may have been withdrawn upstream"
		if fetch.IsTransient(err) {
			hint = "upstream throttled or unreachable; retry the video later"
		}
		logging.WarnWithContext(logger, "caption download failed; skipping track", "caption_download_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "track not archived"),
		)
		return false, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		logging.WarnWithContext(logger, "caption download empty; skipping track", "caption_empty",
			logging.String(logging.FieldImpact, "track not archived"),
		)
		return false, nil
	}

	cues, err := ParseEvents(body, track.Source)
	if err != nil {
		logging.WarnWithContext(logger, "caption events unreadable; skipping track", "caption_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "upstream returned a non-json3 body"),
			logging.String(logging.FieldImpact, "track not archived"),
		)
		return false, nil
	}
	if len(cues) == 0 {
		logger.Info("caption track has no cues; skipping",
			logging.String(logging.FieldEventType, "caption_no_cues"),
		)
		return false, nil
	}

	destPath := filepath.Join(s.config.Paths.MediaDir, filepath.FromSlash(track.MediaPath))
	if err := s.writeCaption(destPath, RenderVTT(track.Language, cues)); err != nil {
		return false, services.Wrap(services.ErrTransient, "subtitles", "write caption", destPath, err)
	}

	var docs []IndexDocument
	indexed := false
	if s.config.Downloads.SubtitleIndex {
		docs = BuildDocuments(cues, RefFromMetadata(video), track.Language, track.Source, s.now())
		payload, err := BulkPayload(s.config.Index.Name, docs)
		if err != nil {
			return false, services.Wrap(services.ErrValidation, "subtitles", "bulk payload", track.Language, err)
		}
		// A payload without documents is only the terminating newline, which
		// the index rejects as an empty bulk request.
		if len(docs) > 0 {
			if _, err := s.index.Bulk(ctx, payload); err != nil {
				return false, services.Wrap(services.ErrExternalTool, "subtitles", "index caption", track.Language, err)
			}
		} else {
			logger.Debug("caption track too short for an index document",
				logging.Int("cues", len(cues)),
				logging.Int("payload_bytes", len(payload)),
			)
		}
		indexed = true
	}

	if s.ledger != nil {
		if _, err := s.ledger.UpsertTrack(ctx, ledger.Track{
			VideoID:       video.ID,
			Language:      track.Language,
			Source:        string(track.Source),
			Format:        track.Format,
			URL:           track.URL,
			MediaPath:     track.MediaPath,
			CueCount:      len(cues),
			DocumentCount: len(docs),
			Indexed:       indexed,
		}); err != nil {
			return false, services.Wrap(services.ErrTransient, "subtitles", "record track", track.Language, err)
		}
	}

	logger.Info("caption track archived",
		logging.String(logging.FieldEventType, "caption_archived"),
		logging.String("path", destPath),
		logging.Int("cues", len(cues)),
		logging.Int("documents", len(docs)),
		logging.Bool("indexed", indexed),
	)
	return true, nil
}

func (s *Service) writeCaption(path, content string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write caption file: %w", err)
	}
	if s.config.HasOwnership() {
		if err := s.chown(path, s.config.Ownership.UID, s.config.Ownership.GID); err != nil {
			return fmt.Errorf("chown caption file: %w", err)
		}
	}
	return nil
}

// Delete removes caption files for tracks and purges the video's documents
// from the search index. With nil tracks every track recorded in the ledger
// for the video is removed. Files that are already gone are logged and
// skipped.
func (s *Service) Delete(ctx context.Context, videoID string, tracks []TrackDescriptor) error {
	ctx = services.WithVideoID(ctx, videoID)
	logger := logging.WithContext(ctx, s.logger)

	fromLedger := tracks == nil
	if fromLedger && s.ledger != nil {
		recorded, err := s.ledger.TracksForVideo(ctx, videoID)
		if err != nil {
			return services.Wrap(services.ErrTransient, "subtitles", "delete", "read ledger", err)
		}
		for _, rec := range recorded {
			tracks = append(tracks, TrackDescriptor{
				Language:  rec.Language,
				Source:    Source(rec.Source),
				Format:    rec.Format,
				URL:       rec.URL,
				MediaPath: rec.MediaPath,
			})
		}
	}

	removed := 0
	for _, track := range tracks {
		path := filepath.Join(s.config.Paths.MediaDir, filepath.FromSlash(track.MediaPath))
		existed, err := fileutil.RemoveIfExists(path)
		if err != nil {
			return services.Wrap(services.ErrTransient, "subtitles", "delete", path, err)
		}
		if !existed {
			logging.WarnWithContext(logger, "caption file already missing", "caption_delete_missing",
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "file was removed outside subarchive"),
				logging.String(logging.FieldImpact, "none"),
			)
			continue
		}
		removed++
	}

	purged := 0
	if s.index != nil {
		n, err := s.index.DeleteByVideo(ctx, s.config.Index.Name, videoID)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "subtitles", "delete", "purge index documents", err)
		}
		purged = n
	}

	if s.ledger != nil {
		if fromLedger {
			if _, err := s.ledger.DeleteVideo(ctx, videoID); err != nil {
				return services.Wrap(services.ErrTransient, "subtitles", "delete", "clear ledger", err)
			}
		} else {
			for _, track := range tracks {
				if err := s.ledger.DeleteTrack(ctx, videoID, track.Language); err != nil {
					return services.Wrap(services.ErrTransient, "subtitles", "delete", "clear ledger", err)
				}
			}
		}
	}

	logger.Info("captions deleted",
		logging.String(logging.FieldEventType, "caption_deleted"),
		logging.Int("files_removed", removed),
		logging.Int("documents_purged", purged),
	)
	return nil
}

func languagesOf(tracks []TrackDescriptor) []string {
	out := make([]string, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, track.Language)
	}
	return out
}
