package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages the track ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertTrack records a persisted track, replacing any earlier record for the
// same video and language. CreatedAt is preserved across updates.
func (s *Store) UpsertTrack(ctx context.Context, track Track) (*Track, error) {
	if strings.TrimSpace(track.VideoID) == "" || strings.TrimSpace(track.Language) == "" {
		return nil, errors.New("ledger: video id and language are required")
	}
	if track.Format == "" {
		track.Format = "json3"
	}
	timestamp := nowString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tracks (
    video_id, language, source, format, url, media_path,
    cue_count, document_count, indexed, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id, language) DO UPDATE SET
    source = excluded.source,
    format = excluded.format,
    url = excluded.url,
    media_path = excluded.media_path,
    cue_count = excluded.cue_count,
    document_count = excluded.document_count,
    indexed = excluded.indexed,
    updated_at = excluded.updated_at`,
		track.VideoID, track.Language, track.Source, track.Format, track.URL, track.MediaPath,
		track.CueCount, track.DocumentCount, boolToInt(track.Indexed), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert track: %w", err)
	}
	return s.Track(ctx, track.VideoID, track.Language)
}

const trackColumns = `id, video_id, language, source, format, url, media_path,
    cue_count, document_count, indexed, created_at, updated_at`

// Track returns the record for (videoID, language), or nil when none exists.
func (s *Store) Track(ctx context.Context, videoID, language string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE video_id = ? AND language = ?", videoID, language)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return track, err
}

// TracksForVideo lists the tracks recorded for videoID ordered by language.
func (s *Store) TracksForVideo(ctx context.Context, videoID string) ([]Track, error) {
	return s.queryTracks(ctx, "SELECT "+trackColumns+" FROM tracks WHERE video_id = ? ORDER BY language", videoID)
}

// List returns every recorded track ordered by video and language.
func (s *Store) List(ctx context.Context) ([]Track, error) {
	return s.queryTracks(ctx, "SELECT "+trackColumns+" FROM tracks ORDER BY video_id, language")
}

// Videos summarizes the ledger per video, most recently updated first.
func (s *Store) Videos(ctx context.Context) ([]VideoSummary, error) {
	tracks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var summaries []VideoSummary
	for _, track := range tracks {
		pos, ok := index[track.VideoID]
		if !ok {
			pos = len(summaries)
			index[track.VideoID] = pos
			summaries = append(summaries, VideoSummary{VideoID: track.VideoID})
		}
		summary := &summaries[pos]
		summary.TrackCount++
		if track.Indexed {
			summary.Indexed++
		}
		summary.Languages = append(summary.Languages, track.Language)
		if track.UpdatedAt.After(summary.UpdatedAt) {
			summary.UpdatedAt = track.UpdatedAt
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

// DeleteVideo removes every record for videoID and reports how many rows
// were deleted.
func (s *Store) DeleteVideo(ctx context.Context, videoID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracks WHERE video_id = ?", videoID)
	if err != nil {
		return 0, fmt.Errorf("delete video tracks: %w", err)
	}
	return res.RowsAffected()
}

// DeleteTrack removes the record for (videoID, language).
func (s *Store) DeleteTrack(ctx context.Context, videoID, language string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tracks WHERE video_id = ? AND language = ?", videoID, language); err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

func (s *Store) queryTracks(ctx context.Context, query string, args ...any) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		track            Track
		indexed          int
		created, updated string
	)
	if err := scanner.Scan(
		&track.ID, &track.VideoID, &track.Language, &track.Source, &track.Format, &track.URL, &track.MediaPath,
		&track.CueCount, &track.DocumentCount, &indexed, &created, &updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan track: %w", err)
	}
	track.Indexed = indexed != 0
	var err error
	if track.CreatedAt, err = parseTimeString(created); err != nil {
		return nil, err
	}
	if track.UpdatedAt, err = parseTimeString(updated); err != nil {
		return nil, err
	}
	return &track, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}
