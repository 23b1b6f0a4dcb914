// Package storage provides SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	dims Dimensions
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist. dims fixes
// the accepted vector lengths for upserts.
func NewSQLiteStore(dbPath string, dims Dimensions) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dims: dims}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		genre TEXT,
		tempo_bpm REAL,
		musical_key TEXT,
		duration_seconds REAL,
		energy REAL,
		mood TEXT,
		rating REAL,
		session TEXT,
		recorded_at TIMESTAMP,
		is_original INTEGER NOT NULL DEFAULT 0,
		track_number INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_songs_tempo ON songs(tempo_bpm);

	CREATE TABLE IF NOT EXISTS audio_embeddings (
		audio_path TEXT PRIMARY KEY,
		song_id INTEGER NOT NULL,
		combined BLOB NOT NULL,
		deep BLOB NOT NULL,
		features TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audio_song_id ON audio_embeddings(song_id);

	CREATE TABLE IF NOT EXISTS text_embeddings (
		song_id INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		content TEXT,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (song_id, content_type)
	);

	CREATE INDEX IF NOT EXISTS idx_text_content_type ON text_embeddings(content_type);
	`
	_, err := db.Exec(schema)
	return err
}

// DB exposes the underlying handle so the result cache can share the database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// UpsertSong inserts or overwrites a song row by ID.
func (s *SQLiteStore) UpsertSong(ctx context.Context, song *models.Song) error {
	now := time.Now()
	song.UpdatedAt = now
	if song.CreatedAt.IsZero() {
		song.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (id, title, genre, tempo_bpm, musical_key, duration_seconds,
			energy, mood, rating, session, recorded_at, is_original, track_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, genre=excluded.genre, tempo_bpm=excluded.tempo_bpm,
			musical_key=excluded.musical_key, duration_seconds=excluded.duration_seconds,
			energy=excluded.energy, mood=excluded.mood, rating=excluded.rating,
			session=excluded.session, recorded_at=excluded.recorded_at,
			is_original=excluded.is_original, track_number=excluded.track_number,
			updated_at=excluded.updated_at`,
		song.ID, song.Title, song.Genre, song.TempoBPM, song.MusicalKey, song.DurationSeconds,
		song.Energy, song.Mood, song.Rating, song.Session, song.RecordedAt, song.IsOriginal,
		song.TrackNumber, song.CreatedAt, song.UpdatedAt,
	)
	return err
}

const songColumns = `id, title, genre, tempo_bpm, musical_key, duration_seconds,
	energy, mood, rating, session, recorded_at, is_original, track_number, created_at, updated_at`

func scanSong(scan func(dest ...interface{}) error) (*models.Song, error) {
	var song models.Song
	var recordedAt sql.NullTime
	err := scan(&song.ID, &song.Title, &song.Genre, &song.TempoBPM, &song.MusicalKey,
		&song.DurationSeconds, &song.Energy, &song.Mood, &song.Rating, &song.Session,
		&recordedAt, &song.IsOriginal, &song.TrackNumber, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if recordedAt.Valid {
		song.RecordedAt = recordedAt.Time
	}
	return &song, nil
}

// GetSong returns a song by ID.
func (s *SQLiteStore) GetSong(ctx context.Context, id int64) (*models.Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := scanSong(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

// GetSongs returns the songs with the given IDs, keyed by ID. Missing IDs are
// simply absent from the map.
func (s *SQLiteStore) GetSongs(ctx context.Context, ids []int64) (map[int64]*models.Song, error) {
	out := make(map[int64]*models.Song, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		song, err := scanSong(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[song.ID] = song
	}
	return out, rows.Err()
}

// ListSongsByTempo returns songs with tempo_bpm in [minBPM, maxBPM], inclusive
// on both ends, ordered by ID.
func (s *SQLiteStore) ListSongsByTempo(ctx context.Context, minBPM, maxBPM float64) ([]*models.Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE tempo_bpm >= ? AND tempo_bpm <= ? ORDER BY id`,
		minBPM, maxBPM)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var songs []*models.Song
	for rows.Next() {
		song, err := scanSong(rows.Scan)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// CountSongs returns the total number of songs.
func (s *SQLiteStore) CountSongs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count)
	return count, err
}

// UpsertAudioEmbedding inserts or overwrites the embedding row for an audio path.
func (s *SQLiteStore) UpsertAudioEmbedding(ctx context.Context, emb *models.AudioEmbedding) error {
	if len(emb.Combined) != s.dims.Combined {
		return fmt.Errorf("combined vector: got %d dimensions, expected %d: %w",
			len(emb.Combined), s.dims.Combined, ErrDimensionMismatch)
	}
	if len(emb.Deep) != s.dims.Deep {
		return fmt.Errorf("deep vector: got %d dimensions, expected %d: %w",
			len(emb.Deep), s.dims.Deep, ErrDimensionMismatch)
	}
	featuresJSON, err := json.Marshal(emb.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	now := time.Now()
	emb.UpdatedAt = now
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = now
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audio_embeddings (audio_path, song_id, combined, deep, features, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(audio_path) DO UPDATE SET
			song_id=excluded.song_id, combined=excluded.combined, deep=excluded.deep,
			features=excluded.features, updated_at=excluded.updated_at`,
		emb.AudioPath, emb.SongID, vector.ToBytes(emb.Combined), vector.ToBytes(emb.Deep),
		string(featuresJSON), emb.CreatedAt, emb.UpdatedAt,
	)
	return err
}

func scanAudio(scan func(dest ...interface{}) error) (*models.AudioEmbedding, error) {
	var emb models.AudioEmbedding
	var combined, deep []byte
	var featuresJSON string
	err := scan(&emb.AudioPath, &emb.SongID, &combined, &deep, &featuresJSON,
		&emb.CreatedAt, &emb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	emb.Combined = vector.FromBytes(combined)
	emb.Deep = vector.FromBytes(deep)
	if featuresJSON != "" && featuresJSON != "null" {
		if err := json.Unmarshal([]byte(featuresJSON), &emb.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}
	return &emb, nil
}

// GetAudioBySong returns the audio embedding for a song. When a song has
// several audio rows the one with the lexically first path wins, matching the
// row the index snapshot picks, so a hit's similarity and its displayed
// path/features always come from the same row.
func (s *SQLiteStore) GetAudioBySong(ctx context.Context, songID int64) (*models.AudioEmbedding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT audio_path, song_id, combined, deep, features, created_at, updated_at
		 FROM audio_embeddings WHERE song_id = ? ORDER BY audio_path LIMIT 1`,
		songID)
	emb, err := scanAudio(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audio embedding for song %d: %w", songID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return emb, nil
}

// GetAllAudio returns every audio embedding ordered by song ID.
func (s *SQLiteStore) GetAllAudio(ctx context.Context) ([]*models.AudioEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT audio_path, song_id, combined, deep, features, created_at, updated_at
		 FROM audio_embeddings ORDER BY song_id, audio_path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AudioEmbedding
	for rows.Next() {
		emb, err := scanAudio(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, rows.Err()
}

// CountAudioEmbeddings returns the total number of audio embeddings.
func (s *SQLiteStore) CountAudioEmbeddings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_embeddings`).Scan(&count)
	return count, err
}

// UpsertTextEmbedding inserts or overwrites the embedding row for a
// (song, content type) pair.
func (s *SQLiteStore) UpsertTextEmbedding(ctx context.Context, emb *models.TextEmbedding) error {
	if len(emb.Vector) != s.dims.Text {
		return fmt.Errorf("text vector: got %d dimensions, expected %d: %w",
			len(emb.Vector), s.dims.Text, ErrDimensionMismatch)
	}
	now := time.Now()
	emb.UpdatedAt = now
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO text_embeddings (song_id, content_type, content, vector, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(song_id, content_type) DO UPDATE SET
			content=excluded.content, vector=excluded.vector, updated_at=excluded.updated_at`,
		emb.SongID, string(emb.ContentType), emb.Content, vector.ToBytes(emb.Vector),
		emb.CreatedAt, emb.UpdatedAt,
	)
	return err
}

// GetText returns the text embedding for a (song, content type) pair.
func (s *SQLiteStore) GetText(ctx context.Context, songID int64, ct models.ContentType) (*models.TextEmbedding, error) {
	var emb models.TextEmbedding
	var vec []byte
	var ctStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT song_id, content_type, content, vector, created_at, updated_at
		 FROM text_embeddings WHERE song_id = ? AND content_type = ?`,
		songID, string(ct),
	).Scan(&emb.SongID, &ctStr, &emb.Content, &vec, &emb.CreatedAt, &emb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("text embedding for song %d type %s: %w", songID, ct, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	emb.ContentType = models.ContentType(ctStr)
	emb.Vector = vector.FromBytes(vec)
	return &emb, nil
}

// GetTextByTypes returns all text embeddings whose content type is in types,
// ordered by song ID then content type.
func (s *SQLiteStore) GetTextByTypes(ctx context.Context, types []models.ContentType) ([]*models.TextEmbedding, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]interface{}, len(types))
	for i, ct := range types {
		args[i] = string(ct)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT song_id, content_type, content, vector, created_at, updated_at
		 FROM text_embeddings WHERE content_type IN (`+placeholders+`)
		 ORDER BY song_id, content_type`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.TextEmbedding
	for rows.Next() {
		var emb models.TextEmbedding
		var vec []byte
		var ctStr string
		if err := rows.Scan(&emb.SongID, &ctStr, &emb.Content, &vec, &emb.CreatedAt, &emb.UpdatedAt); err != nil {
			return nil, err
		}
		emb.ContentType = models.ContentType(ctStr)
		emb.Vector = vector.FromBytes(vec)
		out = append(out, &emb)
	}
	return out, rows.Err()
}

// CountTextEmbeddings returns the total number of text embeddings.
func (s *SQLiteStore) CountTextEmbeddings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM text_embeddings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
