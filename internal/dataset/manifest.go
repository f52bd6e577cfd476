package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Manifest indexes stored recordings in SQLite.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens or creates the manifest database at dbPath.
func OpenManifest(dbPath string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	// SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping manifest: %w", err)
	}

	m := &Manifest{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize manifest schema: %w", err)
	}

	return m, nil
}

func (m *Manifest) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS recordings (
		key TEXT PRIMARY KEY,
		audio_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		gender TEXT NOT NULL,
		pharmacy TEXT NOT NULL,
		recorded_at INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		transcript TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_drug_gender ON recordings(drug, gender);
	`
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Add inserts rec. A row with the same key is left alone and ErrKeyExists
// is returned.
func (m *Manifest) Add(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO recordings (key, audio_id, drug, gender, pharmacy, recorded_at,
		                        content_type, bytes, duration_ms, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var transcript sql.NullString
	if rec.Transcript != "" {
		transcript = sql.NullString{String: rec.Transcript, Valid: true}
	}

	_, err := m.db.ExecContext(ctx, query,
		rec.Key, rec.AudioID, rec.Drug, rec.Gender, rec.Pharmacy, rec.Timestamp.UnixMilli(),
		rec.ContentType, rec.Bytes, rec.Duration.Milliseconds(), transcript,
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrKeyExists, rec.Key)
		}

		return fmt.Errorf("insert recording %s: %w", rec.Key, err)
	}

	return nil
}

// List returns matching recordings, newest first.
func (m *Manifest) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)

	if f.Drug != "" {
		where = append(where, "drug = ? COLLATE NOCASE")
		args = append(args, f.Drug)
	}

	if f.Gender != "" {
		where = append(where, "gender = ? COLLATE NOCASE")
		args = append(args, f.Gender)
	}

	query := `
		SELECT key, audio_id, drug, gender, pharmacy, recorded_at,
		       content_type, bytes, duration_ms, transcript
		FROM recordings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, key DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			recordedAt int64
			durationMS int64
			transcript sql.NullString
		)

		if err := rows.Scan(
			&rec.Key, &rec.AudioID, &rec.Drug, &rec.Gender, &rec.Pharmacy, &recordedAt,
			&rec.ContentType, &rec.Bytes, &durationMS, &transcript,
		); err != nil {
			return nil, fmt.Errorf("scan recording row: %w", err)
		}

		rec.Timestamp = time.UnixMilli(recordedAt).UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Transcript = transcript.String
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}

	return out, nil
}

// Counts returns recordings per drug and gender.
func (m *Manifest) Counts(ctx context.Context) ([]Count, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT drug, gender, COUNT(*)
		FROM recordings
		GROUP BY drug, gender
		ORDER BY drug, gender`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Drug, &c.Gender, &c.Recordings); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// Ping verifies database connectivity.
func (m *Manifest) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// isConflict reports SQLite lock contention, which is worth retrying.
func isConflict(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// isDuplicate reports a primary key violation.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
