// Package store keeps an optional PostgreSQL ledger of processed images and
// the per-face artifacts written for them. It is write-mostly: nothing reads
// fingerprints back for matching.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ImageRun is one processed photograph.
type ImageRun struct {
	ID          string
	Path        string
	TakenAt     *time.Time
	FaceCount   int
	ProcessedAt time.Time
}

// FaceArtifact is the ledger row for one face of an ImageRun.
type FaceArtifact struct {
	FaceIndex   int
	Region      []int32 // left, top, right, bottom
	Fingerprint string  // empty when the encoder found nothing
	CropHash    string
	Features    int // landmark features found, 0 when landmarks failed
	Paths       []string
}

type Store struct {
	conn *pgx.Conn
}

func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS image_runs (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			taken_at TIMESTAMPTZ,
			face_count INT NOT NULL DEFAULT 0,
			processed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_artifacts (
			id BIGSERIAL PRIMARY KEY,
			image_id TEXT NOT NULL REFERENCES image_runs(id) ON DELETE CASCADE,
			face_index INT NOT NULL,
			region INT[] NOT NULL,
			fingerprint TEXT,
			crop_hash TEXT NOT NULL DEFAULT '',
			features INT NOT NULL DEFAULT 0,
			paths TEXT[] NOT NULL DEFAULT '{}',
			UNIQUE (image_id, face_index)
		);
		CREATE INDEX IF NOT EXISTS face_artifacts_fingerprint_idx ON face_artifacts (fingerprint);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordRun stores run and replaces any faces recorded for it by an earlier run.
func (s *Store) RecordRun(ctx context.Context, run ImageRun, faces []FaceArtifact) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // No-op after Commit

	_, err = tx.Exec(ctx, `
		INSERT INTO image_runs (id, path, taken_at, face_count, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET path = EXCLUDED.path, taken_at = EXCLUDED.taken_at,
		    face_count = EXCLUDED.face_count, processed_at = NOW()
	`, run.ID, run.Path, run.TakenAt, len(faces))
	if err != nil {
		return fmt.Errorf("record image %s: %w", run.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM face_artifacts WHERE image_id = $1`, run.ID); err != nil {
		return err
	}

	if len(faces) > 0 {
		batch := &pgx.Batch{}
		for _, f := range faces {
			paths := f.Paths
			if paths == nil {
				paths = []string{}
			}
			batch.Queue(`
				INSERT INTO face_artifacts (image_id, face_index, region, fingerprint, crop_hash, features, paths)
				VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
			`, run.ID, f.FaceIndex, f.Region, f.Fingerprint, f.CropHash, f.Features, paths)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("record faces of %s: %w", run.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListImages returns every recorded image, most recent first.
func (s *Store) ListImages(ctx context.Context) ([]ImageRun, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, path, taken_at, face_count, processed_at
		FROM image_runs
		ORDER BY processed_at DESC, path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ImageRun
	for rows.Next() {
		var r ImageRun
		if err := rows.Scan(&r.ID, &r.Path, &r.TakenAt, &r.FaceCount, &r.ProcessedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListFaces returns the faces recorded for imageID in detector order.
func (s *Store) ListFaces(ctx context.Context, imageID string) ([]FaceArtifact, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT face_index, region, COALESCE(fingerprint, ''), crop_hash, features, paths
		FROM face_artifacts
		WHERE image_id = $1
		ORDER BY face_index
	`, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faces []FaceArtifact
	for rows.Next() {
		var f FaceArtifact
		if err := rows.Scan(&f.FaceIndex, &f.Region, &f.Fingerprint, &f.CropHash, &f.Features, &f.Paths); err != nil {
			return nil, err
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// Reset drops the ledger tables. They are recreated by the next New.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS face_artifacts, image_runs CASCADE`)
	return err
}
