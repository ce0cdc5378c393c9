package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("facemap_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	// Get Connection String
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	taken := time.Date(2019, 4, 1, 12, 30, 0, 0, time.UTC)
	run := ImageRun{ID: "img_123", Path: "/photos/group.jpg", TakenAt: &taken}
	faces := []FaceArtifact{
		{FaceIndex: 0, Region: []int32{35, 25, 115, 125}, Fingerprint: "abc", CropHash: "d:1f", Features: 9, Paths: []string{"/out/group_face0.png"}},
		{FaceIndex: 1, Region: []int32{115, 25, 185, 115}, CropHash: "d:2e"},
	}
	if err := s.RecordRun(ctx, run, faces); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := s.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 image, got %d", len(runs))
	}
	if runs[0].FaceCount != 2 {
		t.Errorf("Expected face count 2, got %d", runs[0].FaceCount)
	}
	if runs[0].TakenAt == nil || !runs[0].TakenAt.Equal(taken) {
		t.Errorf("Expected taken_at %v, got %v", taken, runs[0].TakenAt)
	}

	got, err := s.ListFaces(ctx, "img_123")
	if err != nil {
		t.Fatalf("ListFaces failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 faces, got %d", len(got))
	}
	if got[0].Fingerprint != "abc" || got[0].Features != 9 || len(got[0].Paths) != 1 {
		t.Errorf("Unexpected first face: %+v", got[0])
	}
	if got[1].Fingerprint != "" {
		t.Errorf("Expected missing fingerprint to read back empty, got %q", got[1].Fingerprint)
	}
	if len(got[1].Region) != 4 || got[1].Region[2] != 185 {
		t.Errorf("Unexpected region %v", got[1].Region)
	}

	// Re-running an image replaces its faces
	if err := s.RecordRun(ctx, ImageRun{ID: "img_123", Path: "/photos/group.jpg"}, faces[:1]); err != nil {
		t.Fatalf("Second RecordRun failed: %v", err)
	}
	got, err = s.ListFaces(ctx, "img_123")
	if err != nil {
		t.Fatalf("ListFaces failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 face after re-run, got %d", len(got))
	}

	// Reset drops everything; a fresh Store recreates the schema
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := s.ListImages(ctx); err == nil {
		t.Error("Expected ListImages to fail after Reset")
	}

	s2, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	defer s2.Close(ctx)
	runs, err = s2.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages after reset failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected empty ledger after reset, got %d", len(runs))
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
