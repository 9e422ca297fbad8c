package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestSafeDSNSummary(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "postgres://ocr:secret@db:5432/ocr?sslmode=disable", want: "host=db port=5432 db=ocr user=ocr"},
		{dsn: "postgres://ocr@localhost/cache", want: "host=localhost db=cache user=ocr"},
		{dsn: "::not a url", want: "dsn: parse error"},
	}
	for _, tt := range tests {
		got := SafeDSNSummary(tt.dsn)
		if got != tt.want {
			t.Fatalf("SafeDSNSummary(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
		if strings.Contains(got, "secret") {
			t.Fatalf("password leaked: %q", got)
		}
	}
}

func TestRecognitionRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	repo := NewRecognitionRepo(db)
	hash := "test-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() {
		_, _ = db.Exec(`delete from recognitions where image_hash=$1`, hash)
	})

	if _, err := repo.Find(ctx, hash, "trocr", "m", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing row, got %v", err)
	}
	if err := repo.Save(ctx, hash, "trocr", "m", "first"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, hash, "trocr", "m", "second"); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	got, err := repo.Find(ctx, hash, "trocr", "m", time.Hour)
	if err != nil || got != "second" {
		t.Fatalf("Find() = %q, %v", got, err)
	}
	if _, err := repo.Find(ctx, hash, "gemini", "m", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rows must be keyed by engine, got %v", err)
	}
}
