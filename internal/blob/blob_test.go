package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

func TestFSStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := blob.NewFSStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	key := blob.Key(uuid.New())
	data := []byte("%PDF-1.4 body")

	if err := s.Put(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Errorf("read %q, want %q", got, data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Open(ctx, key); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Open after delete err = %v, want NotFound", err)
	}
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	s, err := blob.NewFSStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../x.pdf", "/etc/passwd", "a/../../b"} {
		if err := s.Put(context.Background(), key, bytes.NewReader(nil), ""); !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("Put(%q) err = %v, want InvalidInput", key, err)
		}
	}
}
