package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/medassist/claim-processor/internal/core/domain"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return s
}

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	key := "claim-1/blob-1"

	if err := s.Save(ctx, key, strings.NewReader("payload")); err != nil {
		t.Fatalf("save: %v", err)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(data) != "payload" {
		t.Fatalf("read = %q (%v), want payload", data, err)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Open(ctx, key); err == nil {
		t.Fatal("blob still readable after remove")
	}
}

func TestRemoveMissingBlobIsQuiet(t *testing.T) {
	s := newStorage(t)
	if err := s.Remove(context.Background(), "claim-1/gone"); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	for _, key := range []string{"../outside", "/etc/passwd", "a/../../b", "."} {
		if err := s.Save(ctx, key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidInput", key, err)
		}
	}
}

func TestRejectsEmptyRoot(t *testing.T) {
	if _, err := New("  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
