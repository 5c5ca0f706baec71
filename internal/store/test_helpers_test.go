package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(name string, frame int64, url string, seq int64) engine.ObservedEvent {
	return engine.ObservedEvent{
		Name: name,
		Attributes: ir.Object{
			"frameId":   ir.Int(frame),
			"tabId":     ir.Int(0),
			"timeStamp": ir.Int(1_700_000_000_000 + seq),
			"url":       ir.String(url),
		},
		Seq: seq,
	}
}
