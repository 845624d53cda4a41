package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/flowlua/internal/detect"
)

// createTestStore creates a new file-backed store in a temp dir.
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

// createTestCall creates a successful ScFlowintIncr call.
func createTestCall(flowToken string, seq int64) detect.Call {
	return detect.Call{
		Seq:       seq,
		Worker:    0,
		FlowToken: flowToken,
		Rule:      "counter",
		Binding:   "ScFlowintIncr",
		Args:      []any{int64(0)},
		Result:    uint32(seq),
	}
}

// verifyPragma checks that PRAGMA name reports expected.
func (s *Store) verifyPragma(name, expected string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("PRAGMA %s: %w", name, err)
	}
	if !strings.EqualFold(got, expected) {
		return fmt.Errorf("PRAGMA %s = %q, want %q", name, got, expected)
	}
	return nil
}
