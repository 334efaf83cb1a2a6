package storage

import (
	"database/sql"
	"errors"
	"testing"
)

func TestUnavailable(t *testing.T) {
	if Unavailable("get habit", nil) != nil {
		t.Fatal("Unavailable(nil) should be nil")
	}

	err := Unavailable("get habit", sql.ErrConnDone)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable in chain: %v", err)
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected cause in chain: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("unexpected ErrNotFound in chain: %v", err)
	}
	if got := err.Error(); got != "get habit: store unavailable: sql: connection is already closed" {
		t.Errorf("unexpected message %q", got)
	}
}
