//go:build integration

package syncer

import (
	"context"
	"testing"

	"github.com/hivemindhq/hivemind/internal/testutil"
)

func TestIntegrationCursorStore(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store := NewPgxCursorStore(db.Pool)
	ctx := context.Background()

	got, err := store.GetCursor(ctx, "slack:C1")
	if err != nil {
		t.Fatalf("GetCursor on empty table: %v", err)
	}
	if got != "" {
		t.Fatalf("cursor = %q, want empty before first sync", got)
	}

	if err := store.SetCursor(ctx, "slack:C1", "acme", "1717000000.000100"); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}
	if err := store.SetCursor(ctx, "slack:C1", "acme", "1717000200.000300"); err != nil {
		t.Fatalf("SetCursor(advance): %v", err)
	}

	got, err = store.GetCursor(ctx, "slack:C1")
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if got != "1717000200.000300" {
		t.Errorf("cursor = %q, want the advanced value", got)
	}

	// Keys are independent.
	other, err := store.GetCursor(ctx, "meetings:acme")
	if err != nil {
		t.Fatalf("GetCursor(other key): %v", err)
	}
	if other != "" {
		t.Errorf("cursor = %q, want empty for an unseen key", other)
	}
}
