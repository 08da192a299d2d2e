package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func TestAPIKeysRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	keys, err := repo.APIKeys(ctx)
	if err != nil {
		t.Fatalf("APIKeys on empty store: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("fresh store has %d keys", len(keys))
	}

	want := []string{"primary-key-001", "secondary-key-002", "tertiary-key-0003"}
	if err := repo.SaveAPIKeys(ctx, want); err != nil {
		t.Fatalf("SaveAPIKeys: %v", err)
	}

	keys, err = repo.APIKeys(ctx)
	if err != nil {
		t.Fatalf("APIKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v in priority order", keys, want)
	}
}

func TestSaveAPIKeysReplacesSet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.SaveAPIKeys(ctx, []string{"old-key-000000001", "old-key-000000002"}); err != nil {
		t.Fatalf("SaveAPIKeys: %v", err)
	}
	if err := repo.SaveAPIKeys(ctx, []string{"new-key-000000001"}); err != nil {
		t.Fatalf("SaveAPIKeys: %v", err)
	}

	keys, err := repo.APIKeys(ctx)
	if err != nil {
		t.Fatalf("APIKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"new-key-000000001"}) {
		t.Errorf("keys = %v, a save must replace the whole set", keys)
	}
}

func TestSaveAPIKeysNormalizes(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	in := []string{" padded-key-0001 ", "short", "padded-key-0001"}
	if err := repo.SaveAPIKeys(ctx, in); err != nil {
		t.Fatalf("SaveAPIKeys: %v", err)
	}

	keys, err := repo.APIKeys(ctx)
	if err != nil {
		t.Fatalf("APIKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"padded-key-0001"}) {
		t.Errorf("keys = %v, junk keys must never reach the store", keys)
	}
}

func TestCustomPromptLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	got, err := repo.CustomPrompt(ctx)
	if err != nil {
		t.Fatalf("CustomPrompt on empty store: %v", err)
	}
	if got != "" {
		t.Fatalf("unset prompt = %q, want empty", got)
	}

	if err := repo.SaveCustomPrompt(ctx, "Summarize {title}: {transcript}"); err != nil {
		t.Fatalf("SaveCustomPrompt: %v", err)
	}
	got, err = repo.CustomPrompt(ctx)
	if err != nil {
		t.Fatalf("CustomPrompt: %v", err)
	}
	if got != "Summarize {title}: {transcript}" {
		t.Errorf("prompt = %q", got)
	}

	if err := repo.SaveCustomPrompt(ctx, "replacement template"); err != nil {
		t.Fatalf("SaveCustomPrompt: %v", err)
	}
	got, _ = repo.CustomPrompt(ctx)
	if got != "replacement template" {
		t.Errorf("prompt after overwrite = %q", got)
	}

	// Saving blank clears the stored template.
	if err := repo.SaveCustomPrompt(ctx, "   "); err != nil {
		t.Fatalf("SaveCustomPrompt blank: %v", err)
	}
	got, _ = repo.CustomPrompt(ctx)
	if got != "" {
		t.Errorf("prompt after clear = %q, want empty", got)
	}
}
