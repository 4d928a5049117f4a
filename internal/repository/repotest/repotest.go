package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/manjushapaul/Crypto-sub001/internal/repository"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

// Run checks the behaviour every KVRepository backend must share. It leaves
// the "theme" and "language" keys behind.
func Run(t *testing.T, repo repository.KVRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing_key", func(t *testing.T) {
		_, err := repo.Get(ctx, "absent")
		if !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, but got %v", err)
		}
	})

	t.Run("set_then_get", func(t *testing.T) {
		if err := repo.Set(ctx, "theme", `"dark"`); err != nil {
			t.Fatalf("Set failed: unexpected error: %v", err)
		}

		value, err := repo.Get(ctx, "theme")
		if err != nil {
			t.Fatalf("Get failed after set: %v", err)
		}
		if value != `"dark"` {
			t.Errorf("Expected value %s, got %s", `"dark"`, value)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		_ = repo.Set(ctx, "language", `"en"`)
		if err := repo.Set(ctx, "language", `"fr"`); err != nil {
			t.Fatalf("Set failed on overwrite: %v", err)
		}

		value, err := repo.Get(ctx, "language")
		if err != nil {
			t.Fatalf("Get failed after overwrite: %v", err)
		}
		if value != `"fr"` {
			t.Errorf("Expected value %s, got %s", `"fr"`, value)
		}
	})

	t.Run("delete_is_idempotent", func(t *testing.T) {
		_ = repo.Set(ctx, "portfolio", `[]`)

		if err := repo.Delete(ctx, "portfolio"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.Delete(ctx, "portfolio"); err != nil {
			t.Errorf("second Delete should be a no-op, got %v", err)
		}

		if _, err := repo.Get(ctx, "portfolio"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})
}
