package testsupport

import (
	"testing"

	"mediacheck/internal/config"
	"mediacheck/internal/inventory"
)

// MustOpenStore opens an inventory.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *inventory.Store {
	t.Helper()

	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		t.Fatalf("inventory.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
