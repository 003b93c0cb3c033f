package config

import (
	"context"
	"os"
	"testing"
	"time"
)

const catalogV1 = `
centers:
  - id: 1
    name: Riverside
    lanes:
      - {id: 11, name: Massage 1, is_active: true}
`

const catalogV2 = `
centers:
  - id: 1
    name: Riverside East
    lanes:
      - {id: 11, name: Massage 1, is_active: true}
      - {id: 12, name: Massage 2, is_active: true}
`

func rewrite(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogWatcherPollsChanges(t *testing.T) {
	path := writeFile(t, "catalog.yaml", catalogV1)

	var got *CatalogConfig
	w := &catalogWatcher{path: path, onUpdate: func(c *CatalogConfig) { got = c }}
	if err := w.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got == nil || got.Centers[0].Name != "Riverside" {
		t.Fatalf("initial catalog = %+v", got)
	}

	// Untouched file: poll must not re-deliver.
	got = nil
	w.poll()
	if got != nil {
		t.Error("poll re-delivered an unchanged catalog")
	}

	rewrite(t, path, catalogV2, w.lastMod.Add(time.Second))
	w.poll()
	if got == nil {
		t.Fatal("poll missed the updated catalog")
	}
	if got.Centers[0].Name != "Riverside East" || len(got.Centers[0].Lanes) != 2 {
		t.Errorf("updated catalog = %+v", got.Centers[0])
	}
}

func TestCatalogWatcherKeepsLastGoodOnBrokenEdit(t *testing.T) {
	path := writeFile(t, "catalog.yaml", catalogV1)

	var updates int
	w := &catalogWatcher{path: path, onUpdate: func(*CatalogConfig) { updates++ }}
	if err := w.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rewrite(t, path, "centers: [", w.lastMod.Add(time.Second))
	w.poll()
	if updates != 1 {
		t.Fatalf("broken edit delivered an update (%d deliveries)", updates)
	}

	// The fix lands on a later mtime and must still be picked up.
	rewrite(t, path, catalogV2, w.lastMod.Add(2*time.Second))
	w.poll()
	if updates != 2 {
		t.Fatalf("fixed catalog not delivered (%d deliveries)", updates)
	}
}

func TestWatchCatalogDeliversUpdates(t *testing.T) {
	path := writeFile(t, "catalog.yaml", catalogV1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *CatalogConfig, 4)
	err := WatchCatalog(ctx, path, time.Millisecond, func(c *CatalogConfig) { updates <- c })
	if err != nil {
		t.Fatalf("WatchCatalog: %v", err)
	}

	first := <-updates
	if first.Centers[0].Name != "Riverside" {
		t.Fatalf("initial center = %q", first.Centers[0].Name)
	}

	rewrite(t, path, catalogV2, time.Now().Add(time.Minute))
	select {
	case next := <-updates:
		if next.Centers[0].Name != "Riverside East" {
			t.Errorf("updated center = %q", next.Centers[0].Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered after the file changed")
	}
}

func TestWatchCatalogMissingFile(t *testing.T) {
	err := WatchCatalog(context.Background(), "nonexistent/catalog.yaml", time.Second, nil)
	if err == nil {
		t.Error("expected an error for a missing catalog file")
	}
}
