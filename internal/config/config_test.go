package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VELORA_TEST_REDIS", "redis:6379")
	path := writeFile(t, "config.yaml", `
database:
  path: `+filepath.Join(t.TempDir(), "velora.db")+`
redis:
  address: ${VELORA_TEST_REDIS}
booking:
  min_advance_minutes: 30
  max_advance_days: 14
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Address != "redis:6379" {
		t.Errorf("redis address = %q, want redis:6379", cfg.Redis.Address)
	}
	if got := cfg.BookingMinAdvance(); got != 30*time.Minute {
		t.Errorf("min advance = %v, want 30m", got)
	}
	if got := cfg.BookingMaxAdvance(); got != 14*24*time.Hour {
		t.Errorf("max advance = %v, want 336h", got)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("default http port = %d, want 8080", cfg.HTTP.Port)
	}
}

const validCatalog = `
centers:
  - id: 1
    name: Riverside
    lanes:
      - id: 11
        name: Massage 1
        position: 0
        is_active: true
      - id: 12
        name: Treatments
        capacity: 2
        allowed_groups: [5, 6]
        position: 1
        is_active: true
services:
  - id: 100
    name: Classic Massage
    duration_minutes: 30
    price_cents: 8000
    group_id: 5
    is_active: true
`

func TestLoadCatalog(t *testing.T) {
	cfg, err := LoadCatalog(writeFile(t, "catalog.yaml", validCatalog))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	lanes := cfg.ModelLanes()
	if len(lanes) != 2 {
		t.Fatalf("got %d lanes, want 2", len(lanes))
	}
	if lanes[0].Capacity != 1 {
		t.Errorf("default capacity = %d, want 1", lanes[0].Capacity)
	}
	if lanes[0].CenterID != 1 || lanes[1].CenterID != 1 {
		t.Error("lanes must inherit their center id")
	}
	if got := lanes[1].AllowedGroups; len(got) != 2 || got[0] != 5 {
		t.Errorf("allowed groups = %v, want [5 6]", got)
	}
	if svcs := cfg.ModelServices(); len(svcs) != 1 || svcs[0].PriceCents != 8000 {
		t.Errorf("services = %+v", svcs)
	}
}

func TestCatalogValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no centers", `services: []`},
		{"duplicate lane id", `
centers:
  - id: 1
    name: A
    lanes:
      - {id: 11, name: One, is_active: true}
  - id: 2
    name: B
    lanes:
      - {id: 11, name: Two, is_active: true}
`},
		{"zero duration service", `
centers:
  - id: 1
    name: A
    lanes:
      - {id: 11, name: One, is_active: true}
services:
  - {id: 100, name: Bad, duration_minutes: 0, price_cents: 100, is_active: true}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeFile(t, "catalog.yaml", tc.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
