package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestLoadSeed_YAML(t *testing.T) {
	path := writeFile(t, "seed.yaml", `
donors:
  - id: d1
    name: Ana
centers:
  - id: c1
    name: Hemocentro Central
    city: Recife
    state: PE
`)

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed error: %v", err)
	}
	if len(seed.Donors) != 1 || seed.Donors[0].ID != "d1" || seed.Donors[0].Name != "Ana" {
		t.Fatalf("donors = %+v", seed.Donors)
	}
	if len(seed.Centers) != 1 || seed.Centers[0].City != "Recife" || seed.Centers[0].State != "PE" {
		t.Fatalf("centers = %+v", seed.Centers)
	}
}

func TestLoadSeed_RequiresIDs(t *testing.T) {
	path := writeFile(t, "seed.json", `{"centers": [{"name": "no id"}]}`)

	if _, err := LoadSeed(path); err == nil {
		t.Fatalf("expected error for center without id")
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
