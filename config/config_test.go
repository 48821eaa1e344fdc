package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spead.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeTempConfig(t, `max_heaps = 16`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxHeaps != 16 {
		t.Errorf("MaxHeaps = %d, want 16", cfg.MaxHeaps)
	}
	if cfg.WorkerThreads != Default().WorkerThreads {
		t.Errorf("WorkerThreads = %d, want default %d", cfg.WorkerThreads, Default().WorkerThreads)
	}
}

func TestLoadDecodesFlavourTable(t *testing.T) {
	path := writeTempConfig(t, `
[flavour]
pointer_width_bits = 32
heap_address_bits = 16
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fl := cfg.Flavour.ToFlavour()
	if fl.PointerWidthBits != 32 || fl.HeapAddressBits != 16 {
		t.Errorf("flavour = %+v, want {32 16}", fl)
	}
}

func TestLoadRejectsInvalidMaxHeaps(t *testing.T) {
	path := writeTempConfig(t, `max_heaps = 0`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject max_heaps = 0")
	}
}

func TestLoadRejectsInvalidFlavour(t *testing.T) {
	path := writeTempConfig(t, `
[flavour]
pointer_width_bits = 8
heap_address_bits = 8
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject heap_address_bits >= pointer_width_bits")
	}
}
