package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalCleansExistingPath(t *testing.T) {
	dir := t.TempDir()
	messy := filepath.Join(dir, "a", "..", ".")
	if got := Canonical(messy); got != Canonical(dir) {
		t.Fatalf("expected %q, got %q", Canonical(dir), got)
	}
}

func TestCanonicalResolvesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(dir, "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if got := Canonical(link); got != Canonical(target) {
		t.Fatalf("expected %q, got %q", Canonical(target), got)
	}
}

func TestCanonicalResolvesThroughMissingSuffix(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "not", "yet", "created")
	want := filepath.Join(Canonical(dir), "not", "yet", "created")
	if got := Canonical(missing); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCanonicalEmptyInput(t *testing.T) {
	if got := Canonical("  "); got != "." {
		t.Fatalf("expected %q, got %q", ".", got)
	}
}
