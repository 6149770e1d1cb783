package display

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNextFreeNameSuffixesOnCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.tif")

	if got := NextFreeName(path); got != path {
		t.Fatalf("NextFreeName on a nonexistent file = %q, want %q", got, path)
	}

	mustCreate(t, path)
	want1 := filepath.Join(dir, "frame.1.tif")
	if got := NextFreeName(path); got != want1 {
		t.Fatalf("NextFreeName after one collision = %q, want %q", got, want1)
	}

	mustCreate(t, want1)
	want2 := filepath.Join(dir, "frame.2.tif")
	if got := NextFreeName(path); got != want2 {
		t.Fatalf("NextFreeName after two collisions = %q, want %q", got, want2)
	}
}

func mustCreate(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	f.Close()
}
