package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	root := t.TempDir()
	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, FileName)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, FileName)); !os.IsNotExist(err) {
		t.Fatalf("lock file not removed")
	}
}

func TestAcquireFailsFastWhenHeld(t *testing.T) {
	root := t.TempDir()
	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer lock.Release()

	if _, err := Acquire(root); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	root := t.TempDir()
	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	second, err := Acquire(root)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	second.Release()
}
