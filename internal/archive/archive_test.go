package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marklab/markctl/internal/testutil/fixture"
)

func TestExtractFilteredSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "in.zip")
	fixture.BuildZip(t, zipPath, map[string]string{
		"sheet/":                       "",
		"sheet/a.txt":                  "hello",
		"__MACOSX/sheet/._a.txt":       "junk",
		"sheet/.DS_Store":              "junk",
		"sheet/sub/":                   "",
		"sheet/sub/b.txt":              "world",
		"sheet/sub/__MACOSX/._garbage": "junk",
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractFiltered(zipPath, dest); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got := fixture.Names(t, filepath.Join(dest, "sheet")); len(got) != 2 || got[0] != "a.txt" || got[1] != "sub" {
		t.Fatalf("unexpected extracted entries: %v", got)
	}
	data, err := os.ReadFile(filepath.Join(dest, "sheet", "sub", "b.txt"))
	if err != nil || string(data) != "world" {
		t.Fatalf("nested file wrong: %q %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "__MACOSX")); !os.IsNotExist(err) {
		t.Fatalf("junk directory was extracted")
	}
}

func TestExtractFilteredRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	fixture.BuildZip(t, zipPath, map[string]string{
		"../escape.txt": "nope",
	})
	if err := ExtractFiltered(zipPath, filepath.Join(dir, "out")); err == nil {
		t.Fatalf("expected error for escaping entry")
	}
}

func TestMoveContents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fixture.WriteFile(t, filepath.Join(src, "a.txt"), "a")
	fixture.WriteFile(t, filepath.Join(src, "sub", "b.txt"), "b")

	if err := MoveContents(src, dir); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source directory still exists")
	}
	if _, err := os.Stat(filepath.Join(dir, "sub", "b.txt")); err != nil {
		t.Fatalf("moved tree incomplete: %v", err)
	}
}

func TestMoveContentsRefusesCollisions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fixture.WriteFile(t, filepath.Join(src, "a.txt"), "new")
	fixture.WriteFile(t, filepath.Join(dir, "a.txt"), "old")

	if err := MoveContents(src, dir); err == nil {
		t.Fatalf("expected collision error")
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(data) != "old" {
		t.Fatalf("existing file was overwritten")
	}
}

func TestCopyTreeSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fixture.WriteFile(t, filepath.Join(src, "a.txt"), "a")
	fixture.WriteFile(t, filepath.Join(src, ".DS_Store"), "junk")
	fixture.WriteFile(t, filepath.Join(src, "__MACOSX", "x"), "junk")
	fixture.WriteFile(t, filepath.Join(src, "sub", "b.txt"), "b")

	dst := filepath.Join(dir, "dst")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if got := fixture.Names(t, dst); len(got) != 2 || got[0] != "a.txt" || got[1] != "sub" {
		t.Fatalf("unexpected copied entries: %v", got)
	}
}

func TestIsArchive(t *testing.T) {
	if !IsArchive("solution.ZIP") || !IsArchive("a.zip") {
		t.Fatalf("zip names not recognized")
	}
	if IsArchive("a.tar.gz") || IsArchive("zipfile.txt") {
		t.Fatalf("non-zip names recognized")
	}
}
