// Package archive holds the zip and directory-tree plumbing shared by the
// extraction and normalization stages.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsJunk reports whether a zip entry or file name is platform metadata that
// must never end up in a working tree.
func IsJunk(name string) bool {
	return strings.Contains(name, "__MACOSX") || strings.Contains(name, ".DS_Store")
}

// IsArchive reports whether name looks like an embedded archive that the
// normalizer should expand in place.
func IsArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// ExtractFiltered extracts zipPath into dest, skipping junk entries and
// rejecting entries that would escape dest.
func ExtractFiltered(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if IsJunk(entry.Name) {
			continue
		}
		if err := extractEntry(entry, dest); err != nil {
			return fmt.Errorf("extract %s from %s: %w", entry.Name, zipPath, err)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, dest string) error {
	target, err := sanitizePath(dest, entry.Name)
	if err != nil {
		return err
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func sanitizePath(dest, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute entry path %q", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry path %q escapes destination", name)
	}
	return target, nil
}

// MoveContents moves every child of src into dst and removes src. Children
// must not already exist in dst; merging with collision handling is the
// normalizer's business.
func MoveContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if _, err := os.Lstat(to); err == nil {
			return fmt.Errorf("move %s: %s already exists", from, to)
		}
		if err := os.Rename(from, to); err != nil {
			return err
		}
	}
	return os.Remove(src)
}

// CopyTree recursively copies src into dst, skipping junk files. dst must
// not exist yet.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if IsJunk(entry.Name()) {
			continue
		}
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyTree(from, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
