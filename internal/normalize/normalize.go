// Package normalize reshapes a freshly extracted working root into the
// canonical submission layout: one directory per team, named by the
// platform team ID, holding the uploaded files directly.
package normalize

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marklab/markctl/internal/archive"
	"github.com/marklab/markctl/internal/dirnames"
	"github.com/marklab/markctl/internal/logging"
	"github.com/marklab/markctl/internal/sheetstate"
)

// AssignKeys renames every "Team <id>" directory under root to the bare id.
// Directories already named by their key are left alone, which makes the
// pass a no-op on its own output. Returns the sorted list of directory keys.
func AssignKeys(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if dirnames.IsKey(name) {
			keys = append(keys, name)
			continue
		}
		id, ok := dirnames.ParseTeamDir(name)
		if !ok {
			continue
		}
		target := filepath.Join(root, string(id))
		if err := os.Rename(filepath.Join(root, name), target); err != nil {
			return nil, fmt.Errorf("assign key to %s: %w", name, err)
		}
		log.Debug().Str("from", name).Str("key", string(id)).Msg("assigned directory key")
		keys = append(keys, string(id))
	}
	sort.Strings(keys)
	return keys, nil
}

// Flatten collapses the member upload subfolders of each submission
// directory. Empty subfolders are removed silently. One non-empty subfolder
// is hoisted; several are merged with a warning; none leaves an empty
// submission, also warned about.
func Flatten(root string, keys []string, warns *logging.Collector) error {
	for _, key := range keys {
		if err := flattenSubmission(filepath.Join(root, key), warns); err != nil {
			return fmt.Errorf("flatten submission %s: %w", key, err)
		}
	}
	return nil
}

func flattenSubmission(dir string, warns *logging.Collector) error {
	if err := removeEmptySubdirs(dir); err != nil {
		return err
	}
	entries, err := contentEntries(dir)
	if err != nil {
		return err
	}
	uploads := memberUploadDirs(entries)
	if len(uploads) > 1 {
		warns.Warnf("there are multiple submissions for group %q, their files were merged", filepath.Base(dir))
	}
	if len(entries) == 0 {
		warns.Warnf("the submission of group %q is empty", filepath.Base(dir))
	}
	for _, entry := range uploads {
		if err := mergeUp(filepath.Join(dir, entry.Name()), dir, warns); err != nil {
			return err
		}
	}
	return nil
}

// memberUploadDirs picks out the subfolders named by the platform's upload
// pattern. Only those are merged, so a content directory hoisted by an
// earlier run (say src/) is left where it is and a second pass changes
// nothing.
func memberUploadDirs(entries []fs.DirEntry) []fs.DirEntry {
	var uploads []fs.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := dirnames.ParseUploadDir(entry.Name()); err != nil {
			continue
		}
		uploads = append(uploads, entry)
	}
	return uploads
}

func removeEmptySubdirs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		children, err := os.ReadDir(sub)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			if err := os.Remove(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// contentEntries lists the submission directory's children that count as
// submitted content. The metadata record written later by the state store is
// excluded so a re-run on a finished tree sees the same picture.
func contentEntries(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var content []fs.DirEntry
	for _, entry := range entries {
		if entry.Name() == sheetstate.SubmissionFileName {
			continue
		}
		content = append(content, entry)
	}
	return content, nil
}

// mergeUp moves every child of src into dst, renaming on collision instead
// of overwriting, then removes src.
func mergeUp(src, dst string, warns *logging.Collector) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		target := filepath.Join(dst, entry.Name())
		if _, err := os.Lstat(target); err == nil {
			target = freeName(dst, entry.Name())
			warns.Warnf(
				"file name collision while merging uploads in %q: kept %s as %s",
				filepath.Base(dst), entry.Name(), filepath.Base(target),
			)
		}
		if err := os.Rename(from, target); err != nil {
			return err
		}
	}
	return os.Remove(src)
}

func freeName(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
	}
}

// ExpandArchives expands every embedded archive below each submission
// directory in place and removes it, then repeatedly hoists single wrapper
// directories until the submission content sits directly in the directory.
func ExpandArchives(root string, keys []string) error {
	for _, key := range keys {
		dir := filepath.Join(root, key)
		if err := expandBelow(dir); err != nil {
			return fmt.Errorf("expand archives in %s: %w", key, err)
		}
		if err := hoistSingleWrappers(dir); err != nil {
			return fmt.Errorf("hoist wrappers in %s: %w", key, err)
		}
	}
	return nil
}

func expandBelow(dir string) error {
	for {
		var archives []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && archive.IsArchive(d.Name()) {
				archives = append(archives, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			return nil
		}
		for _, path := range archives {
			log.Debug().Str("archive", path).Msg("expanding embedded archive")
			if err := archive.ExtractFiltered(path, filepath.Dir(path)); err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
}

func hoistSingleWrappers(dir string) error {
	for {
		entries, err := contentEntries(dir)
		if err != nil {
			return err
		}
		if len(entries) != 1 || !entries[0].IsDir() {
			return nil
		}
		if err := archive.MoveContents(filepath.Join(dir, entries[0].Name()), dir); err != nil {
			return err
		}
	}
}
