// Package extract turns an uploaded platform archive, or an already
// extracted copy of one, into a fresh working root holding the submission
// directories directly.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marklab/markctl/internal/archive"
	"github.com/marklab/markctl/internal/logging"
)

var (
	// ErrDestinationExists means the working root would overwrite an
	// existing path. Extraction never overwrites.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrUnexpectedArchiveShape means the archive root did not contain
	// exactly one wrapper directory.
	ErrUnexpectedArchiveShape = errors.New("unexpected archive shape")
)

// expectedWrapperLabels are the wrapper directory names the platform has
// used so far. Anything else is tolerated with a warning because the export
// format drifts over time.
var expectedWrapperLabels = []string{"Abgaben", "Submissions"}

// Extract unpacks src (an archive file or an extracted directory) into a
// working root named destination, or after the sheet if destination is
// empty. The single wrapper directory inside is peeled so the root holds
// the submission directories directly. Returns the root path and the sheet
// display name taken from the archive.
func Extract(src, destination string, warns *logging.Collector) (string, string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", "", fmt.Errorf("stat source %s: %w", src, err)
	}

	staging, err := os.MkdirTemp(parentDir(destination), ".markctl-extract-*")
	if err != nil {
		return "", "", fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	var sheetName string
	if info.IsDir() {
		sheetName = filepath.Base(filepath.Clean(src))
		log.Info().Str("source", src).Msg("adopting extracted directory")
		if err := archive.CopyTree(src, filepath.Join(staging, sheetName)); err != nil {
			return "", "", fmt.Errorf("copy extracted directory: %w", err)
		}
	} else {
		log.Info().Str("source", src).Msg("extracting archive")
		if err := archive.ExtractFiltered(src, staging); err != nil {
			return "", "", err
		}
		sheetName, err = singleEntryName(staging)
		if err != nil {
			return "", "", err
		}
	}

	root := destination
	if root == "" {
		root = sheetName
	}
	if _, err := os.Stat(root); err == nil {
		return "", "", fmt.Errorf("%w: %s", ErrDestinationExists, root)
	}
	if err := os.Rename(filepath.Join(staging, sheetName), root); err != nil {
		return "", "", fmt.Errorf("move working root into place: %w", err)
	}

	if err := peelWrapper(root, warns); err != nil {
		return "", "", err
	}
	log.Info().Str("root", root).Str("sheet", sheetName).Msg("working root ready")
	return root, sheetName, nil
}

// peelWrapper hoists the contents of the single wrapper directory into the
// root. Spreadsheet files that some exports place next to the wrapper are
// ignored when counting, matching the upstream export quirk.
func peelWrapper(root string, warns *logging.Collector) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	var candidates []os.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".xlsx") {
			continue
		}
		candidates = append(candidates, entry)
	}
	if len(candidates) != 1 || !candidates[0].IsDir() {
		return fmt.Errorf(
			"%w: expected exactly one wrapper directory under %s, found %d entries",
			ErrUnexpectedArchiveShape, root, len(candidates),
		)
	}
	wrapper := candidates[0].Name()
	if !isExpectedWrapper(wrapper) {
		warns.Warnf(
			"wrapper directory is named %q instead of one of %v; "+
				"the platform export format may have changed, continuing anyway",
			wrapper, expectedWrapperLabels,
		)
	}
	return archive.MoveContents(filepath.Join(root, wrapper), root)
}

func isExpectedWrapper(name string) bool {
	for _, label := range expectedWrapperLabels {
		if name == label {
			return true
		}
	}
	return false
}

func singleEntryName(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", fmt.Errorf(
			"%w: archive root holds %d entries, expected one directory",
			ErrUnexpectedArchiveShape, len(entries),
		)
	}
	return entries[0].Name(), nil
}

func parentDir(destination string) string {
	if destination == "" {
		return "."
	}
	return filepath.Dir(filepath.Clean(destination))
}
