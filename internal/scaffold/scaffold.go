// Package scaffold prepares the working tree for grading once the
// assignment decision is recorded: it labels directories the operator does
// not grade, writes the marks file skeleton and sets up feedback
// directories.
package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marklab/markctl/internal/assign"
	"github.com/marklab/markctl/internal/match"
	"github.com/marklab/markctl/internal/sheetstate"
)

const (
	DoNotMarkPrefix = "DO_NOT_MARK_"
	FeedbackDirName = "feedback"

	feedbackFilePrefix = "feedback_"
	marksFilePrefix    = "points_"
)

// SheetFileString turns the sheet display name into a string usable in
// file names.
func SheetFileString(sheetName string) string {
	return strings.ToLower(strings.ReplaceAll(sheetName, " ", "_"))
}

// MarkIrrelevant renames every directory the operator does not have to
// grade, so follow-up commands can enumerate relevant teams off the tree
// without recomputing the decision.
func MarkIrrelevant(root string, relevant map[string]bool) error {
	for key, rel := range relevant {
		if rel {
			continue
		}
		from := filepath.Join(root, key)
		to := filepath.Join(root, DoNotMarkPrefix+key)
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("mark %s as not to grade: %w", key, err)
		}
	}
	return nil
}

// FeedbackFileName builds the base name for feedback artifacts. Under the
// exercise policy it carries the operator and exercise numbers, since every
// team receives feedback from several operators.
func FeedbackFileName(sheetName, operator string, pol assign.Policy) string {
	name := feedbackFilePrefix + SheetFileString(sheetName)
	if pol.Kind != assign.Exercise {
		return name
	}
	name += "_" + operator
	for _, num := range pol.Exercises {
		name += fmt.Sprintf("_ex%d", num)
	}
	return name
}

// MarksFilePath is where the operator's marks skeleton lives.
func MarksFilePath(root, sheetName, operator string) string {
	file := fmt.Sprintf("%s%s_%s.json", marksFilePrefix, strings.ToLower(operator), SheetFileString(sheetName))
	return filepath.Join(root, file)
}

// WriteMarksFile writes the skeleton the operator fills in while grading:
// one entry per relevant team, keyed by team key, with per-exercise
// sub-entries when exercises are marked individually.
func WriteMarksFile(root, sheetName, operator string, matches []match.Match, relevant map[string]bool, exercises []int) error {
	var perTeam any = ""
	if len(exercises) > 0 {
		exerciseMap := make(map[string]string, len(exercises))
		for _, num := range exercises {
			exerciseMap[fmt.Sprintf("exercise_%d", num)] = ""
		}
		perTeam = exerciseMap
	}

	marks := make(map[string]any)
	for _, m := range sortedByKey(matches) {
		if relevant[m.Key] {
			marks[m.Team.Key()] = perTeam
		}
	}
	path := MarksFilePath(root, sheetName, operator)
	log.Info().Str("path", path).Msg("writing marks file")
	return writeJSON(path, marks)
}

// CreateFeedbackDirs creates a feedback directory per relevant team with a
// placeholder for the feedback PDF and prefixed copies of the non-PDF
// submission files, so feedback can be written into the copies directly.
func CreateFeedbackDirs(root, feedbackName string, relevant map[string]bool) error {
	for key, rel := range relevant {
		if !rel {
			continue
		}
		teamDir := filepath.Join(root, key)
		feedbackDir := filepath.Join(teamDir, FeedbackDirName)
		if err := os.Mkdir(feedbackDir, 0o755); err != nil {
			return fmt.Errorf("create feedback directory for %s: %w", key, err)
		}
		placeholder := filepath.Join(feedbackDir, feedbackName+".pdf.todo")
		if err := touch(placeholder); err != nil {
			return err
		}
		if err := copySubmissionFiles(teamDir, feedbackDir, feedbackName); err != nil {
			return err
		}
	}
	return nil
}

func copySubmissionFiles(teamDir, feedbackDir, feedbackName string) error {
	entries, err := os.ReadDir(teamDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == sheetstate.SubmissionFileName ||
			strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		src := filepath.Join(teamDir, name)
		dst := filepath.Join(feedbackDir, feedbackName+"_"+name)
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func sortedByKey(matches []match.Match) []match.Match {
	sorted := make([]match.Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
