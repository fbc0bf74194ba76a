// Package sheetstate persists the outcome of a pipeline run: the sheet
// record in the working root and one submission record per team directory.
// Later commands only ever read these records; nothing downstream
// recomputes matching or assignment.
package sheetstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marklab/markctl/internal/roster"
)

const (
	SheetFileName      = "sheet.json"
	SubmissionFileName = "submission.json"
)

// ErrCorruptMetadata means a persisted record failed to load or validate.
// Readers see either a complete, schema-valid record or this error.
var ErrCorruptMetadata = errors.New("corrupt sheet metadata")

// Sheet is the root record. Exercises is only present under the exercise
// policy. Field names are the wire format consumed by the follow-up
// commands.
type Sheet struct {
	Name      string `json:"adam_sheet_name"`
	Exercises []int  `json:"exercises,omitempty"`
}

// submissionRecord is the per-team wire format: member triples, the
// platform id, and the relevance decision for the operator who ran the
// pipeline.
type submissionRecord struct {
	Team     [][3]string `json:"team"`
	AdamID   string      `json:"adam_id"`
	Relevant bool        `json:"relevant"`
}

// WriteSheet atomically writes the sheet record into root.
func WriteSheet(root string, sheet Sheet) error {
	if sheet.Name == "" {
		return fmt.Errorf("%w: refusing to write sheet record without a name", ErrCorruptMetadata)
	}
	return writeJSON(filepath.Join(root, SheetFileName), sheet)
}

// LoadSheet reads and validates the sheet record of a working root.
func LoadSheet(root string) (Sheet, error) {
	var sheet Sheet
	if err := readJSON(filepath.Join(root, SheetFileName), &sheet); err != nil {
		return Sheet{}, err
	}
	if sheet.Name == "" {
		return Sheet{}, fmt.Errorf("%w: sheet record in %s has no name", ErrCorruptMetadata, root)
	}
	return sheet, nil
}

// WriteSubmission atomically writes the record for one team directory.
func WriteSubmission(dir string, team roster.Team, relevant bool) error {
	rec := submissionRecord{
		Team:     make([][3]string, len(team.Members)),
		AdamID:   team.ID,
		Relevant: relevant,
	}
	for i, member := range team.Members {
		rec.Team[i] = [3]string{member.FirstName, member.LastName, member.Email}
	}
	if rec.AdamID == "" {
		return fmt.Errorf("%w: refusing to write submission record without a team id", ErrCorruptMetadata)
	}
	return writeJSON(filepath.Join(dir, SubmissionFileName), rec)
}

// LoadSubmission reads and validates one team directory's record.
func LoadSubmission(dir string) (roster.Team, bool, error) {
	var rec submissionRecord
	if err := readJSON(filepath.Join(dir, SubmissionFileName), &rec); err != nil {
		return roster.Team{}, false, err
	}
	if rec.AdamID == "" || len(rec.Team) == 0 {
		return roster.Team{}, false, fmt.Errorf("%w: submission record in %s is incomplete", ErrCorruptMetadata, dir)
	}
	team := roster.Team{ID: rec.AdamID, Members: make([]roster.Student, len(rec.Team))}
	for i, tuple := range rec.Team {
		if tuple[2] == "" {
			return roster.Team{}, false, fmt.Errorf("%w: submission record in %s has a member without an email", ErrCorruptMetadata, dir)
		}
		team.Members[i] = roster.Student{FirstName: tuple[0], LastName: tuple[1], Email: tuple[2]}
	}
	return team, rec.Relevant, nil
}

// writeJSON writes v to path through a temp file in the same directory and
// a rename, so readers never observe a partially written record.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", ErrCorruptMetadata, path)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptMetadata, path, err)
	}
	return nil
}
