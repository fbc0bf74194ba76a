package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/marklab/markctl/internal/assign"
	"github.com/marklab/markctl/internal/extract"
	"github.com/marklab/markctl/internal/lockfile"
	"github.com/marklab/markctl/internal/logging"
	"github.com/marklab/markctl/internal/match"
	"github.com/marklab/markctl/internal/normalize"
	"github.com/marklab/markctl/internal/roster"
	"github.com/marklab/markctl/internal/scaffold"
	"github.com/marklab/markctl/internal/sheetstate"
)

// Env carries everything a run needs. It is threaded explicitly through
// every stage; no stage reads ambient configuration or terminates the
// process on its own.
type Env struct {
	// Operator is the staff member running this pipeline.
	Operator string
	// Policy selects the assignment strategy and its inputs.
	Policy assign.Policy
	// Roster is the validated team list, supplied by the config layer.
	Roster roster.Roster
	// Source is the platform archive, or an already extracted copy of it.
	Source string
	// Destination overrides the working root name; empty means the sheet
	// display name from the archive.
	Destination string
}

// Result reports what a completed run produced and decided, plus the
// consolidated warning list for the operator to act on.
type Result struct {
	Root      string
	SheetName string
	Matches   []match.Match
	Relevant  map[string]bool
	Warnings  []string
}

func (e Env) validate() error {
	if e.Operator == "" {
		return errors.New("pipeline env: operator is required")
	}
	if e.Source == "" {
		return errors.New("pipeline env: source is required")
	}
	if len(e.Roster.Teams) == 0 {
		return errors.New("pipeline env: roster is empty")
	}
	switch e.Policy.Kind {
	case assign.Static, assign.Exercise, assign.Random:
		return nil
	default:
		return fmt.Errorf("pipeline env: unsupported policy %q", e.Policy.Kind)
	}
}

// Run executes the whole ingestion and assignment pipeline. Hard errors
// abort before any sheet metadata is written; per-submission issues are
// collected and reported together once the run completes.
func Run(env Env) (*Result, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	warns := logging.NewCollector()

	root, sheetName, err := extract.Extract(env.Source, env.Destination, warns)
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.Acquire(root)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	result, err := run(root, sheetName, env, warns)
	if err != nil {
		return nil, err
	}
	warns.Report()
	return result, nil
}

func run(root, sheetName string, env Env, warns *logging.Collector) (*Result, error) {
	keys, err := normalize.AssignKeys(root)
	if err != nil {
		return nil, err
	}
	log.Info().Int("submissions", len(keys)).Msg("assigned directory keys")

	// Matching has to happen before flattening: the uploader emails live
	// in the member upload directory names that flattening removes.
	matches, err := match.All(root, keys, env.Roster, warns)
	if err != nil {
		return nil, err
	}
	match.ReportMissing(match.Missing(env.Roster, matches), warns)

	if err := normalize.Flatten(root, keys, warns); err != nil {
		return nil, err
	}
	if err := normalize.ExpandArchives(root, keys); err != nil {
		return nil, err
	}

	// Decided exactly once, then persisted before anything renames or
	// reorders the tree. A recomputation from a mutated tree could
	// silently diverge from what the other operators derived.
	relevant, err := assign.Decide(sheetName, matches, env.Operator, env.Policy)
	if err != nil {
		return nil, err
	}
	if err := persist(root, sheetName, matches, relevant, env.Policy); err != nil {
		return nil, err
	}

	if err := finishTree(root, sheetName, matches, relevant, env); err != nil {
		return nil, err
	}

	log.Info().
		Str("sheet", sheetName).
		Int("matched", len(matches)).
		Int("relevant", countRelevant(relevant)).
		Msg("pipeline complete")
	return &Result{
		Root:      root,
		SheetName: sheetName,
		Matches:   matches,
		Relevant:  relevant,
		Warnings:  warns.Warnings(),
	}, nil
}

func persist(root, sheetName string, matches []match.Match, relevant map[string]bool, pol assign.Policy) error {
	sheet := sheetstate.Sheet{Name: sheetName}
	if pol.Kind == assign.Exercise {
		sheet.Exercises = pol.Exercises
	}
	if err := sheetstate.WriteSheet(root, sheet); err != nil {
		return err
	}
	for _, m := range matches {
		dir := filepath.Join(root, m.Key)
		if err := sheetstate.WriteSubmission(dir, m.Team, relevant[m.Key]); err != nil {
			return err
		}
	}
	return nil
}

func finishTree(root, sheetName string, matches []match.Match, relevant map[string]bool, env Env) error {
	if err := scaffold.MarkIrrelevant(root, relevant); err != nil {
		return err
	}
	if err := scaffold.WriteMarksFile(root, sheetName, env.Operator, matches, relevant, env.Policy.Exercises); err != nil {
		return err
	}
	feedbackName := scaffold.FeedbackFileName(sheetName, env.Operator, env.Policy)
	return scaffold.CreateFeedbackDirs(root, feedbackName, relevant)
}

func countRelevant(relevant map[string]bool) int {
	n := 0
	for _, rel := range relevant {
		if rel {
			n++
		}
	}
	return n
}
