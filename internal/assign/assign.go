// Package assign decides which matched teams the current operator has to
// grade. The random policy is a pure function of public inputs, so every
// operator who runs it independently arrives at the same partition without
// any coordination.
package assign

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/marklab/markctl/internal/match"
	"github.com/marklab/markctl/internal/roster"
)

// Kind selects the assignment strategy for a sheet. Exactly one applies
// per sheet; strategies are never mixed.
type Kind string

const (
	// Static reads relevance off the fixed class assignment in the roster
	// configuration.
	Static Kind = "static"
	// Exercise makes every matched team relevant to every operator; the
	// operators split the exercises within each submission instead.
	Exercise Kind = "exercise"
	// Random partitions the matched teams into balanced, seed-derived
	// chunks, one per operator.
	Random Kind = "random"
)

// ErrUnknownOperator means the current operator does not appear in the
// public operator list the random policy partitions over.
var ErrUnknownOperator = errors.New("operator not in operator list")

// Policy carries the strategy and its strategy-specific inputs. Class is
// the current operator's pre-assigned teams (static only). Operators is
// the public, complete operator list (random only). Exercises is the
// exercise-number subset (exercise only, opaque to this package).
type Policy struct {
	Kind      Kind
	Class     []roster.Team
	Operators []string
	Exercises []int
}

// Decide computes the relevance flag for every matched team, exactly once
// per sheet. The result must be persisted before the working tree is
// mutated any further: the random policy depends on the enumeration order
// of the matches, and recomputing from a reshaped tree could silently
// disagree with what other operators derived.
func Decide(sheetName string, matches []match.Match, operator string, pol Policy) (map[string]bool, error) {
	switch pol.Kind {
	case Static:
		return decideStatic(matches, pol.Class), nil
	case Exercise:
		relevant := make(map[string]bool, len(matches))
		for _, m := range matches {
			relevant[m.Key] = true
		}
		return relevant, nil
	case Random:
		return decideRandom(sheetName, matches, operator, pol.Operators)
	default:
		return nil, fmt.Errorf("unsupported assignment policy %q", pol.Kind)
	}
}

func decideStatic(matches []match.Match, class []roster.Team) map[string]bool {
	relevant := make(map[string]bool, len(matches))
	for _, m := range matches {
		relevant[m.Key] = false
		for _, team := range class {
			if m.Team.Equal(team) {
				relevant[m.Key] = true
				break
			}
		}
	}
	return relevant
}

func decideRandom(sheetName string, matches []match.Match, operator string, operators []string) (map[string]bool, error) {
	chunks, err := Partition(sheetName, matches, operators)
	if err != nil {
		return nil, err
	}
	mine, ok := chunks[operator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}
	relevant := make(map[string]bool, len(matches))
	for _, m := range matches {
		relevant[m.Key] = false
	}
	for _, key := range mine {
		relevant[key] = true
	}
	return relevant, nil
}

// Partition splits the matched teams across all operators under the
// seeded two-sided shuffle. Both the team list and the operator list are
// sorted before shuffling so the outcome never depends on config-file or
// directory-listing order. Returns directory keys per operator.
func Partition(sheetName string, matches []match.Match, operators []string) (map[string][]string, error) {
	if len(operators) == 0 {
		return nil, errors.New("random policy needs at least one operator")
	}

	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.Key
	}
	sort.Strings(keys)

	ops := make([]string, len(operators))
	copy(ops, operators)
	sort.Strings(ops)

	seed := Seed(sheetName)
	shuffle(seed, keys)
	shuffle(seed, ops)

	chunks := make(map[string][]string, len(ops))
	base := len(keys) / len(ops)
	rem := len(keys) % len(ops)
	next := 0
	for i, op := range ops {
		size := base
		if i < rem {
			size++
		}
		chunks[op] = keys[next : next+size]
		next += size
	}
	return chunks, nil
}

// Seed derives the shared deterministic seed from the sheet display name.
// Never time-based: the name is the only input, so every operator derives
// the same value.
func Seed(sheetName string) int64 {
	sum := sha256.Sum256([]byte(sheetName))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// shuffle runs a Fisher-Yates pass with a fresh PRNG so both shuffles in
// Partition consume an identical stream.
func shuffle(seed int64, items []string) {
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
