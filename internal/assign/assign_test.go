package assign

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marklab/markctl/internal/match"
	"github.com/marklab/markctl/internal/roster"
)

func teamOf(emails ...string) roster.Team {
	members := make([]roster.Student, len(emails))
	for i, email := range emails {
		members[i] = roster.Student{FirstName: "F", LastName: "L", Email: email}
	}
	return roster.Team{Members: members}
}

func matchesOf(n int) []match.Match {
	matches := make([]match.Match, n)
	for i := range matches {
		key := fmt.Sprintf("%05d", i+1)
		matches[i] = match.Match{
			Key:  key,
			Team: teamOf(fmt.Sprintf("student%d@unibas.ch", i+1)).WithID(key),
		}
	}
	return matches
}

func TestPartitionDeterminism(t *testing.T) {
	matches := matchesOf(17)
	operators := []string{"tam", "ter", "tim"}

	first, err := Partition("Exercise Sheet 4", matches, operators)
	require.NoError(t, err)
	second, err := Partition("Exercise Sheet 4", matches, operators)
	require.NoError(t, err)
	require.Equal(t, first, second, "identical inputs must give identical partitions")
}

func TestPartitionIgnoresInputOrder(t *testing.T) {
	matches := matchesOf(9)
	reversed := make([]match.Match, len(matches))
	for i, m := range matches {
		reversed[len(matches)-1-i] = m
	}

	a, err := Partition("Sheet 1", matches, []string{"tam", "ter"})
	require.NoError(t, err)
	b, err := Partition("Sheet 1", reversed, []string{"ter", "tam"})
	require.NoError(t, err)
	require.Equal(t, a, b, "partition must not depend on enumeration order")
}

func TestPartitionBalanceAndCover(t *testing.T) {
	for _, teams := range []int{1, 2, 7, 20, 23} {
		for _, ops := range []int{1, 2, 3, 5} {
			matches := matchesOf(teams)
			operators := make([]string, ops)
			for i := range operators {
				operators[i] = fmt.Sprintf("op%d", i+1)
			}
			chunks, err := Partition("Exercise Sheet 9", matches, operators)
			require.NoError(t, err)
			require.Len(t, chunks, ops)

			seen := make(map[string]string)
			min, max := teams, 0
			for op, keys := range chunks {
				if len(keys) < min {
					min = len(keys)
				}
				if len(keys) > max {
					max = len(keys)
				}
				for _, key := range keys {
					require.NotContains(t, seen, key, "key %s assigned to both %s and %s", key, seen[key], op)
					seen[key] = op
				}
			}
			require.Len(t, seen, teams, "every matched team must be covered")
			require.LessOrEqual(t, max-min, 1, "chunk sizes may differ by at most one (%d teams, %d operators)", teams, ops)
		}
	}
}

func TestPartitionSeedVariesWithSheetName(t *testing.T) {
	require.NotEqual(t, Seed("Exercise Sheet 1"), Seed("Exercise Sheet 2"))
}

func TestDecideRandomScenario(t *testing.T) {
	// 4 matched teams, 2 operators: both strides must have size 2, and the
	// decision for "tam" must be reproducible across independent runs.
	matches := matchesOf(4)
	pol := Policy{Kind: Random, Operators: []string{"tam", "ter"}}

	tam1, err := Decide("Exercise Sheet 7", matches, "tam", pol)
	require.NoError(t, err)
	tam2, err := Decide("Exercise Sheet 7", matches, "tam", pol)
	require.NoError(t, err)
	require.Equal(t, tam1, tam2)

	ter, err := Decide("Exercise Sheet 7", matches, "ter", pol)
	require.NoError(t, err)

	count := func(m map[string]bool) int {
		n := 0
		for _, rel := range m {
			if rel {
				n++
			}
		}
		return n
	}
	require.Equal(t, 2, count(tam1))
	require.Equal(t, 2, count(ter))
	for key := range tam1 {
		require.NotEqual(t, tam1[key], ter[key], "key %s must belong to exactly one operator", key)
	}
}

func TestDecideRandomUnknownOperator(t *testing.T) {
	_, err := Decide("Sheet", matchesOf(3), "ghost", Policy{Kind: Random, Operators: []string{"tam", "ter"}})
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestDecideStatic(t *testing.T) {
	matches := matchesOf(3)
	class := []roster.Team{teamOf("student2@unibas.ch")}

	relevant, err := Decide("Sheet", matches, "tam", Policy{Kind: Static, Class: class})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	want := map[string]bool{"00001": false, "00002": true, "00003": false}
	if !reflect.DeepEqual(relevant, want) {
		t.Fatalf("unexpected decision: %v", relevant)
	}
}

func TestDecideStaticIgnoresClassMemberOrder(t *testing.T) {
	matches := []match.Match{{
		Key:  "00001",
		Team: teamOf("a@unibas.ch", "b@unibas.ch").WithID("00001"),
	}}
	// The class list is hand-written and may spell the team in any order.
	class := []roster.Team{teamOf("b@unibas.ch", "a@unibas.ch")}

	relevant, err := Decide("Sheet", matches, "tam", Policy{Kind: Static, Class: class})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if !relevant["00001"] {
		t.Fatalf("member order in the class list must not affect relevance: %v", relevant)
	}
}

func TestDecideExercise(t *testing.T) {
	matches := matchesOf(3)
	relevant, err := Decide("Sheet", matches, "tam", Policy{Kind: Exercise, Exercises: []int{1, 3}})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	for key, rel := range relevant {
		if !rel {
			t.Fatalf("team %s must be relevant under the exercise policy", key)
		}
	}
	if len(relevant) != 3 {
		t.Fatalf("unexpected decision size: %d", len(relevant))
	}
}

func TestDecideUnsupportedPolicy(t *testing.T) {
	if _, err := Decide("Sheet", matchesOf(1), "tam", Policy{Kind: "roulette"}); err == nil {
		t.Fatalf("expected error for unsupported policy")
	}
}
