// Package match resolves each submission directory to exactly one roster
// team, using the uploader email encoded in the member upload directory
// names. Matching must run before flattening removes those names.
package match

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marklab/markctl/internal/dirnames"
	"github.com/marklab/markctl/internal/logging"
	"github.com/marklab/markctl/internal/roster"
)

// ErrUnknownStudent means a submission was uploaded by a student the
// roster does not know. The roster has to be refreshed before retrying.
var ErrUnknownStudent = errors.New("student not found in roster")

// Match ties a submission directory key to the roster team that produced
// it. The team carries the key as its platform ID.
type Match struct {
	Key  string
	Team roster.Team
}

// All matches every keyed submission directory under root against the
// roster. Keys are processed in sorted order so the result ordering is
// identical on every machine. A team showing up under two different keys
// is recorded as a warning, never merged.
func All(root string, keys []string, ros roster.Roster, warns *logging.Collector) ([]Match, error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	matches := make([]Match, 0, len(sorted))
	seen := make(map[string]string) // team fingerprint -> first key
	for _, key := range sorted {
		email, err := uploaderEmail(filepath.Join(root, key))
		if err != nil {
			return nil, err
		}
		team, ok := ros.ByEmail(email)
		if !ok {
			return nil, fmt.Errorf(
				"%w: %q uploaded submission %s; update the roster and share it "+
					"with the other operators before retrying",
				ErrUnknownStudent, email, key,
			)
		}
		fp := team.Fingerprint()
		if firstKey, dup := seen[fp]; dup {
			warns.Warnf(
				"there are multiple submissions for team %q under separate ids (%s and %s); "+
					"they have to be combined manually",
				team.LastNames(), firstKey, key,
			)
		} else {
			seen[fp] = key
		}
		matches = append(matches, Match{Key: key, Team: team.WithID(key)})
		log.Debug().Str("key", key).Str("team", team.LastNames()).Msg("matched submission")
	}
	return matches, nil
}

// uploaderEmail finds one member upload directory inside the submission
// directory and returns the email encoded in its name.
func uploaderEmail(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var parseErr error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		email, err := dirnames.ParseUploadDir(entry.Name())
		if err != nil {
			parseErr = err
			continue
		}
		return email, nil
	}
	if parseErr != nil {
		return "", fmt.Errorf("submission %s: %w", filepath.Base(dir), parseErr)
	}
	return "", fmt.Errorf("submission %s holds no member upload directory", filepath.Base(dir))
}

// Missing lists the roster teams without any matched submission. This is a
// visibility report, not an error.
func Missing(ros roster.Roster, matches []Match) []roster.Team {
	matched := make(map[string]bool, len(matches))
	for _, m := range matches {
		matched[m.Team.Fingerprint()] = true
	}
	var missing []roster.Team
	for _, team := range ros.Teams {
		if !matched[team.Fingerprint()] {
			missing = append(missing, team)
		}
	}
	return missing
}

// ReportMissing logs the missing-submission list as one consolidated
// warning.
func ReportMissing(missing []roster.Team, warns *logging.Collector) {
	if len(missing) == 0 {
		return
	}
	names := make([]string, len(missing))
	for i, team := range missing {
		names[i] = team.LastNames()
	}
	warns.Warnf("there are no submissions for the following team(s): %s", strings.Join(names, ", "))
}
