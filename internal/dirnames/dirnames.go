// Package dirnames parses the identifiers the submission platform encodes
// into directory names. Keeping the string patterns here means the rest of
// the pipeline only ever sees typed, validated values.
package dirnames

import (
	"fmt"
	"regexp"
	"strings"
)

// TeamID is the numeric identifier the platform assigns to a team per
// sheet. It is kept as a string to preserve leading zeros.
type TeamID string

var (
	teamDirPattern = regexp.MustCompile(`^Team (\d+)$`)
	keyPattern     = regexp.MustCompile(`^\d+$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ParseTeamDir extracts the team ID from an original platform directory
// name such as "Team 12345".
func ParseTeamDir(name string) (TeamID, bool) {
	m := teamDirPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return TeamID(m[1]), true
}

// IsKey reports whether name is an already-assigned directory key, i.e. a
// bare team ID left behind by a previous normalization run.
func IsKey(name string) bool {
	return keyPattern.MatchString(name)
}

// ParseUploadDir extracts the uploader's email address from a member upload
// directory name such as "Muster_Hans_hans.muster@unibas.ch_000000". The
// email sits in the second-to-last underscore-separated field.
func ParseUploadDir(name string) (string, error) {
	fields := strings.Split(name, "_")
	if len(fields) < 2 {
		return "", fmt.Errorf("upload directory name %q has no email field", name)
	}
	email := fields[len(fields)-2]
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("upload directory name %q: %q is not an email address", name, email)
	}
	return strings.ToLower(email), nil
}
