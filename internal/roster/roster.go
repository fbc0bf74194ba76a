package roster

import (
	"sort"
	"strings"
)

// Student identity is the email address. Names are only used for display
// strings and feedback file names.
type Student struct {
	FirstName string
	LastName  string
	Email     string
}

// Team is an ordered (by email) set of students. ID is the identifier the
// submission platform assigns per sheet; it is empty for roster entries and
// set once a submission directory has been matched.
type Team struct {
	Members []Student
	ID      string
}

// Roster holds the teams as declared by the course staff. It arrives
// pre-validated: teams are disjoint and emails are unique. Construction via
// New lowercases emails and sorts members and teams so neither lookups nor
// iteration order depend on how the config file spells things.
type Roster struct {
	Teams []Team
}

func New(teams []Team) Roster {
	sorted := make([]Team, len(teams))
	copy(sorted, teams)
	for i := range sorted {
		sorted[i] = normalized(sorted[i])
	}
	sort.Slice(sorted, func(i, j int) bool {
		return teamLess(sorted[i], sorted[j])
	})
	return Roster{Teams: sorted}
}

func normalized(t Team) Team {
	members := make([]Student, len(t.Members))
	copy(members, t.Members)
	for i := range members {
		members[i].Email = strings.ToLower(members[i].Email)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Email < members[j].Email
	})
	return Team{Members: members, ID: t.ID}
}

func teamLess(a, b Team) bool {
	for i := 0; i < len(a.Members) && i < len(b.Members); i++ {
		if a.Members[i].Email != b.Members[i].Email {
			return a.Members[i].Email < b.Members[i].Email
		}
	}
	return len(a.Members) < len(b.Members)
}

// ByEmail returns the team containing a student with the given email.
// Email addresses compare case-insensitively.
func (r Roster) ByEmail(email string) (Team, bool) {
	for _, team := range r.Teams {
		for _, member := range team.Members {
			if strings.EqualFold(member.Email, email) {
				return team, true
			}
		}
	}
	return Team{}, false
}

// Equal compares by member emails, the identity key. Member order, email
// case and the platform ID are ignored so a matched team still equals its
// entry in any hand-written team list.
func (t Team) Equal(other Team) bool {
	return t.Fingerprint() == other.Fingerprint()
}

func (t Team) Emails() []string {
	emails := make([]string, len(t.Members))
	for i, member := range t.Members {
		emails[i] = member.Email
	}
	return emails
}

// Fingerprint is a stable string identity for a team, built from the sorted
// lowercased member emails.
func (t Team) Fingerprint() string {
	emails := t.Emails()
	for i := range emails {
		emails[i] = strings.ToLower(emails[i])
	}
	sort.Strings(emails)
	return strings.Join(emails, ",")
}

// LastNames concatenates the sorted last names, spaces replaced by dashes.
// Used in warnings and as the readable part of the team key.
func (t Team) LastNames() string {
	names := make([]string, len(t.Members))
	for i, member := range t.Members {
		names[i] = strings.ReplaceAll(member.LastName, " ", "-")
	}
	sort.Strings(names)
	return strings.Join(names, "_")
}

// Key is the string form used for marks files and final directory names:
// <platform id>_<LastName1_LastName2...>.
func (t Team) Key() string {
	return t.ID + "_" + t.LastNames()
}

func (t Team) WithID(id string) Team {
	return Team{Members: t.Members, ID: id}
}
