package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TeamKey addresses a team by (group, team) index within a template.
// Both indexes are 0-based.
type TeamKey struct {
	Group int `json:"group"`
	Team  int `json:"team"`
}

// String renders the key in the "<group>_<team>" placeholder form.
func (k TeamKey) String() string {
	return fmt.Sprintf("%d_%d", k.Group, k.Team)
}

// Less orders keys by group, then team.
func (k TeamKey) Less(o TeamKey) bool {
	if k.Group != o.Group {
		return k.Group < o.Group
	}
	return k.Team < o.Team
}

// MarshalText implements encoding.TextMarshaler so TeamKey can key JSON maps.
func (k TeamKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TeamKey) UnmarshalText(b []byte) error {
	parsed, err := ParseTeamKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

var teamKeyPattern = regexp.MustCompile(`^(\d+)_(\d+)$`)

// ParseTeamKey parses "<group>_<team>".
func ParseTeamKey(s string) (TeamKey, error) {
	m := teamKeyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TeamKey{}, fmt.Errorf("invalid team key %q, expected \"<group>_<team>\"", s)
	}
	group, err := strconv.Atoi(m[1])
	if err != nil {
		return TeamKey{}, fmt.Errorf("invalid group in team key %q: %w", s, err)
	}
	team, err := strconv.Atoi(m[2])
	if err != nil {
		return TeamKey{}, fmt.Errorf("invalid team in team key %q: %w", s, err)
	}
	return TeamKey{Group: group, Team: team}, nil
}

type refKind uint8

const (
	refNone refKind = iota
	refIndexed
	refNamed
)

// TeamRef is a placeholder for one role of a slot.
//
// It is exactly one of:
//   - None: the role is not used (only valid for officials)
//   - Indexed: resolved at apply time through the team mapping
//   - Named: free text, resolved later by the bracket engine
type TeamRef struct {
	kind refKind
	key  TeamKey
	name string
}

// Indexed returns an indexed placeholder.
func Indexed(group, team int) TeamRef {
	return TeamRef{kind: refIndexed, key: TeamKey{Group: group, Team: team}}
}

// Named returns a named placeholder. An empty name yields None.
func Named(name string) TeamRef {
	name = NormalizeLabel(name)
	if name == "" {
		return TeamRef{}
	}
	return TeamRef{kind: refNamed, name: name}
}

// ParseTeamRef interprets a raw placeholder string.
// "0_1" is indexed, any other non-empty text is named, "" is None.
func ParseTeamRef(s string) TeamRef {
	if k, err := ParseTeamKey(s); err == nil {
		return TeamRef{kind: refIndexed, key: k}
	}
	return Named(s)
}

func (r TeamRef) IsNone() bool    { return r.kind == refNone }
func (r TeamRef) IsIndexed() bool { return r.kind == refIndexed }
func (r TeamRef) IsNamed() bool   { return r.kind == refNamed }

// Key returns the index pair and whether the ref is indexed.
func (r TeamRef) Key() (TeamKey, bool) {
	return r.key, r.kind == refIndexed
}

// Name returns the free text and whether the ref is named.
func (r TeamRef) Name() (string, bool) {
	return r.name, r.kind == refNamed
}

// String renders the ref in seed form.
func (r TeamRef) String() string {
	switch r.kind {
	case refIndexed:
		return r.key.String()
	case refNamed:
		return r.name
	default:
		return ""
	}
}

// Equal reports whether two refs denote the same placeholder.
func (r TeamRef) Equal(o TeamRef) bool {
	return r.kind == o.kind && r.key == o.key && r.name == o.name
}

// MarshalText renders the seed form.
func (r TeamRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the seed form.
func (r *TeamRef) UnmarshalText(b []byte) error {
	*r = ParseTeamRef(string(b))
	return nil
}
