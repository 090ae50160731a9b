// Package validator performs static checks over a template before it may be
// applied to a gameday.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/standings"
)

// Validation error codes (E200-E299)
const (
	ErrTemplateHeader     = "E200" // counts or duration invalid, no slots
	ErrTeamCountMismatch  = "E201" // distinct indexed placeholders != num_teams
	ErrSimultaneousRole   = "E202" // team used twice in simultaneous slots
	ErrDanglingStanding   = "E203" // rule references a standing no slot carries
	ErrCircularDependency = "E204" // stage dependency cycle
	ErrFieldOutOfRange    = "E205" // field not in 1..num_fields
	ErrGroupOutOfRange    = "E206" // group index >= num_groups
	ErrTeamOutOfRange     = "E207" // team index >= num_teams
	ErrSelfPlay           = "E208" // home == away
	ErrSelfOfficiate      = "E209" // official is home or away
	ErrMissingPlaceholder = "E210" // home or away not set
	ErrRuleBinding        = "E211" // rule on unknown slot or second rule on a slot
	ErrDuplicateRuleRole  = "E212" // two recipes for the same role
	ErrInvalidPlace       = "E213" // place < 1 or advancement < 0
	ErrUnknownTieBreaker  = "E214" // tie policy names an unknown tie-breaker
)

// Validation warning codes (W300-W399)
const (
	WarnStandingReused    = "W301" // standing label shared by several slots
	WarnPlayThenOfficiate = "W302" // back-to-back play then officiate
)

// Issue is a single validation finding.
type Issue struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	SlotIDs []int64 `json:"affected_slot_ids,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if len(i.SlotIDs) > 0 {
		ids := make([]string, len(i.SlotIDs))
		for n, id := range i.SlotIDs {
			ids[n] = fmt.Sprintf("%d", id)
		}
		return fmt.Sprintf("[%s] %s (slots %s)", i.Code, i.Message, strings.Join(ids, ","))
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// Report holds every finding for one template.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the template has no blocking errors.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// HasCode reports whether any error or warning carries code.
func (r Report) HasCode(code string) bool {
	for _, i := range r.Errors {
		if i.Code == code {
			return true
		}
	}
	for _, i := range r.Warnings {
		if i.Code == code {
			return true
		}
	}
	return false
}

// Validate runs every check over the template.
// Returns all findings (does not fail-fast) in deterministic order.
func Validate(t *model.Template) Report {
	v := &validation{tmpl: t, slots: t.SortedSlots()}

	v.checkHeader()
	v.checkTies()
	for _, s := range v.slots {
		v.checkSlot(s)
	}
	v.checkTeamCount()
	v.checkSimultaneous()
	v.checkRules()
	v.checkCycles()
	v.warnStandingReuse()
	v.warnPlayThenOfficiate()

	if v.report.Errors == nil {
		v.report.Errors = []Issue{}
	}
	if v.report.Warnings == nil {
		v.report.Warnings = []Issue{}
	}
	return v.report
}

type validation struct {
	tmpl   *model.Template
	slots  []model.Slot
	report Report
}

func (v *validation) errorf(code string, slotIDs []int64, format string, args ...any) {
	v.report.Errors = append(v.report.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...), SlotIDs: slotIDs})
}

func (v *validation) warnf(code string, slotIDs []int64, format string, args ...any) {
	v.report.Warnings = append(v.report.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...), SlotIDs: slotIDs})
}

// checkHeader validates the declared counts.
func (v *validation) checkHeader() {
	t := v.tmpl
	if t.NumTeams < 1 {
		v.errorf(ErrTemplateHeader, nil, "num_teams must be at least 1, got %d", t.NumTeams)
	}
	if t.NumFields < 1 {
		v.errorf(ErrTemplateHeader, nil, "num_fields must be at least 1, got %d", t.NumFields)
	}
	if t.NumGroups < 1 {
		v.errorf(ErrTemplateHeader, nil, "num_groups must be at least 1, got %d", t.NumGroups)
	}
	if t.GameDuration < 1 {
		v.errorf(ErrTemplateHeader, nil, "game_duration must be at least 1 minute, got %d", t.GameDuration)
	}
	if len(t.Slots) == 0 {
		v.errorf(ErrTemplateHeader, nil, "template has no slots")
	}
}

func (v *validation) checkTies() {
	if v.tmpl.Ties == nil {
		return
	}
	for _, name := range v.tmpl.Ties.TieBreakers {
		if _, ok := standings.ByName(name); !ok {
			v.errorf(ErrUnknownTieBreaker, nil, "unknown tie-breaker %q", name)
		}
	}
}

// checkSlot validates bounds, placeholders, self-play and self-officiating.
func (v *validation) checkSlot(s model.Slot) {
	t := v.tmpl
	ids := []int64{s.ID}

	if s.Home.IsNone() {
		v.errorf(ErrMissingPlaceholder, ids, "slot %d has no home placeholder", s.ID)
	}
	if s.Away.IsNone() {
		v.errorf(ErrMissingPlaceholder, ids, "slot %d has no away placeholder", s.ID)
	}
	if s.Field < 1 || s.Field > t.NumFields {
		v.errorf(ErrFieldOutOfRange, ids, "slot %d uses field %d, template declares %d field(s)", s.ID, s.Field, t.NumFields)
	}
	if s.BreakAfter < 0 {
		v.errorf(ErrTemplateHeader, ids, "slot %d has negative break_after %d", s.ID, s.BreakAfter)
	}

	for _, role := range model.Roles {
		key, ok := s.Ref(role).Key()
		if !ok {
			continue
		}
		if key.Group < 0 || key.Group >= t.NumGroups {
			v.errorf(ErrGroupOutOfRange, ids, "slot %d %s placeholder %s: group %d out of range (num_groups=%d)",
				s.ID, role, key, key.Group, t.NumGroups)
		}
		if key.Team < 0 || key.Team >= t.NumTeams {
			v.errorf(ErrTeamOutOfRange, ids, "slot %d %s placeholder %s: team %d out of range (num_teams=%d)",
				s.ID, role, key, key.Team, t.NumTeams)
		}
	}

	if !s.Home.IsNone() && s.Home.Equal(s.Away) {
		v.errorf(ErrSelfPlay, ids, "slot %d: team %s cannot play itself", s.ID, s.Home)
	}
	if !s.Official.IsNone() && (s.Official.Equal(s.Home) || s.Official.Equal(s.Away)) {
		v.errorf(ErrSelfOfficiate, ids, "slot %d: team %s cannot officiate its own game", s.ID, s.Official)
	}
}

// checkTeamCount compares distinct indexed placeholders with num_teams.
func (v *validation) checkTeamCount() {
	keys := v.tmpl.IndexedKeys()
	if len(keys) != v.tmpl.NumTeams {
		v.errorf(ErrTeamCountMismatch, nil, "template declares %d team(s) but slots reference %d distinct placeholder(s)",
			v.tmpl.NumTeams, len(keys))
	}
}

type occurrence struct {
	slotID int64
	role   model.Role
}

// checkSimultaneous rejects a team appearing in more than one role across
// slots that share a slot_order.
func (v *validation) checkSimultaneous() {
	byOrder := make(map[int][]model.Slot)
	var orders []int
	for _, s := range v.slots {
		if _, ok := byOrder[s.SlotOrder]; !ok {
			orders = append(orders, s.SlotOrder)
		}
		byOrder[s.SlotOrder] = append(byOrder[s.SlotOrder], s)
	}
	sort.Ints(orders)

	for _, order := range orders {
		group := byOrder[order]
		if len(group) < 2 {
			continue
		}
		seen := make(map[model.TeamKey][]occurrence)
		var keys []model.TeamKey
		for _, s := range group {
			for _, role := range model.Roles {
				key, ok := s.Ref(role).Key()
				if !ok {
					continue
				}
				if _, dup := seen[key]; !dup {
					keys = append(keys, key)
				}
				seen[key] = append(seen[key], occurrence{slotID: s.ID, role: role})
			}
		}
		for _, key := range keys {
			occ := seen[key]
			if distinctSlots(occ) < 2 {
				continue
			}
			parts := make([]string, len(occ))
			var ids []int64
			for i, o := range occ {
				parts[i] = fmt.Sprintf("%s in slot %d", o.role, o.slotID)
				ids = appendUnique(ids, o.slotID)
			}
			v.errorf(ErrSimultaneousRole, ids, "team %s is used in simultaneous slots (slot_order %d): %s",
				key, order, strings.Join(parts, ", "))
		}
	}
}

func distinctSlots(occ []occurrence) int {
	seen := make(map[int64]bool)
	for _, o := range occ {
		seen[o.slotID] = true
	}
	return len(seen)
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// standings returns the set of standing labels carried by slots.
func (v *validation) standings() map[string][]int64 {
	out := make(map[string][]int64)
	for _, s := range v.slots {
		out[s.Standing] = append(out[s.Standing], s.ID)
	}
	return out
}

// checkRules validates rule bindings, recipes and standing references.
func (v *validation) checkRules() {
	standings := v.standings()
	slotIDs := make(map[int64]bool, len(v.slots))
	for _, s := range v.slots {
		slotIDs[s.ID] = true
	}
	bound := make(map[int64]string)

	for _, r := range v.tmpl.Rules {
		ids := []int64{r.SlotID}
		if !slotIDs[r.SlotID] {
			v.errorf(ErrRuleBinding, nil, "rule %q is bound to unknown slot %d", r.Name, r.SlotID)
			ids = nil
		} else if prev, dup := bound[r.SlotID]; dup {
			v.errorf(ErrRuleBinding, ids, "slot %d has more than one update rule (%q and %q)", r.SlotID, prev, r.Name)
		} else {
			bound[r.SlotID] = r.Name
		}

		if r.PreFinished == "" {
			v.errorf(ErrDanglingStanding, ids, "rule %q has no pre_finished standing", r.Name)
		} else if _, ok := standings[r.PreFinished]; !ok {
			v.errorf(ErrDanglingStanding, ids, "rule %q: pre_finished standing %q is not used by any slot", r.Name, r.PreFinished)
		}

		roles := make(map[model.Role]bool)
		for _, urt := range r.Teams {
			if !urt.Role.Valid() {
				v.errorf(ErrDuplicateRuleRole, ids, "rule %q has unknown role %q", r.Name, urt.Role)
				continue
			}
			if roles[urt.Role] {
				v.errorf(ErrDuplicateRuleRole, ids, "rule %q has more than one recipe for role %s", r.Name, urt.Role)
			}
			roles[urt.Role] = true

			if urt.Advancement != nil {
				if *urt.Advancement < 0 {
					v.errorf(ErrInvalidPlace, ids, "rule %q %s: advancement index %d must not be negative", r.Name, urt.Role, *urt.Advancement)
				}
			} else if urt.Place < 1 {
				v.errorf(ErrInvalidPlace, ids, "rule %q %s: place must be at least 1, got %d", r.Name, urt.Role, urt.Place)
			}

			if _, ok := standings[urt.Standing]; !ok {
				v.errorf(ErrDanglingStanding, ids, "rule %q %s: standing %q is not used by any slot", r.Name, urt.Role, urt.Standing)
			}
			if urt.PreFinishedOverride != "" {
				if _, ok := standings[urt.PreFinishedOverride]; !ok {
					v.errorf(ErrDanglingStanding, ids, "rule %q %s: pre_finished_override %q is not used by any slot",
						r.Name, urt.Role, urt.PreFinishedOverride)
				}
			}
		}
	}
}

// warnStandingReuse flags standings carried by more than one slot.
func (v *validation) warnStandingReuse() {
	standings := v.standings()
	labels := make([]string, 0, len(standings))
	for label := range standings {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		ids := standings[label]
		if len(ids) > 1 {
			v.warnf(WarnStandingReused, ids, "standing %q is shared by %d slots; ranking covers all of them", label, len(ids))
		}
	}
}

// warnPlayThenOfficiate flags a team that plays a slot and officiates the
// immediately following slot on the same field.
func (v *validation) warnPlayThenOfficiate() {
	for i := 1; i < len(v.slots); i++ {
		prev, next := v.slots[i-1], v.slots[i]
		if prev.Field != next.Field || next.Official.IsNone() {
			continue
		}
		if next.Official.Equal(prev.Home) || next.Official.Equal(prev.Away) {
			v.warnf(WarnPlayThenOfficiate, []int64{prev.ID, next.ID},
				"team %s plays slot %d and officiates the next slot %d on field %d", next.Official, prev.ID, next.ID, next.Field)
		}
	}
}
