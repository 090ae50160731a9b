package model

import "sort"

// Role identifies one of the three placeholder positions of a slot.
type Role string

const (
	RoleHome     Role = "home"
	RoleAway     Role = "away"
	RoleOfficial Role = "official"
)

// Roles lists roles in canonical order.
var Roles = []Role{RoleHome, RoleAway, RoleOfficial}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHome || r == RoleAway || r == RoleOfficial
}

// PointRule awards standing points per game outcome.
type PointRule struct {
	Win  int `json:"win" yaml:"win"`
	Draw int `json:"draw" yaml:"draw"`
	Loss int `json:"loss" yaml:"loss"`
}

// DefaultPointRule is used when a template does not declare one.
var DefaultPointRule = PointRule{Win: 2, Draw: 1, Loss: 0}

// IsZero reports whether no rule has been set.
func (p PointRule) IsZero() bool {
	return p == PointRule{}
}

// TiePolicy orders rows of a standing that the point and goal comparisons
// leave level. It is stored with the template so every resolution pass over
// a gameday ranks the same way.
type TiePolicy struct {
	TieBreakers []string `json:"tie_breakers" yaml:"tie_breakers"` // standings.ByName names, applied in order
	Strict      bool     `json:"strict" yaml:"strict"`             // unresolved ties fail instead of falling back to team id
}

// Template is a reusable gameday schedule definition.
type Template struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	OrganizationID *int64 `json:"organization_id,omitempty"` // nil = global

	NumTeams     int        `json:"num_teams"`
	NumFields    int        `json:"num_fields"`
	NumGroups    int        `json:"num_groups"`
	GameDuration int        `json:"game_duration"` // minutes
	Points       PointRule  `json:"points"`
	Ties         *TiePolicy `json:"ties,omitempty"` // nil = resolver defaults

	Slots []Slot       `json:"slots"`
	Rules []UpdateRule `json:"rules"`
}

// Slot is one scheduled game position within a template.
type Slot struct {
	ID         int64   `json:"id"`
	Field      int     `json:"field"` // 1-based
	SlotOrder  int     `json:"slot_order"`
	Stage      string  `json:"stage"`
	Standing   string  `json:"standing"`
	Home       TeamRef `json:"home"`
	Away       TeamRef `json:"away"`
	Official   TeamRef `json:"official"`
	BreakAfter int     `json:"break_after"` // minutes
}

// Ref returns the placeholder for a role.
func (s Slot) Ref(role Role) TeamRef {
	switch role {
	case RoleHome:
		return s.Home
	case RoleAway:
		return s.Away
	default:
		return s.Official
	}
}

// UpdateRule binds a slot to the standing that must finish before the slot's
// named placeholders can be resolved.
type UpdateRule struct {
	ID          int64            `json:"id"`
	SlotID      int64            `json:"slot_id"`
	Name        string           `json:"name"`
	PreFinished string           `json:"pre_finished"`
	Teams       []UpdateRuleTeam `json:"teams"`
}

// Team returns the recipe for a role, if any.
func (r UpdateRule) Team(role Role) (UpdateRuleTeam, bool) {
	for _, t := range r.Teams {
		if t.Role == role {
			return t, true
		}
	}
	return UpdateRuleTeam{}, false
}

// UpdateRuleTeam is the resolution recipe for one role of a rule.
type UpdateRuleTeam struct {
	ID                  int64  `json:"id"`
	Role                Role   `json:"role"`
	Standing            string `json:"standing"`
	Place               int    `json:"place"` // 1-indexed
	Points              *int   `json:"points,omitempty"`
	PreFinishedOverride string `json:"pre_finished_override,omitempty"`
	Advancement         *int   `json:"advancement,omitempty"` // index into the advancement table
}

// Dependency returns the standing that gates this recipe.
func (t UpdateRuleTeam) Dependency(rule UpdateRule) string {
	if t.PreFinishedOverride != "" {
		return t.PreFinishedOverride
	}
	return rule.PreFinished
}

// PointRuleOrDefault returns the template's point rule, or the default when
// none is configured.
func (t *Template) PointRuleOrDefault() PointRule {
	if t.Points.IsZero() {
		return DefaultPointRule
	}
	return t.Points
}

// IndexedKeys returns every distinct indexed placeholder used by the slots,
// sorted by group then team.
func (t *Template) IndexedKeys() []TeamKey {
	seen := make(map[TeamKey]bool)
	var keys []TeamKey
	for _, s := range t.Slots {
		for _, role := range Roles {
			if k, ok := s.Ref(role).Key(); ok && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// MaxField returns the largest field index used by any slot.
func (t *Template) MaxField() int {
	highest := 0
	for _, s := range t.Slots {
		if s.Field > highest {
			highest = s.Field
		}
	}
	return highest
}

// SortedSlots returns the slots ordered by (field, slot_order, id).
func (t *Template) SortedSlots() []Slot {
	slots := make([]Slot, len(t.Slots))
	copy(slots, t.Slots)
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Field != slots[j].Field {
			return slots[i].Field < slots[j].Field
		}
		if slots[i].SlotOrder != slots[j].SlotOrder {
			return slots[i].SlotOrder < slots[j].SlotOrder
		}
		return slots[i].ID < slots[j].ID
	})
	return slots
}

// Slot looks up a slot by id.
func (t *Template) Slot(id int64) (Slot, bool) {
	for _, s := range t.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// RuleForSlot returns the update rule bound to a slot, if any.
func (t *Template) RuleForSlot(slotID int64) (UpdateRule, bool) {
	for _, r := range t.Rules {
		if r.SlotID == slotID {
			return r, true
		}
	}
	return UpdateRule{}, false
}

// Clone returns a deep copy with all ids preserved. Callers persisting the
// copy as a new template get fresh ids from the store.
func (t *Template) Clone() *Template {
	c := *t
	if t.OrganizationID != nil {
		org := *t.OrganizationID
		c.OrganizationID = &org
	}
	if t.Ties != nil {
		ties := TiePolicy{Strict: t.Ties.Strict, TieBreakers: append([]string{}, t.Ties.TieBreakers...)}
		c.Ties = &ties
	}
	c.Slots = make([]Slot, len(t.Slots))
	copy(c.Slots, t.Slots)
	c.Rules = make([]UpdateRule, len(t.Rules))
	for i, r := range t.Rules {
		cr := r
		cr.Teams = make([]UpdateRuleTeam, len(r.Teams))
		for j, urt := range r.Teams {
			cu := urt
			if urt.Points != nil {
				p := *urt.Points
				cu.Points = &p
			}
			if urt.Advancement != nil {
				a := *urt.Advancement
				cu.Advancement = &a
			}
			cr.Teams[j] = cu
		}
		c.Rules[i] = cr
	}
	return &c
}
