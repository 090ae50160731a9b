package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// DomainTemplate prefixes template fingerprints.
// Version suffix enables future algorithm migration.
const DomainTemplate = "gameday/template/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

type canonicalSlot struct {
	Field      int    `json:"field"`
	SlotOrder  int    `json:"slot_order"`
	Stage      string `json:"stage"`
	Standing   string `json:"standing"`
	Home       string `json:"home"`
	Away       string `json:"away"`
	Official   string `json:"official"`
	BreakAfter int    `json:"break_after"`
}

type canonicalRuleTeam struct {
	Role                Role   `json:"role"`
	Standing            string `json:"standing"`
	Place               int    `json:"place"`
	Points              *int   `json:"points"`
	PreFinishedOverride string `json:"pre_finished_override"`
	Advancement         *int   `json:"advancement"`
}

type canonicalRule struct {
	Slot        int                 `json:"slot"` // position in sorted slot order
	Name        string              `json:"name"`
	PreFinished string              `json:"pre_finished"`
	Teams       []canonicalRuleTeam `json:"teams"`
}

type canonicalTemplate struct {
	NumTeams     int             `json:"num_teams"`
	NumFields    int             `json:"num_fields"`
	NumGroups    int             `json:"num_groups"`
	GameDuration int             `json:"game_duration"`
	Points       PointRule       `json:"points"`
	Ties         *TiePolicy      `json:"ties,omitempty"`
	Slots        []canonicalSlot `json:"slots"`
	Rules        []canonicalRule `json:"rules"`
}

// Fingerprint returns a content hash of the template's bracket structure.
//
// The tie policy is included. Database ids, the name and the organization
// are excluded, so a clone has the same fingerprint as its source. Rules are identified by the position of
// their slot in (field, slot_order) order.
func (t *Template) Fingerprint() (string, error) {
	slots := t.SortedSlots()
	pos := make(map[int64]int, len(slots))
	c := canonicalTemplate{
		NumTeams:     t.NumTeams,
		NumFields:    t.NumFields,
		NumGroups:    t.NumGroups,
		GameDuration: t.GameDuration,
		Points:       t.PointRuleOrDefault(),
		Slots:        make([]canonicalSlot, 0, len(slots)),
		Rules:        []canonicalRule{},
	}
	if t.Ties != nil {
		c.Ties = &TiePolicy{TieBreakers: append([]string{}, t.Ties.TieBreakers...), Strict: t.Ties.Strict}
	}
	for i, s := range slots {
		pos[s.ID] = i
		c.Slots = append(c.Slots, canonicalSlot{
			Field:      s.Field,
			SlotOrder:  s.SlotOrder,
			Stage:      s.Stage,
			Standing:   s.Standing,
			Home:       s.Home.String(),
			Away:       s.Away.String(),
			Official:   s.Official.String(),
			BreakAfter: s.BreakAfter,
		})
	}
	for _, r := range t.Rules {
		p, ok := pos[r.SlotID]
		if !ok {
			return "", fmt.Errorf("fingerprint: rule %q references unknown slot %d", r.Name, r.SlotID)
		}
		cr := canonicalRule{Slot: p, Name: r.Name, PreFinished: r.PreFinished, Teams: []canonicalRuleTeam{}}
		for _, urt := range r.Teams {
			cr.Teams = append(cr.Teams, canonicalRuleTeam{
				Role:                urt.Role,
				Standing:            urt.Standing,
				Place:               urt.Place,
				Points:              urt.Points,
				PreFinishedOverride: urt.PreFinishedOverride,
				Advancement:         urt.Advancement,
			})
		}
		c.Rules = append(c.Rules, cr)
	}
	sort.SliceStable(c.Rules, func(i, j int) bool { return c.Rules[i].Slot < c.Rules[j].Slot })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTemplate, buf.Bytes()), nil
}
