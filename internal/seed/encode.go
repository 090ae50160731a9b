package seed

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gameday/internal/model"
)

// FromTemplate builds the document form of a template. Rules are grouped by
// the standing of the slot they are bound to; slots of that standing without
// a rule get an empty games entry so positions stay aligned.
func FromTemplate(tmpl *model.Template) (*Document, error) {
	doc := &Document{
		Name:           tmpl.Name,
		OrganizationID: tmpl.OrganizationID,
		NumTeams:       tmpl.NumTeams,
		NumFields:      tmpl.NumFields,
		NumGroups:      tmpl.NumGroups,
		GameDuration:   tmpl.GameDuration,
	}
	if !tmpl.Points.IsZero() {
		points := tmpl.Points
		doc.Points = &points
	}
	if tmpl.Ties != nil {
		doc.Ties = tmpl.Clone().Ties
	}

	slots := tmpl.SortedSlots()
	doc.Fields = make([][]SlotDoc, tmpl.MaxField())
	for i := range doc.Fields {
		doc.Fields[i] = []SlotDoc{}
	}
	for _, s := range slots {
		doc.Fields[s.Field-1] = append(doc.Fields[s.Field-1], SlotDoc{
			Stage:      s.Stage,
			Standing:   s.Standing,
			Home:       s.Home.String(),
			Away:       s.Away.String(),
			Official:   s.Official.String(),
			BreakAfter: s.BreakAfter,
		})
	}

	index := map[string]int{}
	for _, s := range slots {
		rule, ok := tmpl.RuleForSlot(s.ID)
		if !ok {
			continue
		}
		i, seen := index[s.Standing]
		if !seen {
			i = len(doc.UpdateRules)
			index[s.Standing] = i
			doc.UpdateRules = append(doc.UpdateRules, RuleDoc{Name: s.Standing, PreFinished: rule.PreFinished})
		}
		rd := &doc.UpdateRules[i]
		if rd.PreFinished != rule.PreFinished {
			return nil, fmt.Errorf("slots of standing %q depend on different stages (%q, %q)",
				s.Standing, rd.PreFinished, rule.PreFinished)
		}

		position := 0
		for _, other := range slots {
			if other.ID == s.ID {
				break
			}
			if other.Standing == s.Standing {
				position++
			}
		}
		for len(rd.Games) < position {
			rd.Games = append(rd.Games, GameRecipe{})
		}
		rd.Games = append(rd.Games, gameRecipe(rule))
	}
	return doc, nil
}

func gameRecipe(rule model.UpdateRule) GameRecipe {
	var g GameRecipe
	for _, urt := range rule.Teams {
		r := &RoleRecipe{
			Standing:            urt.Standing,
			Place:               urt.Place,
			Points:              urt.Points,
			Advancement:         urt.Advancement,
			PreFinishedOverride: urt.PreFinishedOverride,
		}
		switch urt.Role {
		case model.RoleHome:
			g.Home = r
		case model.RoleAway:
			g.Away = r
		case model.RoleOfficial:
			g.Officials = r
		}
	}
	return g
}

// Encode renders a template as a YAML document.
func Encode(tmpl *model.Template) ([]byte, error) {
	doc, err := FromTemplate(tmpl)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}
