package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gameday/internal/model"
)

// Format selects the document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks a format from a file extension. Unknown extensions
// are read as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".cue":
		return FormatCUE
	default:
		return FormatYAML
	}
}

// Error is a structural problem in a document.
type Error struct {
	Path    string // document path, e.g. "fields[0][1].home"
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	prefix := ""
	if e.Pos.IsValid() {
		prefix = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Path == "" {
		return prefix + e.Message
	}
	return fmt.Sprintf("%s%s: %s", prefix, e.Path, e.Message)
}

// Load reads a template document from disk.
func Load(path string) (*model.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return ParseNamed(data, FormatFromPath(path), path)
}

// Parse decodes a document and converts it to a template with provisional
// slot ids (1..n, field-major).
func Parse(data []byte, format Format) (*model.Template, error) {
	return ParseNamed(data, format, "template")
}

// ParseNamed is Parse with a file name used in CUE positions.
func ParseNamed(data []byte, format Format, name string) (*model.Template, error) {
	doc, err := Decode(data, format, name)
	if err != nil {
		return nil, err
	}
	return doc.Template()
}

// Decode parses a document without converting it.
func Decode(data []byte, format Format, name string) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML, FormatJSON:
		// JSON documents are valid YAML flow syntax.
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return nil, &Error{Message: fmt.Sprintf("failed to parse %s: %v", format, err)}
		}
	case FormatCUE:
		value := cuecontext.New().CompileBytes(data, cue.Filename(name))
		if err := value.Err(); err != nil {
			return nil, cueError(err)
		}
		if err := value.Validate(cue.Concrete(true)); err != nil {
			return nil, cueError(err)
		}
		if err := value.Decode(&doc); err != nil {
			return nil, cueError(err)
		}
	default:
		return nil, &Error{Message: fmt.Sprintf("unknown format %q", format)}
	}
	return &doc, nil
}

// cueError keeps the first CUE error with its position.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	seedErr := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		seedErr.Pos = positions[0]
	}
	return seedErr
}

// Template converts the document. Semantic checks (counts, conflicts,
// cycles) are left to the validator; only shape errors are reported here.
func (d *Document) Template() (*model.Template, error) {
	if len(d.Fields) == 0 {
		return nil, &Error{Path: "fields", Message: "at least one field is required"}
	}

	tmpl := &model.Template{
		Name:           model.NormalizeLabel(d.Name),
		OrganizationID: d.OrganizationID,
		NumTeams:       d.NumTeams,
		NumFields:      d.NumFields,
		NumGroups:      d.NumGroups,
		GameDuration:   d.GameDuration,
	}
	if d.Points != nil {
		tmpl.Points = *d.Points
	}
	if d.Ties != nil {
		tmpl.Ties = &model.TiePolicy{Strict: d.Ties.Strict, TieBreakers: []string{}}
		for _, name := range d.Ties.TieBreakers {
			tmpl.Ties.TieBreakers = append(tmpl.Ties.TieBreakers, strings.TrimSpace(name))
		}
	}

	var nextID int64
	for f, field := range d.Fields {
		for order, s := range field {
			nextID++
			tmpl.Slots = append(tmpl.Slots, model.Slot{
				ID:         nextID,
				Field:      f + 1,
				SlotOrder:  order + 1,
				Stage:      model.NormalizeLabel(s.Stage),
				Standing:   model.NormalizeLabel(s.Standing),
				Home:       model.ParseTeamRef(strings.TrimSpace(s.Home)),
				Away:       model.ParseTeamRef(strings.TrimSpace(s.Away)),
				Official:   model.ParseTeamRef(strings.TrimSpace(s.Official)),
				BreakAfter: s.BreakAfter,
			})
		}
	}

	for i, rd := range d.UpdateRules {
		rules, err := bindRule(tmpl.Slots, rd, fmt.Sprintf("update_rules[%d]", i))
		if err != nil {
			return nil, err
		}
		tmpl.Rules = append(tmpl.Rules, rules...)
	}
	return tmpl, nil
}

// bindRule expands one rule document into one UpdateRule per bound slot.
func bindRule(slots []model.Slot, rd RuleDoc, path string) ([]model.UpdateRule, error) {
	name := model.NormalizeLabel(rd.Name)
	if name == "" {
		return nil, &Error{Path: path + ".name", Message: "name is required"}
	}

	var targets []model.Slot
	for _, s := range slots {
		if s.Standing == name {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return nil, &Error{Path: path + ".name", Message: fmt.Sprintf("no slot has standing %q", name)}
	}
	if len(rd.Games) > len(targets) {
		return nil, &Error{
			Path:    fmt.Sprintf("%s.games[%d]", path, len(targets)),
			Message: fmt.Sprintf("standing %q has only %d slot(s)", name, len(targets)),
		}
	}

	var rules []model.UpdateRule
	for i, g := range rd.Games {
		gamePath := fmt.Sprintf("%s.games[%d]", path, i)
		rule := model.UpdateRule{
			SlotID:      targets[i].ID,
			Name:        name,
			PreFinished: model.NormalizeLabel(rd.PreFinished),
		}
		for _, rr := range []struct {
			role   model.Role
			key    string
			recipe *RoleRecipe
		}{
			{model.RoleHome, "home", g.Home},
			{model.RoleAway, "away", g.Away},
			{model.RoleOfficial, "officials", g.Officials},
		} {
			if rr.recipe == nil {
				continue
			}
			urt, err := roleRecipe(rr.role, *rr.recipe, gamePath+"."+rr.key)
			if err != nil {
				return nil, err
			}
			rule.Teams = append(rule.Teams, urt)
		}
		if len(rule.Teams) == 0 {
			// placeholder entry keeping positions aligned
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func roleRecipe(role model.Role, r RoleRecipe, path string) (model.UpdateRuleTeam, error) {
	standing := model.NormalizeLabel(r.Standing)
	if standing == "" {
		return model.UpdateRuleTeam{}, &Error{Path: path + ".standing", Message: "standing is required"}
	}
	place := r.Place
	if place == 0 && r.Advancement != nil {
		place = 1
	}
	return model.UpdateRuleTeam{
		Role:                role,
		Standing:            standing,
		Place:               place,
		Points:              r.Points,
		Advancement:         r.Advancement,
		PreFinishedOverride: model.NormalizeLabel(r.PreFinishedOverride),
	}, nil
}
