package seed

import "github.com/roach88/gameday/internal/model"

// Document is the on-disk template shape.
type Document struct {
	Name           string           `yaml:"name" json:"name"`
	OrganizationID *int64           `yaml:"organization_id,omitempty" json:"organization_id,omitempty"`
	NumTeams       int              `yaml:"num_teams" json:"num_teams"`
	NumFields      int              `yaml:"num_fields" json:"num_fields"`
	NumGroups      int              `yaml:"num_groups" json:"num_groups"`
	GameDuration   int              `yaml:"game_duration" json:"game_duration"`
	Points         *model.PointRule `yaml:"points,omitempty" json:"points,omitempty"`
	Ties           *model.TiePolicy `yaml:"ties,omitempty" json:"ties,omitempty"`
	Fields         [][]SlotDoc      `yaml:"fields" json:"fields"`
	UpdateRules    []RuleDoc        `yaml:"update_rules,omitempty" json:"update_rules,omitempty"`
}

// SlotDoc is one slot within a field list.
type SlotDoc struct {
	Stage      string `yaml:"stage" json:"stage"`
	Standing   string `yaml:"standing" json:"standing"`
	Home       string `yaml:"home" json:"home"`
	Away       string `yaml:"away" json:"away"`
	Official   string `yaml:"official,omitempty" json:"official,omitempty"`
	BreakAfter int    `yaml:"break_after,omitempty" json:"break_after,omitempty"`
}

// RuleDoc binds recipes to the slots of one standing.
type RuleDoc struct {
	Name        string       `yaml:"name" json:"name"`
	PreFinished string       `yaml:"pre_finished" json:"pre_finished"`
	Games       []GameRecipe `yaml:"games" json:"games"`
}

// GameRecipe holds the per-role recipes of one bound slot.
type GameRecipe struct {
	Home      *RoleRecipe `yaml:"home,omitempty" json:"home,omitempty"`
	Away      *RoleRecipe `yaml:"away,omitempty" json:"away,omitempty"`
	Officials *RoleRecipe `yaml:"officials,omitempty" json:"officials,omitempty"`
}

// RoleRecipe is the resolution recipe of one role.
type RoleRecipe struct {
	Standing            string `yaml:"standing" json:"standing"`
	Place               int    `yaml:"place" json:"place"`
	Points              *int   `yaml:"points,omitempty" json:"points,omitempty"`
	Advancement         *int   `yaml:"advancement,omitempty" json:"advancement,omitempty"`
	PreFinishedOverride string `yaml:"pre_finished_override,omitempty" json:"pre_finished_override,omitempty"`
}
