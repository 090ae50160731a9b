package model

import "time"

// TeamID identifies a real team.
type TeamID int64

// Team is a real team that can be mapped onto template placeholders.
type Team struct {
	ID   TeamID `json:"id"`
	Name string `json:"name"`
}

// Gameday is the target event a template is applied to.
type Gameday struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	Start          time.Time `json:"start"`
	Fields         int       `json:"fields"`
	TemplateID     *int64    `json:"template_id,omitempty"` // set by apply
}

// Game is a concrete game created from a template slot.
type Game struct {
	ID        int64      `json:"id"`
	GamedayID int64      `json:"gameday_id"`
	SlotID    int64      `json:"slot_id"`
	Field     int        `json:"field"`
	Scheduled time.Time  `json:"scheduled"`
	Stage     string     `json:"stage"`
	Standing  string     `json:"standing"`
	Status    GameStatus `json:"status"`
	Official  *TeamID    `json:"official,omitempty"`
	Home      *Result    `json:"home,omitempty"`
	Away      *Result    `json:"away,omitempty"`
}

// Result returns the result row for a playing role.
func (g *Game) Result(role Role) *Result {
	switch role {
	case RoleHome:
		return g.Home
	case RoleAway:
		return g.Away
	default:
		return nil
	}
}

// TeamFor returns the team currently assigned to a role.
func (g *Game) TeamFor(role Role) *TeamID {
	if role == RoleOfficial {
		return g.Official
	}
	if r := g.Result(role); r != nil {
		team := r.Team
		return &team
	}
	return nil
}

// Resolved reports whether every role has a team. Officials only count when
// the slot declares one.
func (g *Game) Resolved(slot Slot) bool {
	if g.Home == nil || g.Away == nil {
		return false
	}
	return slot.Official.IsNone() || g.Official != nil
}

// Result is one side of a game.
type Result struct {
	ID     int64  `json:"id"`
	GameID int64  `json:"game_id"`
	Team   TeamID `json:"team"`
	IsHome bool   `json:"is_home"`
	Score  int    `json:"score"`
}

// AuditRecord is written once per template application.
type AuditRecord struct {
	ID          string             `json:"id"`
	TemplateID  int64              `json:"template_id"`
	GamedayID   int64              `json:"gameday_id"`
	Fingerprint string             `json:"fingerprint"`
	Mapping     map[TeamKey]TeamID `json:"mapping"`
	Actor       string             `json:"actor"`
	CreatedAt   time.Time          `json:"created_at"`
}
