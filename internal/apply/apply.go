package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/store"
	"github.com/roach88/gameday/internal/validator"
)

// Repo is the transaction-scoped persistence Apply needs. *store.Tx
// implements it; the caller owns the transaction and rolls it back when
// Apply returns an error.
type Repo interface {
	Gameday(ctx context.Context, id int64) (*model.Gameday, error)
	MissingTeams(ctx context.Context, ids []model.TeamID) ([]model.TeamID, error)
	DeleteGames(ctx context.Context, gamedayID int64) error
	InsertGame(ctx context.Context, g *model.Game) error
	InsertResult(ctx context.Context, r *model.Result) error
	SetGamedayTemplate(ctx context.Context, gamedayID, templateID int64) error
	InsertAudit(ctx context.Context, rec model.AuditRecord) error
}

// Result is the outcome of a successful Apply.
type Result struct {
	GamesCreated []model.Game      `json:"games_created"`
	Audit        model.AuditRecord `json:"audit_record"`
}

// Engine instantiates concrete games from a template.
type Engine struct {
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the audit timestamp source.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the audit id source.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine using the wall clock and UUIDv7 ids unless
// overridden.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply replaces the games of a gameday with one game per template slot.
//
// All preconditions are checked before the first write: template validity,
// gameday existence, field capacity, mapping totality and team existence.
// A precondition failure returns *Error. Extra mapping entries are ignored.
func (e *Engine) Apply(
	ctx context.Context,
	repo Repo,
	tmpl *model.Template,
	gamedayID int64,
	mapping map[model.TeamKey]model.TeamID,
	actor string,
) (*Result, error) {
	if tmpl == nil {
		return nil, errors.New("apply: template is nil")
	}

	if report := validator.Validate(tmpl); !report.Valid() {
		return nil, newTemplateError(report.Errors)
	}

	gd, err := repo.Gameday(ctx, gamedayID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &Error{
			Code:    CodeGamedayNotFound,
			Message: fmt.Sprintf("gameday %d does not exist", gamedayID),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	if used := tmpl.MaxField(); used > gd.Fields {
		return nil, &Error{
			Code:    CodeFieldOverflow,
			Message: fmt.Sprintf("template uses field %d but gameday %d has %d field(s)", used, gd.ID, gd.Fields),
		}
	}

	effective, err := e.checkMapping(ctx, repo, tmpl, mapping)
	if err != nil {
		return nil, err
	}

	fingerprint, err := tmpl.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	if err := repo.DeleteGames(ctx, gd.ID); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	games, err := e.createGames(ctx, repo, tmpl, gd, effective)
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	if err := repo.SetGamedayTemplate(ctx, gd.ID, tmpl.ID); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	audit := model.AuditRecord{
		ID:          e.ids.Generate(),
		TemplateID:  tmpl.ID,
		GamedayID:   gd.ID,
		Fingerprint: fingerprint,
		Mapping:     effective,
		Actor:       actor,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if err := repo.InsertAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	e.logger.DebugContext(ctx, "template applied",
		"template_id", tmpl.ID,
		"gameday_id", gd.ID,
		"games", len(games),
		"audit_id", audit.ID,
	)

	return &Result{GamesCreated: games, Audit: audit}, nil
}

// checkMapping verifies totality once against every indexed placeholder,
// rejects a team bound to more than one of them and returns the mapping
// restricted to the keys the template uses.
func (e *Engine) checkMapping(
	ctx context.Context,
	repo Repo,
	tmpl *model.Template,
	mapping map[model.TeamKey]model.TeamID,
) (map[model.TeamKey]model.TeamID, error) {
	keys := tmpl.IndexedKeys()
	effective := make(map[model.TeamKey]model.TeamID, len(keys))
	var missing []model.TeamKey
	for _, k := range keys {
		id, ok := mapping[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		effective[k] = id
	}
	if len(missing) > 0 {
		return nil, newMappingError(missing)
	}
	if err := checkDistinct(keys, effective); err != nil {
		return nil, err
	}

	ids := make([]model.TeamID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, effective[k])
	}
	unknown, err := repo.MissingTeams(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	if len(unknown) > 0 {
		return nil, newUnknownTeamError(unknown)
	}
	return effective, nil
}

// checkDistinct fails when two placeholders resolve to the same team: the
// team would be scheduled against itself or in two simultaneous games.
func checkDistinct(keys []model.TeamKey, mapping map[model.TeamKey]model.TeamID) error {
	byTeam := make(map[model.TeamID][]model.TeamKey, len(keys))
	var order []model.TeamID
	for _, k := range keys {
		id := mapping[k]
		if len(byTeam[id]) == 0 {
			order = append(order, id)
		}
		byTeam[id] = append(byTeam[id], k)
	}
	var clashing []model.TeamKey
	var teams []model.TeamID
	for _, id := range order {
		if len(byTeam[id]) > 1 {
			teams = append(teams, id)
			clashing = append(clashing, byTeam[id]...)
		}
	}
	if len(teams) == 0 {
		return nil
	}
	return newDuplicateTeamError(clashing, teams, byTeam)
}

// createGames writes games in (field, slot_order) order. The first slot on a
// field starts at the gameday start; each later slot follows the previous
// one after the game duration plus its break.
func (e *Engine) createGames(
	ctx context.Context,
	repo Repo,
	tmpl *model.Template,
	gd *model.Gameday,
	mapping map[model.TeamKey]model.TeamID,
) ([]model.Game, error) {
	duration := time.Duration(tmpl.GameDuration) * time.Minute
	next := make(map[int]time.Time)

	slots := tmpl.SortedSlots()
	games := make([]model.Game, 0, len(slots))
	for _, slot := range slots {
		at, ok := next[slot.Field]
		if !ok {
			at = gd.Start
		}
		next[slot.Field] = at.Add(duration + time.Duration(slot.BreakAfter)*time.Minute)

		g := model.Game{
			GamedayID: gd.ID,
			SlotID:    slot.ID,
			Field:     slot.Field,
			Scheduled: at,
			Stage:     slot.Stage,
			Standing:  slot.Standing,
			Status:    model.StatusPlanned,
			Official:  resolveIndexed(slot.Official, mapping),
		}
		if err := repo.InsertGame(ctx, &g); err != nil {
			return nil, err
		}

		for _, role := range []model.Role{model.RoleHome, model.RoleAway} {
			team := resolveIndexed(slot.Ref(role), mapping)
			if team == nil {
				continue
			}
			r := &model.Result{GameID: g.ID, Team: *team, IsHome: role == model.RoleHome}
			if err := repo.InsertResult(ctx, r); err != nil {
				return nil, err
			}
			if r.IsHome {
				g.Home = r
			} else {
				g.Away = r
			}
		}
		games = append(games, g)
	}
	return games, nil
}

// resolveIndexed maps an indexed placeholder to its team. Named and empty
// placeholders stay unassigned.
func resolveIndexed(ref model.TeamRef, mapping map[model.TeamKey]model.TeamID) *model.TeamID {
	key, ok := ref.Key()
	if !ok {
		return nil
	}
	id, ok := mapping[key]
	if !ok {
		return nil
	}
	return &id
}
