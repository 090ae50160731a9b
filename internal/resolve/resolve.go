package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/standings"
)

// Repo is the transaction-scoped persistence the resolver needs. *store.Tx
// implements it.
type Repo interface {
	Game(ctx context.Context, id int64) (*model.Game, error)
	Gameday(ctx context.Context, id int64) (*model.Gameday, error)
	Template(ctx context.Context, id int64) (*model.Template, error)
	GamedayGames(ctx context.Context, gamedayID int64) ([]model.Game, error)
	InsertResult(ctx context.Context, r *model.Result) error
	UpdateResultTeam(ctx context.Context, resultID int64, team model.TeamID) error
	UpdateOfficial(ctx context.Context, gameID int64, team *model.TeamID) error
}

// Change is one role assignment written during a pass.
type Change struct {
	GameID int64         `json:"game_id"`
	SlotID int64         `json:"slot_id"`
	Role   model.Role    `json:"role"`
	From   *model.TeamID `json:"from,omitempty"`
	To     *model.TeamID `json:"to"`
}

// Report lists the changes of one OnGameFinished call in write order.
type Report struct {
	Changes []Change `json:"changes"`
}

// Engine fills in downstream slots as upstream standings finish.
//
// Every call recomputes each eligible role from scratch against the current
// game set, so repeated and out-of-order invocations converge on the same
// assignment. One call performs one hop: teams it writes never make another
// standing finish.
type Engine struct {
	tieBreakers []standings.TieBreaker
	strictTies  bool
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTieBreakers appends tie-breakers applied when ranking a standing of a
// template that declares no tie policy of its own.
func WithTieBreakers(tbs ...standings.TieBreaker) EngineOption {
	return func(e *Engine) { e.tieBreakers = append(e.tieBreakers, tbs...) }
}

// WithStrictTies makes a shared rank at the requested place an
// AMBIGUOUS_CANDIDATE error instead of falling back to insertion order. Like
// WithTieBreakers it only applies to templates without a tie policy.
func WithStrictTies() EngineOption {
	return func(e *Engine) { e.strictTies = true }
}

// WithLogger sets the logger used for debug records.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pass holds the state of one OnGameFinished call.
type pass struct {
	tmpl        *model.Template
	tieBreakers []standings.TieBreaker
	strictTies  bool
	games       []model.Game
	bySlot      map[int64]*model.Game
	report      *Report
}

func (p *pass) finished(standing string) bool {
	return standings.Finished(p.games, standing)
}

// OnGameFinished resolves every slot whose dependencies are now satisfied.
// It is a no-op when the game is not finished or its gameday was not built
// from a template.
func (e *Engine) OnGameFinished(ctx context.Context, repo Repo, gameID int64) (*Report, error) {
	report := &Report{Changes: []Change{}}

	trigger, err := repo.Game(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	if trigger.Status != model.StatusFinished {
		return report, nil
	}

	gd, err := repo.Gameday(ctx, trigger.GamedayID)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	if gd.TemplateID == nil {
		return report, nil
	}

	tmpl, err := repo.Template(ctx, *gd.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	games, err := repo.GamedayGames(ctx, gd.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	tieBreakers, strict, err := e.tiePolicy(tmpl)
	if err != nil {
		return nil, err
	}

	p := &pass{
		tmpl:        tmpl,
		tieBreakers: tieBreakers,
		strictTies:  strict,
		games:       games,
		bySlot:      make(map[int64]*model.Game, len(games)),
		report:      report,
	}
	for i := range games {
		p.bySlot[games[i].SlotID] = &games[i]
	}

	for _, slot := range tmpl.SortedSlots() {
		rule, ok := tmpl.RuleForSlot(slot.ID)
		if !ok {
			continue
		}
		game, ok := p.bySlot[slot.ID]
		if !ok || game.Status != model.StatusPlanned {
			continue
		}
		if err := e.resolveSlot(ctx, repo, p, slot, rule, game); err != nil {
			return nil, err
		}
	}

	e.logger.DebugContext(ctx, "bracket resolution pass",
		"game_id", gameID,
		"gameday_id", gd.ID,
		"changes", len(report.Changes),
	)
	return report, nil
}

// tiePolicy returns the ranking rules of a template. A stored policy always
// wins, so every pass over the same gameday ranks identically whatever
// options the engine was built with.
func (e *Engine) tiePolicy(tmpl *model.Template) ([]standings.TieBreaker, bool, error) {
	if tmpl.Ties == nil {
		return e.tieBreakers, e.strictTies, nil
	}
	tbs := make([]standings.TieBreaker, 0, len(tmpl.Ties.TieBreakers))
	for _, name := range tmpl.Ties.TieBreakers {
		tb, ok := standings.ByName(name)
		if !ok {
			return nil, false, fmt.Errorf("resolve: template %d: unknown tie-breaker %q", tmpl.ID, name)
		}
		tbs = append(tbs, tb)
	}
	return tbs, tmpl.Ties.Strict, nil
}

// resolveSlot recomputes the named roles of one planned game.
// Players resolve only while the slot still has an open role; officials are
// re-evaluated on every pass.
func (e *Engine) resolveSlot(
	ctx context.Context,
	repo Repo,
	p *pass,
	slot model.Slot,
	rule model.UpdateRule,
	game *model.Game,
) error {
	if p.finished(rule.PreFinished) && !game.Resolved(slot) {
		for _, role := range []model.Role{model.RoleHome, model.RoleAway} {
			if err := e.resolveRole(ctx, repo, p, slot, rule, game, role); err != nil {
				return err
			}
		}
	}
	return e.resolveRole(ctx, repo, p, slot, rule, game, model.RoleOfficial)
}

func (e *Engine) resolveRole(
	ctx context.Context,
	repo Repo,
	p *pass,
	slot model.Slot,
	rule model.UpdateRule,
	game *model.Game,
	role model.Role,
) error {
	if !slot.Ref(role).IsNamed() {
		return nil
	}
	recipe, ok := rule.Team(role)
	if !ok {
		return nil
	}
	// Not yet knowable: retried on a later finished event.
	if !p.finished(recipe.Dependency(rule)) || !p.finished(recipe.Standing) {
		return nil
	}

	team, err := e.pick(p, slot, recipe)
	if err != nil {
		return err
	}

	if role == model.RoleOfficial {
		return e.writeOfficial(ctx, repo, p, game, team)
	}
	return e.writePlayer(ctx, repo, p, game, role, team)
}

// pick applies one recipe to its finished standing.
func (e *Engine) pick(p *pass, slot model.Slot, recipe model.UpdateRuleTeam) (model.TeamID, error) {
	stage := standings.InStanding(p.games, recipe.Standing)
	fail := func(code ErrorCode, format string, args ...any) error {
		return &Error{
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			SlotID:   slot.ID,
			Role:     recipe.Role,
			Standing: recipe.Standing,
		}
	}

	if recipe.Advancement != nil {
		table, err := standings.Advancement(stage)
		if err != nil {
			return 0, fmt.Errorf("resolve slot %d %s: %w", slot.ID, recipe.Role, err)
		}
		row, err := standings.At(table, *recipe.Advancement)
		if err != nil {
			return 0, fail(CodeNoCandidate, "%v", err)
		}
		if row.Drawn {
			return 0, fail(CodeAmbiguousCandidate, "advancement game %d ended in a draw", row.GameID)
		}
		return row.Team, nil
	}

	entries, err := standings.Rank(stage, p.tmpl.PointRuleOrDefault(), standings.WithTieBreakers(p.tieBreakers...))
	if err != nil {
		return 0, fmt.Errorf("resolve slot %d %s: %w", slot.ID, recipe.Role, err)
	}

	if recipe.Points != nil {
		var filtered []standings.Entry
		for _, entry := range entries {
			if entry.Points == *recipe.Points {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if recipe.Place < 1 || recipe.Place > len(entries) {
		return 0, fail(CodeNoCandidate, "no team at place %d (%d candidate(s))", recipe.Place, len(entries))
	}
	chosen := entries[recipe.Place-1]

	if p.strictTies {
		for i, entry := range entries {
			if i != recipe.Place-1 && entry.Rank == chosen.Rank {
				return 0, fail(CodeAmbiguousCandidate, "teams %d and %d share rank %d", chosen.Team, entry.Team, chosen.Rank)
			}
		}
	}
	return chosen.Team, nil
}

func (e *Engine) writePlayer(
	ctx context.Context,
	repo Repo,
	p *pass,
	game *model.Game,
	role model.Role,
	team model.TeamID,
) error {
	current := game.Result(role)
	if current != nil && current.Team == team {
		return nil
	}

	change := Change{GameID: game.ID, SlotID: game.SlotID, Role: role, To: &team}
	if current == nil {
		r := &model.Result{GameID: game.ID, Team: team, IsHome: role == model.RoleHome}
		if err := repo.InsertResult(ctx, r); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		if r.IsHome {
			game.Home = r
		} else {
			game.Away = r
		}
	} else {
		from := current.Team
		change.From = &from
		if err := repo.UpdateResultTeam(ctx, current.ID, team); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		current.Team = team
	}

	p.report.Changes = append(p.report.Changes, change)
	return nil
}

func (e *Engine) writeOfficial(ctx context.Context, repo Repo, p *pass, game *model.Game, team model.TeamID) error {
	if game.Official != nil && *game.Official == team {
		return nil
	}
	if err := repo.UpdateOfficial(ctx, game.ID, &team); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	p.report.Changes = append(p.report.Changes, Change{
		GameID: game.ID,
		SlotID: game.SlotID,
		Role:   model.RoleOfficial,
		From:   game.Official,
		To:     &team,
	})
	game.Official = &team
	return nil
}
