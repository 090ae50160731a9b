package resolve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gameday/internal/apply"
	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/standings"
	"github.com/roach88/gameday/internal/store"
	"github.com/roach88/gameday/internal/testutil"
)

func intp(n int) *int { return &n }

type fixture struct {
	store   *store.Store
	tmpl    *model.Template
	gameday int64
	teams   []model.TeamID // T1..T4
	engine  *Engine
}

func newFixture(t *testing.T, tmpl *model.Template, opts ...EngineOption) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s, tmpl: tmpl, engine: New(opts...)}
	ctx := context.Background()
	applier := apply.New(
		apply.WithClock(testutil.NewFixedClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))),
		apply.WithIDGenerator(testutil.NewSequenceGenerator("")),
	)
	require.NoError(t, s.InTx(ctx, func(tx *store.Tx) error {
		saved, err := tx.SaveTemplate(ctx, tmpl)
		if err != nil {
			return err
		}
		f.tmpl = saved
		mapping := map[model.TeamKey]model.TeamID{}
		for i, name := range []string{"T1", "T2", "T3", "T4"} {
			team, err := tx.CreateTeam(ctx, name)
			if err != nil {
				return err
			}
			f.teams = append(f.teams, team.ID)
			mapping[model.TeamKey{Group: 0, Team: i}] = team.ID
		}
		gd := &model.Gameday{Name: "Spieltag", Start: time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC), Fields: tmpl.NumFields}
		if err := tx.CreateGameday(ctx, gd); err != nil {
			return err
		}
		f.gameday = gd.ID
		_, err = applier.Apply(ctx, tx, saved, gd.ID, mapping, "test")
		return err
	}))
	return f
}

func (f *fixture) game(t *testing.T, slot int) model.Game {
	t.Helper()
	ctx := context.Background()
	var found *model.Game
	require.NoError(t, f.store.InTx(ctx, func(tx *store.Tx) error {
		games, err := tx.GamedayGames(ctx, f.gameday)
		if err != nil {
			return err
		}
		for i := range games {
			if games[i].SlotID == f.tmpl.Slots[slot].ID {
				found = &games[i]
			}
		}
		return nil
	}))
	require.NotNil(t, found, "no game for slot index %d", slot)
	return *found
}

// finish scores and finishes the game of a slot index, then runs the
// resolver in the same transaction.
func (f *fixture) finish(t *testing.T, slot, home, away int) (*Report, error) {
	t.Helper()
	g := f.game(t, slot)
	ctx := context.Background()
	var report *Report
	err := f.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.SetScore(ctx, g.ID, home, away); err != nil {
			return err
		}
		for _, st := range []model.GameStatus{model.StatusStarted, model.StatusFinished} {
			if err := tx.SetGameStatus(ctx, g.ID, st); err != nil {
				return err
			}
		}
		var err error
		report, err = f.engine.OnGameFinished(ctx, tx, g.ID)
		return err
	})
	return report, err
}

func (f *fixture) resolveAgain(t *testing.T, slot int) *Report {
	t.Helper()
	g := f.game(t, slot)
	ctx := context.Background()
	var report *Report
	require.NoError(t, f.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		report, err = f.engine.OnGameFinished(ctx, tx, g.ID)
		return err
	}))
	return report
}

func homeTeam(g model.Game) *model.TeamID { return g.TeamFor(model.RoleHome) }
func awayTeam(g model.Game) *model.TeamID { return g.TeamFor(model.RoleAway) }

// groupTemplate: two group games on two fields feed a ranked final.
func groupTemplate() *model.Template {
	return &model.Template{
		Name: "Gruppe", NumTeams: 4, NumFields: 2, NumGroups: 1, GameDuration: 60,
		Slots: []model.Slot{
			{ID: 1, Field: 1, SlotOrder: 1, Stage: "Vorrunde", Standing: "Gruppe 1",
				Home: model.Indexed(0, 0), Away: model.Indexed(0, 1)},
			{ID: 2, Field: 2, SlotOrder: 1, Stage: "Vorrunde", Standing: "Gruppe 1",
				Home: model.Indexed(0, 2), Away: model.Indexed(0, 3)},
			{ID: 3, Field: 1, SlotOrder: 2, Stage: "Finalrunde", Standing: "Finale",
				Home: model.Named("Erster Gruppe 1"), Away: model.Named("Zweiter Gruppe 1"),
				Official: model.Named("Dritter Gruppe 1")},
		},
		Rules: []model.UpdateRule{{
			SlotID: 3, Name: "Finale", PreFinished: "Gruppe 1",
			Teams: []model.UpdateRuleTeam{
				{Role: model.RoleHome, Standing: "Gruppe 1", Place: 1},
				{Role: model.RoleAway, Standing: "Gruppe 1", Place: 2},
				{Role: model.RoleOfficial, Standing: "Gruppe 1", Place: 3},
			},
		}},
	}
}

// bracketTemplate: semifinals feed a third-place game and a final through
// the advancement table; the final's official is the third-place winner.
func bracketTemplate() *model.Template {
	return &model.Template{
		Name: "KO", NumTeams: 4, NumFields: 2, NumGroups: 1, GameDuration: 60,
		Slots: []model.Slot{
			{ID: 1, Field: 1, SlotOrder: 1, Stage: "Halbfinale", Standing: "HF",
				Home: model.Indexed(0, 0), Away: model.Indexed(0, 3)},
			{ID: 2, Field: 2, SlotOrder: 1, Stage: "Halbfinale", Standing: "HF",
				Home: model.Indexed(0, 1), Away: model.Indexed(0, 2)},
			{ID: 3, Field: 1, SlotOrder: 2, Stage: "Platzierung", Standing: "Platz 3",
				Home: model.Named("Verlierer HF1"), Away: model.Named("Verlierer HF2")},
			{ID: 4, Field: 1, SlotOrder: 3, Stage: "Finale", Standing: "Finale",
				Home: model.Named("Sieger HF1"), Away: model.Named("Sieger HF2"),
				Official: model.Named("Sieger Platz 3")},
		},
		Rules: []model.UpdateRule{
			{SlotID: 3, Name: "Platz 3", PreFinished: "HF", Teams: []model.UpdateRuleTeam{
				{Role: model.RoleHome, Standing: "HF", Place: 1, Advancement: intp(1)},
				{Role: model.RoleAway, Standing: "HF", Place: 1, Advancement: intp(3)},
			}},
			{SlotID: 4, Name: "Finale", PreFinished: "HF", Teams: []model.UpdateRuleTeam{
				{Role: model.RoleHome, Standing: "HF", Place: 1, Advancement: intp(0)},
				{Role: model.RoleAway, Standing: "HF", Place: 1, Advancement: intp(2)},
				{Role: model.RoleOfficial, Standing: "Platz 3", Place: 1, Advancement: intp(0),
					PreFinishedOverride: "Platz 3"},
			}},
		},
	}
}

func TestOnGameFinished_RankedFinal(t *testing.T) {
	f := newFixture(t, groupTemplate())
	t1, t3, t4 := f.teams[0], f.teams[2], f.teams[3]

	final := f.game(t, 2)
	assert.Nil(t, final.Home, "final starts unresolved")
	assert.Nil(t, final.Away)

	report, err := f.finish(t, 0, 21, 7)
	require.NoError(t, err)
	assert.Empty(t, report.Changes, "stage not finished yet")
	assert.Nil(t, f.game(t, 2).Home)

	report, err = f.finish(t, 1, 14, 13)
	require.NoError(t, err)
	require.Len(t, report.Changes, 3)

	// T1 (+14) and T3 (+1) won; T4 (-1) is the better loser
	final = f.game(t, 2)
	require.NotNil(t, homeTeam(final))
	assert.Equal(t, t1, *homeTeam(final))
	assert.Equal(t, t3, *awayTeam(final))
	require.NotNil(t, final.Official)
	assert.Equal(t, t4, *final.Official)

	assert.Equal(t, model.RoleHome, report.Changes[0].Role)
	assert.Nil(t, report.Changes[0].From)
	assert.Equal(t, model.RoleOfficial, report.Changes[2].Role)
}

func TestOnGameFinished_Idempotent(t *testing.T) {
	f := newFixture(t, groupTemplate())

	_, err := f.finish(t, 0, 21, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 13)
	require.NoError(t, err)
	before := f.game(t, 2)

	report := f.resolveAgain(t, 1)
	assert.Empty(t, report.Changes)
	report = f.resolveAgain(t, 0)
	assert.Empty(t, report.Changes)

	after := f.game(t, 2)
	assert.Equal(t, before.Home, after.Home)
	assert.Equal(t, before.Away, after.Away)
	assert.Equal(t, before.Official, after.Official)
}

func TestOnGameFinished_OrderIndependent(t *testing.T) {
	a := newFixture(t, groupTemplate())
	_, err := a.finish(t, 0, 21, 7)
	require.NoError(t, err)
	_, err = a.finish(t, 1, 14, 13)
	require.NoError(t, err)

	b := newFixture(t, groupTemplate())
	_, err = b.finish(t, 1, 14, 13)
	require.NoError(t, err)
	_, err = b.finish(t, 0, 21, 7)
	require.NoError(t, err)

	fa, fb := a.game(t, 2), b.game(t, 2)
	assert.Equal(t, *homeTeam(fa), *homeTeam(fb))
	assert.Equal(t, *awayTeam(fa), *awayTeam(fb))
	assert.Equal(t, *fa.Official, *fb.Official)
}

func TestOnGameFinished_PointsFilter(t *testing.T) {
	tmpl := groupTemplate()
	// loser path: best team among those with zero points
	tmpl.Rules[0].Teams[1].Points = intp(0)
	tmpl.Rules[0].Teams[1].Place = 1
	f := newFixture(t, tmpl)

	_, err := f.finish(t, 0, 21, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 13)
	require.NoError(t, err)

	final := f.game(t, 2)
	assert.Equal(t, f.teams[3], *awayTeam(final))
}

func TestOnGameFinished_NoCandidate(t *testing.T) {
	tmpl := groupTemplate()
	tmpl.Rules[0].Teams[0].Place = 5
	f := newFixture(t, tmpl)

	_, err := f.finish(t, 0, 21, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 13)
	require.Error(t, err)
	assert.True(t, IsResolveError(err, CodeNoCandidate), "got %v", err)

	// the whole transaction, including the finish, rolled back
	assert.Equal(t, model.StatusPlanned, f.game(t, 1).Status)
	assert.Nil(t, f.game(t, 2).Away)
}

func TestOnGameFinished_StrictTies(t *testing.T) {
	f := newFixture(t, groupTemplate(), WithStrictTies())

	// identical records for the two winners
	_, err := f.finish(t, 0, 14, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 7)
	require.Error(t, err)
	assert.True(t, IsResolveError(err, CodeAmbiguousCandidate), "got %v", err)

	// the default mode falls back to insertion order
	g := newFixture(t, groupTemplate())
	_, err = g.finish(t, 0, 14, 7)
	require.NoError(t, err)
	_, err = g.finish(t, 1, 14, 7)
	require.NoError(t, err)
	assert.Equal(t, g.teams[0], *homeTeam(g.game(t, 2)))
	assert.Equal(t, g.teams[2], *awayTeam(g.game(t, 2)))
}

func TestOnGameFinished_TieBreakerOption(t *testing.T) {
	f := newFixture(t, groupTemplate(), WithTieBreakers(standings.HeadToHead{}), WithStrictTies())

	// T1 and T3 never met, so head-to-head cannot split them either
	_, err := f.finish(t, 0, 14, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 7)
	assert.True(t, IsResolveError(err, CodeAmbiguousCandidate))
}

func TestOnGameFinished_TemplateTiePolicyWins(t *testing.T) {
	tmpl := groupTemplate()
	tmpl.Ties = &model.TiePolicy{}
	f := newFixture(t, tmpl, WithStrictTies())

	// the stored lenient policy overrides the strict engine
	_, err := f.finish(t, 0, 14, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 14, 7)
	require.NoError(t, err)
	before := f.game(t, 2)
	require.NotNil(t, before.Official)

	// a later pass from an engine built with other options ranks the same
	f.engine = New(WithTieBreakers(standings.HeadToHeadDiff{}))
	report := f.resolveAgain(t, 1)
	assert.Empty(t, report.Changes)
	after := f.game(t, 2)
	assert.Equal(t, *before.Official, *after.Official)
	assert.Equal(t, *homeTeam(before), *homeTeam(after))

	strict := groupTemplate()
	strict.Ties = &model.TiePolicy{TieBreakers: []string{"head_to_head"}, Strict: true}
	g := newFixture(t, strict)
	_, err = g.finish(t, 0, 14, 7)
	require.NoError(t, err)
	_, err = g.finish(t, 1, 14, 7)
	assert.True(t, IsResolveError(err, CodeAmbiguousCandidate), "got %v", err)
}

func TestOnGameFinished_AdvancementBracket(t *testing.T) {
	f := newFixture(t, bracketTemplate())
	t1, t2, t3, t4 := f.teams[0], f.teams[1], f.teams[2], f.teams[3]

	report, err := f.finish(t, 0, 21, 14) // T1 beats T4
	require.NoError(t, err)
	assert.Empty(t, report.Changes)

	report, err = f.finish(t, 1, 7, 14) // T3 beats T2
	require.NoError(t, err)
	assert.Len(t, report.Changes, 4)

	third := f.game(t, 2)
	assert.Equal(t, t4, *homeTeam(third))
	assert.Equal(t, t2, *awayTeam(third))

	final := f.game(t, 3)
	assert.Equal(t, t1, *homeTeam(final))
	assert.Equal(t, t3, *awayTeam(final))
	assert.Nil(t, final.Official, "official waits for its own stage")

	report, err = f.finish(t, 2, 3, 10) // T2 wins third place
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, model.RoleOfficial, report.Changes[0].Role)

	final = f.game(t, 3)
	require.NotNil(t, final.Official)
	assert.Equal(t, t2, *final.Official)
	assert.Equal(t, t1, *homeTeam(final), "players are not disturbed")
}

func TestOnGameFinished_DrawnAdvancementIsAmbiguous(t *testing.T) {
	f := newFixture(t, bracketTemplate())

	_, err := f.finish(t, 0, 7, 7)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 7, 14)
	require.Error(t, err)
	assert.True(t, IsResolveError(err, CodeAmbiguousCandidate))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, model.RoleHome, re.Role)
	assert.Equal(t, "HF", re.Standing)
}

func TestOnGameFinished_StartedGamesAreNotRewritten(t *testing.T) {
	f := newFixture(t, bracketTemplate())

	_, err := f.finish(t, 0, 21, 14)
	require.NoError(t, err)
	_, err = f.finish(t, 1, 7, 14)
	require.NoError(t, err)

	final := f.game(t, 3)
	ctx := context.Background()
	require.NoError(t, f.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.SetGameStatus(ctx, final.ID, model.StatusStarted)
	}))

	report, err := f.finish(t, 2, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, report.Changes)
	assert.Nil(t, f.game(t, 3).Official)
}

func TestOnGameFinished_NoOps(t *testing.T) {
	f := newFixture(t, groupTemplate())

	t.Run("game not finished", func(t *testing.T) {
		report := f.resolveAgain(t, 0)
		assert.Empty(t, report.Changes)
	})

	t.Run("gameday without template", func(t *testing.T) {
		ctx := context.Background()
		var gameID int64
		require.NoError(t, f.store.InTx(ctx, func(tx *store.Tx) error {
			gd := &model.Gameday{Name: "Freundschaftsspiel", Start: time.Now(), Fields: 1}
			if err := tx.CreateGameday(ctx, gd); err != nil {
				return err
			}
			g := &model.Game{GamedayID: gd.ID, SlotID: 1, Field: 1, Scheduled: gd.Start,
				Stage: "x", Standing: "x", Status: model.StatusFinished}
			if err := tx.InsertGame(ctx, g); err != nil {
				return err
			}
			gameID = g.ID
			return nil
		}))

		require.NoError(t, f.store.InTx(ctx, func(tx *store.Tx) error {
			report, err := f.engine.OnGameFinished(ctx, tx, gameID)
			require.NoError(t, err)
			assert.Empty(t, report.Changes)
			return nil
		}))
	})

	t.Run("unknown game", func(t *testing.T) {
		ctx := context.Background()
		err := f.store.InTx(ctx, func(tx *store.Tx) error {
			_, err := f.engine.OnGameFinished(ctx, tx, 999)
			return err
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
