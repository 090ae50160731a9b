package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gameday/internal/apply"
	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/seed"
	"github.com/roach88/gameday/internal/store"
	"github.com/roach88/gameday/internal/testutil"
)

type fixture struct {
	svc     *Service
	tmpl    *model.Template
	gameday int64
	teams   []model.TeamID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(st,
		WithLogger(logger),
		WithApplyEngine(apply.New(
			apply.WithClock(testutil.NewFixedClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))),
			apply.WithIDGenerator(testutil.NewSequenceGenerator("")),
		)),
	)

	tmpl, err := seed.Load(filepath.Join("..", "seed", "testdata", "four_teams.yaml"))
	require.NoError(t, err)
	ctx := context.Background()
	tmpl, _, err = svc.ImportTemplate(ctx, tmpl)
	require.NoError(t, err)

	f := &fixture{svc: svc, tmpl: tmpl}
	require.NoError(t, st.InTx(ctx, func(tx *store.Tx) error {
		for _, name := range []string{"T1", "T2", "T3", "T4"} {
			team, err := tx.CreateTeam(ctx, name)
			if err != nil {
				return err
			}
			f.teams = append(f.teams, team.ID)
		}
		gd := &model.Gameday{Name: "Spieltag", Start: time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC), Fields: 1}
		if err := tx.CreateGameday(ctx, gd); err != nil {
			return err
		}
		f.gameday = gd.ID
		return nil
	}))
	return f
}

func (f *fixture) apply(t *testing.T) *apply.Result {
	t.Helper()
	mapping := map[model.TeamKey]model.TeamID{}
	for i, id := range f.teams {
		mapping[model.TeamKey{Group: 0, Team: i}] = id
	}
	result, err := f.svc.Apply(context.Background(), f.gameday, f.tmpl.ID, mapping, "test")
	require.NoError(t, err)
	return result
}

func (f *fixture) schedule(t *testing.T) []model.Game {
	t.Helper()
	games, err := f.svc.Schedule(context.Background(), f.gameday)
	require.NoError(t, err)
	return games
}

func TestImportTemplate_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := f.tmpl.Clone()
	bad.Name = "broken"
	bad.NumTeams = 3

	saved, report, err := f.svc.ImportTemplate(ctx, bad)
	require.Error(t, err)
	assert.True(t, apply.IsApplyError(err, apply.CodeTemplateInvalid))
	assert.Nil(t, saved)
	assert.False(t, report.Valid())
	assert.Equal(t, "TEMPLATE_INVALID", Code(err))

	require.NoError(t, f.svc.Store().InTx(ctx, func(tx *store.Tx) error {
		list, err := tx.ListTemplates(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1, "only the fixture template is stored")
		return nil
	}))
}

func TestFinish_ResolvesFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result := f.apply(t)
	require.Len(t, result.GamesCreated, 3)

	games := f.schedule(t)
	report, err := f.svc.Finish(ctx, games[0].ID, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, report.Changes, "group not finished yet")

	report, err = f.svc.Finish(ctx, games[1].ID, 3, 1)
	require.NoError(t, err)
	assert.Len(t, report.Changes, 3)

	final := f.schedule(t)[2]
	require.NotNil(t, final.Home)
	require.NotNil(t, final.Away)
	require.NotNil(t, final.Official)
	assert.Equal(t, f.teams[2], final.Home.Team, "T3 leads on goal difference")
	assert.Equal(t, f.teams[0], final.Away.Team)
	assert.Equal(t, f.teams[1], *final.Official)
	assert.Equal(t, model.StatusFinished, f.schedule(t)[1].Status)

	_, err = f.svc.Finish(ctx, games[1].ID, 3, 1)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", Code(err))

	// the final now has both result rows and can be finished
	_, err = f.svc.Finish(ctx, final.ID, 1, 0)
	require.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t)
	games := f.schedule(t)

	_, err := f.svc.SetStatus(ctx, games[0].ID, model.StatusFinished)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", Code(err))

	report, err := f.svc.SetStatus(ctx, games[0].ID, model.StatusStarted)
	require.NoError(t, err)
	assert.Empty(t, report.Changes)

	require.NoError(t, f.svc.Score(ctx, games[0].ID, 1, 1))
	_, err = f.svc.SetStatus(ctx, games[0].ID, model.StatusHalftime)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, games[0].ID, model.StatusFinished)
	require.NoError(t, err)

	got := f.schedule(t)[0]
	assert.Equal(t, model.StatusFinished, got.Status)
	assert.Equal(t, 1, got.Home.Score)
	assert.Equal(t, 1, got.Away.Score)

	_, err = f.svc.SetStatus(ctx, 9999, model.StatusStarted)
	assert.Equal(t, "NOT_FOUND", Code(err))
}

func TestResolve_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t)
	games := f.schedule(t)

	_, err := f.svc.Finish(ctx, games[0].ID, 2, 1)
	require.NoError(t, err)
	_, err = f.svc.Finish(ctx, games[1].ID, 3, 1)
	require.NoError(t, err)

	report, err := f.svc.Resolve(ctx, games[1].ID)
	require.NoError(t, err)
	assert.Empty(t, report.Changes)
}

func TestAudit(t *testing.T) {
	f := newFixture(t)
	f.apply(t)
	f.apply(t)

	records, err := f.svc.Audit(context.Background(), f.gameday)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "audit-0001", records[0].ID)
	assert.Equal(t, "audit-0002", records[1].ID)
	assert.Equal(t, "test", records[0].Actor)
}

func TestApply_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, f.gameday, f.tmpl.ID, nil, "test")
	require.Error(t, err)
	assert.Equal(t, "MAPPING_INCOMPLETE", Code(err))

	_, err = f.svc.Apply(ctx, f.gameday, 404, nil, "test")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", Code(err))

	_, err = f.svc.Schedule(ctx, 404)
	assert.Equal(t, "NOT_FOUND", Code(err))
}
