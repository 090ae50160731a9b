package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gameday/internal/model"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// inTx runs fn in a transaction and fails the test on error.
func inTx(t *testing.T, s *Store, fn func(ctx context.Context, tx *Tx)) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func intp(n int) *int { return &n }

// createTestTemplate builds a two-slot template: a group game feeding a
// final through one update rule. Slot ids are provisional.
func createTestTemplate() *model.Template {
	return &model.Template{
		Name:         "Mini Cup",
		NumTeams:     2,
		NumFields:    1,
		NumGroups:    1,
		GameDuration: 70,
		Slots: []model.Slot{
			{
				ID: 1, Field: 1, SlotOrder: 1, Stage: "Vorrunde", Standing: "Gruppe 1",
				Home: model.Indexed(0, 0), Away: model.Indexed(0, 1), BreakAfter: 10,
			},
			{
				ID: 2, Field: 1, SlotOrder: 2, Stage: "Finalrunde", Standing: "Finale",
				Home: model.Named("Sieger Gruppe 1"), Away: model.Named("Verlierer Gruppe 1"),
				Official: model.Indexed(0, 0),
			},
		},
		Rules: []model.UpdateRule{
			{
				SlotID: 2, Name: "Finale", PreFinished: "Gruppe 1",
				Teams: []model.UpdateRuleTeam{
					{Role: model.RoleHome, Standing: "Gruppe 1", Place: 1},
					{Role: model.RoleAway, Standing: "Gruppe 1", Place: 2, Points: intp(0)},
				},
			},
		},
	}
}

// createTestGameday inserts teams and a gameday and returns their ids.
func createTestGameday(t *testing.T, ctx context.Context, tx *Tx) (*model.Gameday, []model.Team) {
	t.Helper()
	var teams []model.Team
	for _, name := range []string{"Lions", "Tigers"} {
		team, err := tx.CreateTeam(ctx, name)
		require.NoError(t, err)
		teams = append(teams, team)
	}
	gd := &model.Gameday{
		Name:   "Spieltag 1",
		Start:  time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC),
		Fields: 2,
	}
	require.NoError(t, tx.CreateGameday(ctx, gd))
	return gd, teams
}
