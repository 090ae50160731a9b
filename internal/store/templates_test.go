package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gameday/internal/model"
)

func TestSaveTemplate_RoundTrip(t *testing.T) {
	s := createTestStore(t)

	var saved *model.Template
	inTx(t, s, func(ctx context.Context, tx *Tx) {
		var err error
		saved, err = tx.SaveTemplate(ctx, createTestTemplate())
		require.NoError(t, err)
	})

	require.NotZero(t, saved.ID)
	assert.Equal(t, model.DefaultPointRule, saved.Points, "unset point rule is stored as the default")
	assert.Equal(t, saved.Slots[1].ID, saved.Rules[0].SlotID, "rule is rebound to the stored slot id")

	inTx(t, s, func(ctx context.Context, tx *Tx) {
		got, err := tx.Template(ctx, saved.ID)
		require.NoError(t, err)

		assert.Equal(t, "Mini Cup", got.Name)
		assert.Nil(t, got.OrganizationID)
		assert.Nil(t, got.Ties)
		require.Len(t, got.Slots, 2)
		assert.True(t, got.Slots[0].Home.Equal(model.Indexed(0, 0)))
		assert.True(t, got.Slots[1].Home.Equal(model.Named("Sieger Gruppe 1")))
		assert.True(t, got.Slots[0].Official.IsNone())
		assert.Equal(t, 10, got.Slots[0].BreakAfter)

		require.Len(t, got.Rules, 1)
		rule := got.Rules[0]
		assert.Equal(t, "Gruppe 1", rule.PreFinished)
		require.Len(t, rule.Teams, 2)
		away, ok := rule.Team(model.RoleAway)
		require.True(t, ok)
		require.NotNil(t, away.Points)
		assert.Equal(t, 0, *away.Points)
		assert.Nil(t, away.Advancement)

		wantFP, err := saved.Fingerprint()
		require.NoError(t, err)
		gotFP, err := got.Fingerprint()
		require.NoError(t, err)
		assert.Equal(t, wantFP, gotFP)
	})
}

func TestSaveTemplate_UnknownRuleSlot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tmpl := createTestTemplate()
	tmpl.Rules[0].SlotID = 99
	err := s.InTx(ctx, func(tx *Tx) error {
		_, err := tx.SaveTemplate(ctx, tmpl)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown slot 99")
	assert.Zero(t, tmpl.ID)
	assert.Equal(t, []int64{1, 2}, []int64{tmpl.Slots[0].ID, tmpl.Slots[1].ID}, "inserted slots keep their provisional ids")

	inTx(t, s, func(ctx context.Context, tx *Tx) {
		list, err := tx.ListTemplates(ctx)
		require.NoError(t, err)
		assert.Empty(t, list, "failed save leaves nothing behind")
	})
}

func TestSaveTemplate_RollbackLeavesInputUntouched(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	abort := errors.New("abort")

	tmpl := createTestTemplate()
	var saved *model.Template
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		if saved, err = tx.SaveTemplate(ctx, tmpl); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	require.NotNil(t, saved)
	assert.NotZero(t, saved.ID)
	assert.Zero(t, tmpl.ID)
	assert.Equal(t, int64(2), tmpl.Rules[0].SlotID)
	assert.Zero(t, tmpl.Rules[0].ID)
	assert.True(t, tmpl.Points.IsZero())

	// The same value can be saved again once the transaction is retried.
	inTx(t, s, func(ctx context.Context, tx *Tx) {
		again, err := tx.SaveTemplate(ctx, tmpl)
		require.NoError(t, err)
		require.Len(t, again.Rules, 1)
		assert.Equal(t, again.Slots[1].ID, again.Rules[0].SlotID)
	})
}

func TestSaveTemplate_TiePolicy(t *testing.T) {
	s := createTestStore(t)

	cases := []*model.TiePolicy{
		{TieBreakers: []string{"head_to_head", "head_to_head_diff"}, Strict: true},
		{TieBreakers: []string{}},
	}
	for _, want := range cases {
		inTx(t, s, func(ctx context.Context, tx *Tx) {
			tmpl := createTestTemplate()
			tmpl.Ties = want
			saved, err := tx.SaveTemplate(ctx, tmpl)
			require.NoError(t, err)

			got, err := tx.Template(ctx, saved.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got.Ties)

			clone, err := tx.CloneTemplate(ctx, saved.ID, "Kopie")
			require.NoError(t, err)
			assert.Equal(t, want, clone.Ties)
		})
	}
}

func TestCloneTemplate_Independent(t *testing.T) {
	s := createTestStore(t)

	inTx(t, s, func(ctx context.Context, tx *Tx) {
		src, err := tx.SaveTemplate(ctx, createTestTemplate())
		require.NoError(t, err)

		clone, err := tx.CloneTemplate(ctx, src.ID, "Mini Cup (Kopie)")
		require.NoError(t, err)
		assert.NotEqual(t, src.ID, clone.ID)
		assert.NotEqual(t, src.Slots[0].ID, clone.Slots[0].ID)

		require.NoError(t, tx.DeleteTemplate(ctx, src.ID))

		got, err := tx.Template(ctx, clone.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mini Cup (Kopie)", got.Name)
		assert.Len(t, got.Slots, 2)
		assert.Len(t, got.Rules, 1)

		list, err := tx.ListTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Nil(t, list[0].Slots, "list returns headers only")
	})
}

func TestTemplate_NotFound(t *testing.T) {
	s := createTestStore(t)

	inTx(t, s, func(ctx context.Context, tx *Tx) {
		_, err := tx.Template(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, tx.DeleteTemplate(ctx, 42), ErrNotFound)
	})
}

func TestTemplate_AmbiguousRowRejected(t *testing.T) {
	s := createTestStore(t)

	var id int64
	inTx(t, s, func(ctx context.Context, tx *Tx) {
		tmpl, err := tx.SaveTemplate(ctx, createTestTemplate())
		require.NoError(t, err)
		id = tmpl.ID
	})

	// Older rows predating the CHECK constraints can hold both forms.
	_, err := s.db.Exec(`PRAGMA ignore_check_constraints = ON`)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE template_slots SET home_name = 'Sieger' WHERE home_group IS NOT NULL`)
	require.NoError(t, err)

	inTx(t, s, func(ctx context.Context, tx *Tx) {
		_, err := tx.Template(ctx, id)
		assert.ErrorIs(t, err, ErrAmbiguousPlaceholder)
	})
}
