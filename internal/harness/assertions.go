package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/gameday/internal/model"
)

// unassigned is how the trace and expect steps spell an empty role.
const unassigned = "-"

// AssertionError is one failed expectation of an expect step.
type AssertionError struct {
	Step     int    // 0-based step index
	Slot     int    // 1-based slot position
	Field    string // home, away, official or status
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("steps[%d]: slot %d %s: expected %s, got %s", e.Step, e.Slot, e.Field, e.Expected, e.Actual)
}

// checkExpect compares a game against an expect step. names maps team ids
// to display names.
func checkExpect(step int, exp *ExpectStep, game *model.Game, names map[model.TeamID]string) []*AssertionError {
	var failures []*AssertionError
	check := func(field string, want *string, got string) {
		if want == nil {
			return
		}
		if !sameName(*want, got) {
			failures = append(failures, &AssertionError{
				Step: step, Slot: exp.Slot, Field: field, Expected: *want, Actual: got,
			})
		}
	}

	check("home", exp.Home, teamName(game.TeamFor(model.RoleHome), names))
	check("away", exp.Away, teamName(game.TeamFor(model.RoleAway), names))
	check("official", exp.Official, teamName(game.Official, names))
	check("status", exp.Status, string(game.Status))
	return failures
}

func sameName(want, got string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		want = unassigned
	}
	return model.NormalizeLabel(want) == got
}

func teamName(id *model.TeamID, names map[model.TeamID]string) string {
	if id == nil {
		return unassigned
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}
