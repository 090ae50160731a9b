package standings

import (
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// Advance is one row of a stage's advancement table.
type Advance struct {
	GameID int64
	Winner bool
	Team   model.TeamID
	// Drawn is set when the game ended level; Team is then meaningless.
	Drawn bool
}

// Advancement flattens a finished stage into winner/loser pairs.
// Index 2k is the winner of the k-th game in (scheduled, field, id) order,
// index 2k+1 its loser.
func Advancement(games []model.Game) ([]Advance, error) {
	sorted := make([]model.Game, len(games))
	copy(sorted, games)
	SortGames(sorted)
	if err := checkStage(sorted); err != nil {
		return nil, err
	}

	table := make([]Advance, 0, 2*len(sorted))
	for _, g := range sorted {
		h, a := g.Home, g.Away
		switch {
		case h.Score > a.Score:
			table = append(table,
				Advance{GameID: g.ID, Winner: true, Team: h.Team},
				Advance{GameID: g.ID, Team: a.Team})
		case a.Score > h.Score:
			table = append(table,
				Advance{GameID: g.ID, Winner: true, Team: a.Team},
				Advance{GameID: g.ID, Team: h.Team})
		default:
			table = append(table,
				Advance{GameID: g.ID, Winner: true, Drawn: true},
				Advance{GameID: g.ID, Drawn: true})
		}
	}
	return table, nil
}

// At returns the advancement row at index i.
func At(table []Advance, i int) (Advance, error) {
	if i < 0 || i >= len(table) {
		return Advance{}, fmt.Errorf("advancement index %d out of range (table has %d rows)", i, len(table))
	}
	return table[i], nil
}
