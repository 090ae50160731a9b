package standings

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/gameday/internal/model"
)

var (
	ErrEmptyStage       = errors.New("standing has no games")
	ErrStageNotFinished = errors.New("standing is not finished")
	ErrMissingResult    = errors.New("game has no result row")
)

// Entry is one row of a stage table.
type Entry struct {
	Team          model.TeamID `json:"team"`
	Rank          int          `json:"rank"`
	Games         int          `json:"games"`
	Wins          int          `json:"wins"`
	Draws         int          `json:"draws"`
	Losses        int          `json:"losses"`
	Points        int          `json:"points"`
	PointsFor     int          `json:"points_for"`
	PointsAgainst int          `json:"points_against"`
	Diff          int          `json:"diff"`
}

// TieBreaker orders a group of teams that tie on the primary criteria.
// Scores returns a value per team; higher ranks first.
type TieBreaker interface {
	Name() string
	Scores(tied []model.TeamID, games []model.Game, rule model.PointRule) map[model.TeamID]int
}

// Option configures Rank.
type Option func(*options)

type options struct {
	tieBreakers []TieBreaker
}

// WithTieBreakers appends tie-breakers applied after the primary criteria.
func WithTieBreakers(tbs ...TieBreaker) Option {
	return func(o *options) {
		o.tieBreakers = append(o.tieBreakers, tbs...)
	}
}

// SortGames orders games by (scheduled, field, id) in place.
func SortGames(games []model.Game) {
	sort.SliceStable(games, func(i, j int) bool {
		if !games[i].Scheduled.Equal(games[j].Scheduled) {
			return games[i].Scheduled.Before(games[j].Scheduled)
		}
		if games[i].Field != games[j].Field {
			return games[i].Field < games[j].Field
		}
		return games[i].ID < games[j].ID
	})
}

// InStanding returns the games tagged with a standing label, sorted.
func InStanding(games []model.Game, standing string) []model.Game {
	var out []model.Game
	for _, g := range games {
		if g.Standing == standing {
			out = append(out, g)
		}
	}
	SortGames(out)
	return out
}

// Finished reports whether a standing has at least one game and all of its
// games are finished.
func Finished(games []model.Game, standing string) bool {
	found := false
	for _, g := range games {
		if g.Standing != standing {
			continue
		}
		found = true
		if g.Status != model.StatusFinished {
			return false
		}
	}
	return found
}

// checkStage verifies the Rank precondition over a stage's games.
func checkStage(games []model.Game) error {
	if len(games) == 0 {
		return ErrEmptyStage
	}
	for _, g := range games {
		if g.Status != model.StatusFinished {
			return fmt.Errorf("%w: game %d is %s", ErrStageNotFinished, g.ID, g.Status)
		}
		if g.Home == nil || g.Away == nil {
			return fmt.Errorf("%w: game %d", ErrMissingResult, g.ID)
		}
	}
	return nil
}

// Rank computes the ordered table for one stage.
// Every game must be finished and carry both result rows.
func Rank(games []model.Game, rule model.PointRule, opts ...Option) ([]Entry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sorted := make([]model.Game, len(games))
	copy(sorted, games)
	SortGames(sorted)
	if err := checkStage(sorted); err != nil {
		return nil, err
	}

	var order []model.TeamID
	rows := make(map[model.TeamID]*Entry)
	row := func(team model.TeamID) *Entry {
		e, ok := rows[team]
		if !ok {
			e = &Entry{Team: team}
			rows[team] = e
			order = append(order, team)
		}
		return e
	}

	for _, g := range sorted {
		home, away := row(g.Home.Team), row(g.Away.Team)
		record(home, g.Home.Score, g.Away.Score, rule)
		record(away, g.Away.Score, g.Home.Score, rule)
	}

	entries := make([]Entry, len(order))
	for i, team := range order {
		entries[i] = *rows[team]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return comparePrimary(entries[i], entries[j]) < 0
	})

	var ranked []Entry
	for _, group := range primaryGroups(entries) {
		for _, run := range breakTies(group, sorted, rule, o.tieBreakers) {
			rank := len(ranked) + 1
			for _, e := range run {
				e.Rank = rank
				ranked = append(ranked, e)
			}
		}
	}
	return ranked, nil
}

func record(e *Entry, scored, conceded int, rule model.PointRule) {
	e.Games++
	e.PointsFor += scored
	e.PointsAgainst += conceded
	e.Diff = e.PointsFor - e.PointsAgainst
	switch {
	case scored > conceded:
		e.Wins++
		e.Points += rule.Win
	case scored == conceded:
		e.Draws++
		e.Points += rule.Draw
	default:
		e.Losses++
		e.Points += rule.Loss
	}
}

// comparePrimary returns <0 when a ranks ahead of b.
func comparePrimary(a, b Entry) int {
	switch {
	case a.Points != b.Points:
		return b.Points - a.Points
	case a.Diff != b.Diff:
		return b.Diff - a.Diff
	case a.PointsFor != b.PointsFor:
		return b.PointsFor - a.PointsFor
	default:
		return a.PointsAgainst - b.PointsAgainst
	}
}

// primaryGroups splits sorted entries into runs tied on the primary criteria.
func primaryGroups(entries []Entry) [][]Entry {
	var groups [][]Entry
	for i, e := range entries {
		if i > 0 && comparePrimary(entries[i-1], e) == 0 {
			groups[len(groups)-1] = append(groups[len(groups)-1], e)
			continue
		}
		groups = append(groups, []Entry{e})
	}
	return groups
}

// breakTies applies tie-breakers recursively to a tied group and returns the
// ordered runs that remain tied.
func breakTies(group []Entry, games []model.Game, rule model.PointRule, tbs []TieBreaker) [][]Entry {
	if len(group) < 2 || len(tbs) == 0 {
		return [][]Entry{group}
	}

	teams := make([]model.TeamID, len(group))
	for i, e := range group {
		teams[i] = e.Team
	}
	scores := tbs[0].Scores(teams, games, rule)

	sort.SliceStable(group, func(i, j int) bool {
		return scores[group[i].Team] > scores[group[j].Team]
	})

	var out [][]Entry
	start := 0
	for i := 1; i <= len(group); i++ {
		if i < len(group) && scores[group[i].Team] == scores[group[start].Team] {
			continue
		}
		out = append(out, breakTies(group[start:i], games, rule, tbs[1:])...)
		start = i
	}
	return out
}
