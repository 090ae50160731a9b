package standings

import "github.com/roach88/gameday/internal/model"

// HeadToHead ranks tied teams by the points they earned in games played
// among themselves.
type HeadToHead struct{}

func (HeadToHead) Name() string { return "head_to_head" }

func (HeadToHead) Scores(tied []model.TeamID, games []model.Game, rule model.PointRule) map[model.TeamID]int {
	return miniTable(tied, games, func(scored, conceded int) int {
		switch {
		case scored > conceded:
			return rule.Win
		case scored == conceded:
			return rule.Draw
		default:
			return rule.Loss
		}
	})
}

// HeadToHeadDiff ranks tied teams by point differential in games played
// among themselves.
type HeadToHeadDiff struct{}

func (HeadToHeadDiff) Name() string { return "head_to_head_diff" }

func (HeadToHeadDiff) Scores(tied []model.TeamID, games []model.Game, _ model.PointRule) map[model.TeamID]int {
	return miniTable(tied, games, func(scored, conceded int) int {
		return scored - conceded
	})
}

func miniTable(tied []model.TeamID, games []model.Game, value func(scored, conceded int) int) map[model.TeamID]int {
	in := make(map[model.TeamID]bool, len(tied))
	scores := make(map[model.TeamID]int, len(tied))
	for _, t := range tied {
		in[t] = true
		scores[t] = 0
	}
	for _, g := range games {
		if g.Home == nil || g.Away == nil {
			continue
		}
		if !in[g.Home.Team] || !in[g.Away.Team] {
			continue
		}
		scores[g.Home.Team] += value(g.Home.Score, g.Away.Score)
		scores[g.Away.Team] += value(g.Away.Score, g.Home.Score)
	}
	return scores
}

// ByName resolves a configured tie-breaker name.
func ByName(name string) (TieBreaker, bool) {
	switch name {
	case HeadToHead{}.Name():
		return HeadToHead{}, true
	case HeadToHeadDiff{}.Name():
		return HeadToHeadDiff{}, true
	}
	return nil, false
}
