package model

import "fmt"

// GameStatus is the lifecycle state of a concrete game.
//
// Lifecycle:
//
//	planned → started → halftime → finished
//
// Only the transition into finished triggers bracket resolution.
type GameStatus string

const (
	StatusPlanned  GameStatus = "planned"
	StatusStarted  GameStatus = "started"
	StatusHalftime GameStatus = "halftime"
	StatusFinished GameStatus = "finished"
)

var nextStatus = map[GameStatus][]GameStatus{
	StatusPlanned:  {StatusStarted},
	StatusStarted:  {StatusHalftime, StatusFinished},
	StatusHalftime: {StatusFinished},
}

// CanTransition reports whether s may move to next.
func (s GameStatus) CanTransition(next GameStatus) bool {
	for _, n := range nextStatus[s] {
		if n == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true for finished games.
func (s GameStatus) IsTerminal() bool {
	return s == StatusFinished
}

// String returns the string form of the status.
func (s GameStatus) String() string {
	return string(s)
}

// ParseGameStatus parses a status name.
func ParseGameStatus(s string) (GameStatus, error) {
	switch GameStatus(s) {
	case StatusPlanned, StatusStarted, StatusHalftime, StatusFinished:
		return GameStatus(s), nil
	default:
		return "", fmt.Errorf("unknown game status %q", s)
	}
}
