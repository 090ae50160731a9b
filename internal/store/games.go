package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// InsertGame writes the game row (not its results) and sets g.ID.
func (t *Tx) InsertGame(ctx context.Context, g *model.Game) error {
	status := g.Status
	if status == "" {
		status = model.StatusPlanned
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO games (gameday_id, slot_id, field, scheduled, stage, standing, status, official)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.GamedayID,
		g.SlotID,
		g.Field,
		formatTime(g.Scheduled),
		g.Stage,
		g.Standing,
		string(status),
		nullTeam(g.Official),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	g.Status = status
	return nil
}

// InsertResult writes one side of a game and sets r.ID.
func (t *Tx) InsertResult(ctx context.Context, r *model.Result) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO results (game_id, team, is_home, score)
		VALUES (?, ?, ?, ?)
	`, r.GameID, int64(r.Team), r.IsHome, r.Score)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Game loads one game with its result rows.
func (t *Tx) Game(ctx context.Context, id int64) (*model.Game, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, gameday_id, slot_id, field, scheduled, stage, standing, status, official
		FROM games
		WHERE id = ?
	`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}

	results, err := t.results(ctx, `WHERE game_id = ?`, id)
	if err != nil {
		return nil, err
	}
	attachResults(&g, results[g.ID])
	return &g, nil
}

// GamedayGames returns every game of a gameday ordered by
// (scheduled, field, id).
func (t *Tx) GamedayGames(ctx context.Context, gamedayID int64) ([]model.Game, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, gameday_id, slot_id, field, scheduled, stage, standing, status, official
		FROM games
		WHERE gameday_id = ?
		ORDER BY scheduled ASC, field ASC, id ASC
	`, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	results, err := t.results(ctx,
		`WHERE game_id IN (SELECT id FROM games WHERE gameday_id = ?)`, gamedayID)
	if err != nil {
		return nil, err
	}
	for i := range games {
		attachResults(&games[i], results[games[i].ID])
	}
	return games, nil
}

// DeleteGames removes every game of a gameday. Result rows cascade.
func (t *Tx) DeleteGames(ctx context.Context, gamedayID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM games WHERE gameday_id = ?`, gamedayID); err != nil {
		return fmt.Errorf("delete games of gameday %d: %w", gamedayID, err)
	}
	return nil
}

// SetGameStatus moves a game along the status state machine.
func (t *Tx) SetGameStatus(ctx context.Context, gameID int64, to model.GameStatus) error {
	var current string
	err := t.tx.QueryRowContext(ctx, `SELECT status FROM games WHERE id = ?`, gameID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load game %d status: %w", gameID, err)
	}

	from := model.GameStatus(current)
	if !from.CanTransition(to) {
		return fmt.Errorf("game %d %s → %s: %w", gameID, from, to, ErrInvalidTransition)
	}

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE games SET status = ? WHERE id = ?`, string(to), gameID); err != nil {
		return fmt.Errorf("set game %d status: %w", gameID, err)
	}
	return nil
}

// SetScore records both scores. The game must already have both result rows.
func (t *Tx) SetScore(ctx context.Context, gameID int64, home, away int) error {
	for _, side := range []struct {
		isHome bool
		score  int
	}{{true, home}, {false, away}} {
		res, err := t.tx.ExecContext(ctx,
			`UPDATE results SET score = ? WHERE game_id = ? AND is_home = ?`,
			side.score, gameID, side.isHome)
		if err != nil {
			return fmt.Errorf("set score of game %d: %w", gameID, err)
		}
		if err := requireAffected(res, fmt.Sprintf("result of game %d (home=%t)", gameID, side.isHome)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateResultTeam reassigns the team of an existing result row.
func (t *Tx) UpdateResultTeam(ctx context.Context, resultID int64, team model.TeamID) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE results SET team = ? WHERE id = ?`, int64(team), resultID)
	if err != nil {
		return fmt.Errorf("update result %d: %w", resultID, err)
	}
	return requireAffected(res, fmt.Sprintf("result %d", resultID))
}

// UpdateOfficial sets or clears the officiating team of a game.
func (t *Tx) UpdateOfficial(ctx context.Context, gameID int64, team *model.TeamID) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE games SET official = ? WHERE id = ?`, nullTeam(team), gameID)
	if err != nil {
		return fmt.Errorf("update official of game %d: %w", gameID, err)
	}
	return requireAffected(res, fmt.Sprintf("game %d", gameID))
}

func scanGame(row rowScanner) (model.Game, error) {
	var g model.Game
	var scheduled, status string
	var official sql.NullInt64
	if err := row.Scan(
		&g.ID, &g.GamedayID, &g.SlotID, &g.Field, &scheduled,
		&g.Stage, &g.Standing, &status, &official,
	); err != nil {
		return model.Game{}, err
	}
	var err error
	if g.Scheduled, err = parseTime(scheduled); err != nil {
		return model.Game{}, err
	}
	g.Status = model.GameStatus(status)
	g.Official = teamPtr(official)
	return g, nil
}

// results loads result rows grouped by game id.
func (t *Tx) results(ctx context.Context, where string, args ...any) (map[int64][]model.Result, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, game_id, team, is_home, score FROM results `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	byGame := make(map[int64][]model.Result)
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.GameID, &r.Team, &r.IsHome, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		byGame[r.GameID] = append(byGame[r.GameID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return byGame, nil
}

func attachResults(g *model.Game, results []model.Result) {
	for i := range results {
		r := results[i]
		if r.IsHome {
			g.Home = &r
		} else {
			g.Away = &r
		}
	}
}
