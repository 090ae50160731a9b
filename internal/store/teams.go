package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/gameday/internal/model"
)

// CreateTeam registers a team. Names are normalised and must be unique.
func (t *Tx) CreateTeam(ctx context.Context, name string) (model.Team, error) {
	name = model.NormalizeLabel(name)
	if name == "" {
		return model.Team{}, fmt.Errorf("create team: name is empty")
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		return model.Team{}, fmt.Errorf("create team %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Team{}, fmt.Errorf("create team %q: %w", name, err)
	}
	return model.Team{ID: model.TeamID(id), Name: name}, nil
}

// Team loads one team.
func (t *Tx) Team(ctx context.Context, id model.TeamID) (model.Team, error) {
	var team model.Team
	err := t.tx.QueryRowContext(ctx, `SELECT id, name FROM teams WHERE id = ?`, int64(id)).
		Scan(&team.ID, &team.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, fmt.Errorf("team %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("load team %d: %w", id, err)
	}
	return team, nil
}

// ListTeams returns all teams ordered by id.
func (t *Tx) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	teams := []model.Team{}
	for rows.Next() {
		var team model.Team
		if err := rows.Scan(&team.ID, &team.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

// MissingTeams returns the ids from the input that have no team row, sorted
// and deduplicated.
func (t *Tx) MissingTeams(ctx context.Context, ids []model.TeamID) ([]model.TeamID, error) {
	missing := []model.TeamID{}
	if len(ids) == 0 {
		return missing, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := t.tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM teams WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	found := make(map[model.TeamID]bool, len(ids))
	for rows.Next() {
		var id model.TeamID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team ids: %w", err)
	}

	seen := make(map[model.TeamID]bool, len(ids))
	for _, id := range ids {
		if !found[id] && !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}
