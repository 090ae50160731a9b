package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// CreateGameday inserts a gameday and sets its id.
func (t *Tx) CreateGameday(ctx context.Context, g *model.Gameday) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO gamedays (name, organization_id, start, fields, template_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		model.NormalizeLabel(g.Name),
		nullInt64(g.OrganizationID),
		formatTime(g.Start),
		g.Fields,
		nullInt64(g.TemplateID),
	)
	if err != nil {
		return fmt.Errorf("create gameday: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create gameday: %w", err)
	}
	return nil
}

// Gameday loads one gameday.
func (t *Tx) Gameday(ctx context.Context, id int64) (*model.Gameday, error) {
	var g model.Gameday
	var org, tmpl sql.NullInt64
	var start string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, organization_id, start, fields, template_id
		FROM gamedays
		WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &org, &start, &g.Fields, &tmpl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("gameday %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load gameday %d: %w", id, err)
	}
	if g.Start, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("load gameday %d: %w", id, err)
	}
	g.OrganizationID = int64Ptr(org)
	g.TemplateID = int64Ptr(tmpl)
	return &g, nil
}

// SetGamedayTemplate records which template a gameday was built from.
func (t *Tx) SetGamedayTemplate(ctx context.Context, gamedayID, templateID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE gamedays SET template_id = ? WHERE id = ?`, templateID, gamedayID)
	if err != nil {
		return fmt.Errorf("set gameday template: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("gameday %d", gamedayID))
}
