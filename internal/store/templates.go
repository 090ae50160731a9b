package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// SaveTemplate inserts a template with its slots and rules and returns the
// stored copy carrying the fresh ids. tmpl is left untouched, so a failed
// save or a rolled back transaction does not leave stale ids behind.
// Rule.SlotID values are interpreted against the incoming Slot.ID values,
// which only need to be unique within the template.
func (t *Tx) SaveTemplate(ctx context.Context, tmpl *model.Template) (*model.Template, error) {
	saved := tmpl.Clone()
	saved.Points = saved.PointRuleOrDefault()
	ties, strict := tieColumns(saved.Ties)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO templates
		(name, organization_id, num_teams, num_fields, num_groups, game_duration,
		 points_win, points_draw, points_loss, tie_breakers, strict_ties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		saved.Name,
		nullInt64(saved.OrganizationID),
		saved.NumTeams,
		saved.NumFields,
		saved.NumGroups,
		saved.GameDuration,
		saved.Points.Win,
		saved.Points.Draw,
		saved.Points.Loss,
		ties,
		strict,
	)
	if err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	if saved.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}

	slotIDs := make(map[int64]int64, len(saved.Slots))
	for i := range saved.Slots {
		slot := &saved.Slots[i]
		if _, dup := slotIDs[slot.ID]; dup {
			return nil, fmt.Errorf("save template: duplicate slot id %d", slot.ID)
		}
		newID, err := t.insertSlot(ctx, saved.ID, *slot)
		if err != nil {
			return nil, err
		}
		slotIDs[slot.ID] = newID
		slot.ID = newID
	}

	for i := range saved.Rules {
		rule := &saved.Rules[i]
		slotID, ok := slotIDs[rule.SlotID]
		if !ok {
			return nil, fmt.Errorf("save template: rule %q references unknown slot %d", rule.Name, rule.SlotID)
		}
		rule.SlotID = slotID
		if err := t.insertRule(ctx, saved.ID, rule); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

func (t *Tx) insertSlot(ctx context.Context, templateID int64, s model.Slot) (int64, error) {
	hg, ht, hn := refColumns(s.Home)
	ag, at, an := refColumns(s.Away)
	og, ot, on := refColumns(s.Official)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO template_slots
		(template_id, field, slot_order, stage, standing,
		 home_group, home_team, home_name,
		 away_group, away_team, away_name,
		 official_group, official_team, official_name,
		 break_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		templateID, s.Field, s.SlotOrder, s.Stage, s.Standing,
		hg, ht, hn,
		ag, at, an,
		og, ot, on,
		s.BreakAfter,
	)
	if err != nil {
		return 0, fmt.Errorf("insert slot: %w", err)
	}
	return res.LastInsertId()
}

func (t *Tx) insertRule(ctx context.Context, templateID int64, rule *model.UpdateRule) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO update_rules (template_id, slot_id, name, pre_finished)
		VALUES (?, ?, ?, ?)
	`, templateID, rule.SlotID, rule.Name, rule.PreFinished)
	if err != nil {
		return fmt.Errorf("insert update rule: %w", err)
	}
	ruleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert update rule: %w", err)
	}
	rule.ID = ruleID

	for i := range rule.Teams {
		urt := &rule.Teams[i]
		res, err := t.tx.ExecContext(ctx, `
			INSERT INTO update_rule_teams
			(rule_id, role, standing, place, points, pre_finished_override, advancement)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			ruleID,
			string(urt.Role),
			urt.Standing,
			urt.Place,
			nullInt(urt.Points),
			urt.PreFinishedOverride,
			nullInt(urt.Advancement),
		)
		if err != nil {
			return fmt.Errorf("insert update rule team: %w", err)
		}
		if urt.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert update rule team: %w", err)
		}
	}
	return nil
}

// Template loads a template with its slots and rules.
func (t *Tx) Template(ctx context.Context, id int64) (*model.Template, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, name, organization_id, num_teams, num_fields, num_groups, game_duration,
		       points_win, points_draw, points_loss, tie_breakers, strict_ties
		FROM templates
		WHERE id = ?
	`, id)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", id, err)
	}

	if tmpl.Slots, err = t.templateSlots(ctx, id); err != nil {
		return nil, err
	}
	if tmpl.Rules, err = t.templateRules(ctx, id); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// ListTemplates returns template headers (without slots or rules) ordered
// by id.
func (t *Tx) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, organization_id, num_teams, num_fields, num_groups, game_duration,
		       points_win, points_draw, points_loss, tie_breakers, strict_ties
		FROM templates
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// CloneTemplate copies a template into a new, independent template.
func (t *Tx) CloneTemplate(ctx context.Context, id int64, name string) (*model.Template, error) {
	src, err := t.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	src.Name = name
	clone, err := t.SaveTemplate(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("clone template %d: %w", id, err)
	}
	return clone, nil
}

// DeleteTemplate removes a template with its slots and rules. Gamedays that
// were created from it keep their games.
func (t *Tx) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("template %d", id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (model.Template, error) {
	var tmpl model.Template
	var org sql.NullInt64
	var ties sql.NullString
	var strict bool
	err := row.Scan(
		&tmpl.ID, &tmpl.Name, &org,
		&tmpl.NumTeams, &tmpl.NumFields, &tmpl.NumGroups, &tmpl.GameDuration,
		&tmpl.Points.Win, &tmpl.Points.Draw, &tmpl.Points.Loss,
		&ties, &strict,
	)
	tmpl.OrganizationID = int64Ptr(org)
	tmpl.Ties = tiePolicy(ties, strict)
	return tmpl, err
}

func (t *Tx) templateSlots(ctx context.Context, templateID int64) ([]model.Slot, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, field, slot_order, stage, standing,
		       home_group, home_team, home_name,
		       away_group, away_team, away_name,
		       official_group, official_team, official_name,
		       break_after
		FROM template_slots
		WHERE template_id = ?
		ORDER BY field ASC, slot_order ASC, id ASC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []model.Slot{}
	for rows.Next() {
		var s model.Slot
		var hg, ht, ag, at, og, ot sql.NullInt64
		var hn, an, on sql.NullString
		if err := rows.Scan(
			&s.ID, &s.Field, &s.SlotOrder, &s.Stage, &s.Standing,
			&hg, &ht, &hn,
			&ag, &at, &an,
			&og, &ot, &on,
			&s.BreakAfter,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if s.Home, err = refFromColumns(hg, ht, hn); err != nil {
			return nil, fmt.Errorf("slot %d home: %w", s.ID, err)
		}
		if s.Away, err = refFromColumns(ag, at, an); err != nil {
			return nil, fmt.Errorf("slot %d away: %w", s.ID, err)
		}
		if s.Official, err = refFromColumns(og, ot, on); err != nil {
			return nil, fmt.Errorf("slot %d official: %w", s.ID, err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

func (t *Tx) templateRules(ctx context.Context, templateID int64) ([]model.UpdateRule, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT r.id, r.slot_id, r.name, r.pre_finished,
		       u.id, u.role, u.standing, u.place, u.points, u.pre_finished_override, u.advancement
		FROM update_rules r
		LEFT JOIN update_rule_teams u ON u.rule_id = r.id
		WHERE r.template_id = ?
		ORDER BY r.id ASC, u.id ASC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("query update rules: %w", err)
	}
	defer rows.Close()

	rules := []model.UpdateRule{}
	for rows.Next() {
		var rule model.UpdateRule
		var urtID, place, points, advancement sql.NullInt64
		var role, standing, override sql.NullString
		if err := rows.Scan(
			&rule.ID, &rule.SlotID, &rule.Name, &rule.PreFinished,
			&urtID, &role, &standing, &place, &points, &override, &advancement,
		); err != nil {
			return nil, fmt.Errorf("scan update rule: %w", err)
		}
		if n := len(rules); n == 0 || rules[n-1].ID != rule.ID {
			rules = append(rules, rule)
		}
		if !urtID.Valid {
			continue
		}
		last := &rules[len(rules)-1]
		last.Teams = append(last.Teams, model.UpdateRuleTeam{
			ID:                  urtID.Int64,
			Role:                model.Role(role.String),
			Standing:            standing.String,
			Place:               int(place.Int64),
			Points:              intPtr(points),
			PreFinishedOverride: override.String,
			Advancement:         intPtr(advancement),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate update rules: %w", err)
	}
	return rules, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
