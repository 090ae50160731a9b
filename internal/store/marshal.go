package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/gameday/internal/model"
)

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// refColumns splits a placeholder into its (group, team, name) columns.
func refColumns(r model.TeamRef) (sql.NullInt64, sql.NullInt64, sql.NullString) {
	var group, team sql.NullInt64
	var name sql.NullString
	if key, ok := r.Key(); ok {
		group = sql.NullInt64{Int64: int64(key.Group), Valid: true}
		team = sql.NullInt64{Int64: int64(key.Team), Valid: true}
	}
	if n, ok := r.Name(); ok {
		name = sql.NullString{String: n, Valid: true}
	}
	return group, team, name
}

// refFromColumns rebuilds a placeholder. A row carrying both forms is
// rejected rather than silently preferring one.
func refFromColumns(group, team sql.NullInt64, name sql.NullString) (model.TeamRef, error) {
	switch {
	case group.Valid && name.Valid:
		return model.TeamRef{}, ErrAmbiguousPlaceholder
	case group.Valid:
		return model.Indexed(int(group.Int64), int(team.Int64)), nil
	case name.Valid:
		return model.Named(name.String), nil
	default:
		return model.TeamRef{}, nil
	}
}

// tieColumns stores a tie policy as a comma-separated name list; NULL means
// the template declares none.
func tieColumns(p *model.TiePolicy) (sql.NullString, bool) {
	if p == nil {
		return sql.NullString{}, false
	}
	return sql.NullString{String: strings.Join(p.TieBreakers, ","), Valid: true}, p.Strict
}

func tiePolicy(names sql.NullString, strict bool) *model.TiePolicy {
	if !names.Valid {
		return nil
	}
	p := &model.TiePolicy{TieBreakers: []string{}, Strict: strict}
	if names.String != "" {
		p.TieBreakers = strings.Split(names.String, ",")
	}
	return p
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTeam(p *model.TeamID) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func teamPtr(n sql.NullInt64) *model.TeamID {
	if !n.Valid {
		return nil
	}
	v := model.TeamID(n.Int64)
	return &v
}

// marshalMapping converts a team mapping to JSON TEXT for storage.
// Map keys marshal through TeamKey.MarshalText, so encoding/json emits them
// sorted.
func marshalMapping(m map[model.TeamKey]model.TeamID) (string, error) {
	if m == nil {
		m = map[model.TeamKey]model.TeamID{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal mapping: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalMapping(data string) (map[model.TeamKey]model.TeamID, error) {
	m := map[model.TeamKey]model.TeamID{}
	if data == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	return m, nil
}
