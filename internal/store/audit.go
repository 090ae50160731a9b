package store

import (
	"context"
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// InsertAudit appends an audit record. Records are never updated.
func (t *Tx) InsertAudit(ctx context.Context, rec model.AuditRecord) error {
	mapping, err := marshalMapping(rec.Mapping)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO audit_records (id, template_id, gameday_id, fingerprint, mapping, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.TemplateID,
		rec.GamedayID,
		rec.Fingerprint,
		mapping,
		rec.Actor,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// AuditRecords returns the audit trail of a gameday, oldest first.
// UUIDv7 ids break ties between records written in the same second.
func (t *Tx) AuditRecords(ctx context.Context, gamedayID int64) ([]model.AuditRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, template_id, gameday_id, fingerprint, mapping, actor, created_at
		FROM audit_records
		WHERE gameday_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		var rec model.AuditRecord
		var mapping, created string
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.GamedayID, &rec.Fingerprint,
			&mapping, &rec.Actor, &created); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if rec.Mapping, err = unmarshalMapping(mapping); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
