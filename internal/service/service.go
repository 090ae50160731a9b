// Package service is the host layer shared by the CLI and the scenario
// harness. It owns the store transaction around every engine call so a
// failed apply or resolution pass leaves nothing behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/gameday/internal/apply"
	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/resolve"
	"github.com/roach88/gameday/internal/store"
	"github.com/roach88/gameday/internal/validator"
)

// Service wires the store to the apply and resolve engines.
type Service struct {
	store    *store.Store
	applier  *apply.Engine
	resolver *resolve.Engine
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithApplyEngine replaces the default apply engine.
func WithApplyEngine(e *apply.Engine) Option {
	return func(s *Service) { s.applier = e }
}

// WithResolveEngine replaces the default resolve engine.
func WithResolveEngine(e *resolve.Engine) Option {
	return func(s *Service) { s.resolver = e }
}

// WithLogger sets the logger for host-level records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over an open store.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.applier == nil {
		s.applier = apply.New(apply.WithLogger(s.logger))
	}
	if s.resolver == nil {
		s.resolver = resolve.New(resolve.WithLogger(s.logger))
	}
	return s
}

// Store returns the underlying store for read-only commands.
func (s *Service) Store() *store.Store {
	return s.store
}

// ImportTemplate validates and persists a template and returns the stored
// copy with its assigned ids. Invalid templates are rejected with a
// TEMPLATE_INVALID *apply.Error and nothing is written.
func (s *Service) ImportTemplate(ctx context.Context, tmpl *model.Template) (*model.Template, validator.Report, error) {
	report := validator.Validate(tmpl)
	if !report.Valid() {
		return nil, report, &apply.Error{
			Code:    apply.CodeTemplateInvalid,
			Message: fmt.Sprintf("template has %d validation error(s); first: %s", len(report.Errors), report.Errors[0].Message),
			Issues:  report.Errors,
		}
	}
	var saved *model.Template
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		saved, err = tx.SaveTemplate(ctx, tmpl)
		return err
	})
	if err != nil {
		return nil, report, err
	}
	s.logger.InfoContext(ctx, "template imported", "template_id", saved.ID, "slots", len(saved.Slots))
	return saved, report, nil
}

// Apply instantiates a stored template on a gameday.
func (s *Service) Apply(
	ctx context.Context,
	gamedayID, templateID int64,
	mapping map[model.TeamKey]model.TeamID,
	actor string,
) (*apply.Result, error) {
	var result *apply.Result
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		tmpl, err := tx.Template(ctx, templateID)
		if err != nil {
			return fmt.Errorf("load template %d: %w", templateID, err)
		}
		result, err = s.applier.Apply(ctx, tx, tmpl, gamedayID, mapping, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "template applied",
		"gameday_id", gamedayID,
		"template_id", templateID,
		"games", len(result.GamesCreated),
	)
	return result, nil
}

// SetStatus moves a game along the status machine. Reaching finished runs
// a resolution pass in the same transaction; the returned report is empty
// for every other target status.
func (s *Service) SetStatus(ctx context.Context, gameID int64, to model.GameStatus) (*resolve.Report, error) {
	var report *resolve.Report
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.SetGameStatus(ctx, gameID, to); err != nil {
			return err
		}
		var err error
		report, err = s.afterStatus(ctx, tx, gameID, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Score records both scores of a game without changing its status.
func (s *Service) Score(ctx context.Context, gameID int64, home, away int) error {
	return s.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.SetScore(ctx, gameID, home, away)
	})
}

// Finish records the final score, walks the game to finished and resolves
// the bracket, all in one transaction.
func (s *Service) Finish(ctx context.Context, gameID int64, home, away int) (*resolve.Report, error) {
	var report *resolve.Report
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		game, err := tx.Game(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status == model.StatusFinished {
			return fmt.Errorf("game %d: %w: already finished", gameID, store.ErrInvalidTransition)
		}
		if err := tx.SetScore(ctx, gameID, home, away); err != nil {
			return err
		}
		if game.Status == model.StatusPlanned {
			if err := tx.SetGameStatus(ctx, gameID, model.StatusStarted); err != nil {
				return err
			}
		}
		if err := tx.SetGameStatus(ctx, gameID, model.StatusFinished); err != nil {
			return err
		}
		report, err = s.afterStatus(ctx, tx, gameID, model.StatusFinished)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Resolve reruns the resolution pass for a finished game. Passes are
// idempotent, so this only writes when an earlier pass was skipped.
func (s *Service) Resolve(ctx context.Context, gameID int64) (*resolve.Report, error) {
	var report *resolve.Report
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		report, err = s.resolver.OnGameFinished(ctx, tx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) afterStatus(ctx context.Context, tx *store.Tx, gameID int64, to model.GameStatus) (*resolve.Report, error) {
	if to != model.StatusFinished {
		return &resolve.Report{Changes: []resolve.Change{}}, nil
	}
	report, err := s.resolver.OnGameFinished(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "game finished", "game_id", gameID, "changes", len(report.Changes))
	return report, nil
}

// Schedule returns the games of a gameday in schedule order.
func (s *Service) Schedule(ctx context.Context, gamedayID int64) ([]model.Game, error) {
	var games []model.Game
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Gameday(ctx, gamedayID); err != nil {
			return err
		}
		var err error
		games, err = tx.GamedayGames(ctx, gamedayID)
		return err
	})
	return games, err
}

// Audit returns the audit records of a gameday, oldest first.
func (s *Service) Audit(ctx context.Context, gamedayID int64) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		records, err = tx.AuditRecords(ctx, gamedayID)
		return err
	})
	return records, err
}

// Code returns the machine-readable code of an engine or store error, or
// "" when err carries none.
func Code(err error) string {
	var ae *apply.Error
	if errors.As(err, &ae) {
		return string(ae.Code)
	}
	var re *resolve.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, store.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	}
	return ""
}
