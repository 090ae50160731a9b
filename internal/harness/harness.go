package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/gameday/internal/apply"
	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/resolve"
	"github.com/roach88/gameday/internal/seed"
	"github.com/roach88/gameday/internal/service"
	"github.com/roach88/gameday/internal/store"
	"github.com/roach88/gameday/internal/testutil"
)

// auditEpoch is the fixed audit clock of every scenario run.
var auditEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the scenario execution engine.
// It runs scenarios against a fresh store with a fixed clock and
// sequential audit ids.
type Harness struct {
	svc     *service.Service
	tmpl    *model.Template
	gameday int64
	names   map[model.TeamID]string
	slotPos map[int64]int // slot id -> 1-based document position
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Setup failures (template, teams, apply) are returned as errors; step
// mismatches are collected in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	h := &Harness{
		svc: service.New(st,
			service.WithLogger(logger),
			service.WithApplyEngine(apply.New(
				apply.WithClock(testutil.NewFixedClock(auditEpoch)),
				apply.WithIDGenerator(testutil.NewSequenceGenerator("")),
				apply.WithLogger(logger),
			)),
			service.WithResolveEngine(resolve.New(resolve.WithLogger(logger))),
		),
		names:   make(map[model.TeamID]string),
		slotPos: make(map[int64]int),
	}

	result := NewResult()
	result.tracef("scenario %s", scenario.Name)
	if err := h.setup(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return result, nil
}

// setup imports the template, creates teams and the gameday, and applies
// the template with the scenario mapping.
func (h *Harness) setup(ctx context.Context, s *Scenario, result *Result) error {
	tmpl, err := seed.Load(s.Template)
	if err != nil {
		return err
	}
	// Scenario tie settings become the template's stored tie policy.
	if len(s.TieBreakers) > 0 || s.StrictTies {
		tmpl.Ties = &model.TiePolicy{TieBreakers: append([]string{}, s.TieBreakers...), Strict: s.StrictTies}
	}
	if tmpl, _, err = h.svc.ImportTemplate(ctx, tmpl); err != nil {
		return err
	}
	h.tmpl = tmpl
	// The stored copy keeps document slot order.
	for i, slot := range tmpl.Slots {
		h.slotPos[slot.ID] = i + 1
	}
	result.tracef("template %q: %d slots, %d rules", tmpl.Name, len(tmpl.Slots), len(tmpl.Rules))

	start := defaultStart
	if s.Gameday.Start != "" {
		start = s.Gameday.Start
	}
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return fmt.Errorf("gameday.start: %w", err)
	}
	fields := s.Gameday.Fields
	if fields == 0 {
		fields = tmpl.NumFields
	}

	byName := make(map[string]model.TeamID, len(s.Teams))
	gd := &model.Gameday{Name: s.Gameday.Name, Start: startAt, Fields: fields}
	err = h.svc.Store().InTx(ctx, func(tx *store.Tx) error {
		for _, name := range s.Teams {
			team, err := tx.CreateTeam(ctx, name)
			if err != nil {
				return err
			}
			h.names[team.ID] = team.Name
			byName[team.Name] = team.ID
		}
		return tx.CreateGameday(ctx, gd)
	})
	if err != nil {
		return err
	}
	h.gameday = gd.ID
	created := make([]string, 0, len(s.Teams))
	for _, name := range s.Teams {
		created = append(created, model.NormalizeLabel(name))
	}
	result.tracef("teams: %s", strings.Join(created, ", "))

	mapping := make(map[model.TeamKey]model.TeamID, len(s.Mapping))
	for raw, name := range s.Mapping {
		key, err := model.ParseTeamKey(raw)
		if err != nil {
			return fmt.Errorf("mapping: %w", err)
		}
		mapping[key] = byName[model.NormalizeLabel(name)]
	}

	applied, err := h.svc.Apply(ctx, gd.ID, tmpl.ID, mapping, "harness")
	if err != nil {
		return err
	}
	result.tracef("apply gameday %q: %d games", gd.Name, len(applied.GamesCreated))

	games, err := h.svc.Schedule(ctx, gd.ID)
	if err != nil {
		return err
	}
	for _, g := range games {
		result.tracef("  %s field %d slot %d %s/%s: %s vs %s, official %s",
			g.Scheduled.UTC().Format("15:04"), g.Field, h.slotPos[g.SlotID], g.Stage, g.Standing,
			teamName(g.TeamFor(model.RoleHome), h.names),
			teamName(g.TeamFor(model.RoleAway), h.names),
			teamName(g.Official, h.names),
		)
	}
	return nil
}

// executeStep runs one step. Returned errors abort the scenario; action
// failures are matched against expect_error instead.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Finish != nil:
		game, err := h.game(ctx, step.Finish.Slot)
		if err != nil {
			return err
		}
		report, actionErr := h.svc.Finish(ctx, game.ID, step.Finish.Home, step.Finish.Away)
		line := fmt.Sprintf("finish slot %d %d:%d", step.Finish.Slot, step.Finish.Home, step.Finish.Away)
		h.outcome(index, line, step.ExpectError, report, actionErr, result)

	case step.Status != nil:
		game, err := h.game(ctx, step.Status.Slot)
		if err != nil {
			return err
		}
		to, err := model.ParseGameStatus(step.Status.To)
		if err != nil {
			return err
		}
		report, actionErr := h.svc.SetStatus(ctx, game.ID, to)
		line := fmt.Sprintf("status slot %d %s", step.Status.Slot, to)
		h.outcome(index, line, step.ExpectError, report, actionErr, result)

	case step.Expect != nil:
		game, err := h.game(ctx, step.Expect.Slot)
		if err != nil {
			return err
		}
		failures := checkExpect(index, step.Expect, game, h.names)
		if len(failures) == 0 {
			result.tracef("expect slot %d ok", step.Expect.Slot)
			return nil
		}
		result.tracef("expect slot %d FAILED", step.Expect.Slot)
		for _, f := range failures {
			result.AddError(f.Error())
		}
	}
	return nil
}

// outcome traces an action and its resolution changes, and checks the
// action error against the expected code.
func (h *Harness) outcome(index int, line, expectErr string, report *resolve.Report, err error, result *Result) {
	switch {
	case err != nil && expectErr != "":
		code := errorCode(err)
		if code == expectErr {
			result.tracef("%s -> %s (expected)", line, code)
			return
		}
		result.tracef("%s -> error %s", line, code)
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %v", index, expectErr, err))
		return
	case err != nil:
		result.tracef("%s -> error %s", line, errorCode(err))
		result.AddError(fmt.Sprintf("steps[%d]: %v", index, err))
		return
	case expectErr != "":
		result.tracef("%s -> ok", line)
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got none", index, expectErr))
	default:
		result.tracef("%s", line)
	}

	for _, c := range report.Changes {
		result.tracef("  slot %d %s: %s -> %s", h.slotPos[c.SlotID], c.Role,
			teamName(c.From, h.names), teamName(c.To, h.names))
	}
}

// game loads the game of a slot position.
func (h *Harness) game(ctx context.Context, pos int) (*model.Game, error) {
	if pos < 1 || pos > len(h.tmpl.Slots) {
		return nil, fmt.Errorf("slot %d out of range (template has %d)", pos, len(h.tmpl.Slots))
	}
	slotID := h.tmpl.Slots[pos-1].ID
	games, err := h.svc.Schedule(ctx, h.gameday)
	if err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].SlotID == slotID {
			return &games[i], nil
		}
	}
	return nil, fmt.Errorf("slot %d has no game", pos)
}

// errorCode names an action error for traces. Errors without a code are
// traced by message.
func errorCode(err error) string {
	if code := service.Code(err); code != "" {
		return code
	}
	return err.Error()
}
