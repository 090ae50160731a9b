package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/service"
	"github.com/roach88/gameday/internal/store"
)

// startLayouts are the accepted --start formats. Times without a zone are
// UTC.
var startLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

// NewGamedayCommand creates the gameday command group.
func NewGamedayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gameday",
		Short: "Create gamedays, apply templates and show schedules",
	}
	cmd.AddCommand(newGamedayCreateCommand(rootOpts))
	cmd.AddCommand(newGamedayApplyCommand(rootOpts))
	cmd.AddCommand(newGamedayScheduleCommand(rootOpts))
	cmd.AddCommand(newGamedayAuditCommand(rootOpts))
	return cmd
}

func newGamedayCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name   string
		start  string
		fields int
	)
	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create an empty gameday",
		Example:       `  gameday gameday create --name "Spieltag 1" --start "2024-05-04 10:00" --fields 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			at, err := parseStart(start)
			if err != nil {
				return formatter.Fail(err)
			}
			if fields < 1 {
				return formatter.Fail(NewExitError(ExitCommandError, "--fields must be at least 1"))
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			gd := &model.Gameday{Name: model.NormalizeLabel(name), Start: at, Fields: fields}
			if err := svc.Store().InTx(ctx, func(tx *store.Tx) error {
				return tx.CreateGameday(ctx, gd)
			}); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(gd, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Gameday %d %q at %s on %d field(s)\n", gd.ID, gd.Name, gd.Start.Format(time.RFC3339), gd.Fields)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "gameday name (required)")
	cmd.Flags().StringVar(&start, "start", "", "start of the first games, RFC 3339 or \"YYYY-MM-DD HH:MM\" UTC (required)")
	cmd.Flags().IntVar(&fields, "fields", 1, "number of fields")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func parseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid --start %q", s))
}

func newGamedayApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		templateID int64
		mappings   []string
		actor      string
	)
	cmd := &cobra.Command{
		Use:   "apply <gameday-id>",
		Short: "Replace the games of a gameday with a template's slots",
		Long: `Apply a stored template to a gameday.

Every indexed placeholder (group_team) must be mapped to a registered team,
by name or id. Existing games of the gameday are replaced and an audit
record is written.`,
		Example:       `  gameday gameday apply 1 --template 2 --map 0_0=Lions --map 0_1=Tigers --map 0_2=3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gamedayID, err := parseID("gameday", args[0])
			if err != nil {
				return formatter.Fail(err)
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			teams, err := teamNames(ctx, svc)
			if err != nil {
				return formatter.Fail(err)
			}
			mapping, err := parseMapping(mappings, teams)
			if err != nil {
				return formatter.Fail(err)
			}
			if actor == "" {
				actor = rootOpts.Config.Actor
			}

			result, err := svc.Apply(ctx, gamedayID, templateID, mapping, actor)
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(result, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Applied template %d to gameday %d: %d game(s)\n", templateID, gamedayID, len(result.GamesCreated))
				fmt.Fprintf(w, "  audit %s fingerprint %s\n", result.Audit.ID, result.Audit.Fingerprint)
				writeSchedule(w, result.GamesCreated, teams)
			})
		},
	}
	cmd.Flags().Int64Var(&templateID, "template", 0, "template id (required)")
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "placeholder mapping group_team=team, repeatable")
	cmd.Flags().StringVar(&actor, "actor", "", "actor recorded in the audit record (default $GAMEDAY_ACTOR)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// parseMapping turns "0_1=Lions" pairs into a team mapping. The team may be
// given by name or id.
func parseMapping(pairs []string, teams map[model.TeamID]string) (map[model.TeamKey]model.TeamID, error) {
	byName := make(map[string]model.TeamID, len(teams))
	for id, name := range teams {
		byName[name] = id
	}

	mapping := make(map[model.TeamKey]model.TeamID, len(pairs))
	for _, pair := range pairs {
		rawKey, rawTeam, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --map %q, expected group_team=team", pair))
		}
		key, err := model.ParseTeamKey(rawKey)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --map", err)
		}
		if _, dup := mapping[key]; dup {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("placeholder %s mapped twice", key))
		}

		name := model.NormalizeLabel(rawTeam)
		if id, ok := byName[name]; ok {
			mapping[key] = id
			continue
		}
		// Unknown ids are reported by apply as UNKNOWN_TEAM.
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown team %q", rawTeam))
		}
		mapping[key] = model.TeamID(n)
	}
	return mapping, nil
}

func newGamedayScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schedule <gameday-id>",
		Short:         "Show the games of a gameday in schedule order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gamedayID, err := parseID("gameday", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			games, err := svc.Schedule(ctx, gamedayID)
			if err != nil {
				return formatter.Fail(err)
			}
			teams, err := teamNames(ctx, svc)
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(games, func(w io.Writer) {
				if len(games) == 0 {
					fmt.Fprintln(w, "No games scheduled.")
					return
				}
				writeSchedule(w, games, teams)
			})
		},
	}
}

func newGamedayAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "audit <gameday-id>",
		Short:         "List the template applications of a gameday",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gamedayID, err := parseID("gameday", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			records, err := svc.Audit(cmd.Context(), gamedayID)
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(records, func(w io.Writer) {
				if len(records) == 0 {
					fmt.Fprintln(w, "No audit records.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "AT\tID\tTEMPLATE\tACTOR\tFINGERPRINT")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.CreatedAt.Format(time.RFC3339), r.ID, r.TemplateID, r.Actor, r.Fingerprint)
				}
				_ = tw.Flush()
			})
		},
	}
}

// teamNames loads the registry as an id to name map.
func teamNames(ctx context.Context, svc *service.Service) (map[model.TeamID]string, error) {
	names := make(map[model.TeamID]string)
	err := svc.Store().InTx(ctx, func(tx *store.Tx) error {
		teams, err := tx.ListTeams(ctx)
		if err != nil {
			return err
		}
		for _, team := range teams {
			names[team.ID] = team.Name
		}
		return nil
	})
	return names, err
}

func writeSchedule(w io.Writer, games []model.Game, teams map[model.TeamID]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFIELD\tGAME\tSTAGE\tSTANDING\tHOME\tAWAY\tOFFICIAL\tSTATUS\tSCORE")
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.Scheduled.UTC().Format("15:04"), g.Field, g.ID, g.Stage, g.Standing,
			displayTeam(g.TeamFor(model.RoleHome), teams),
			displayTeam(g.TeamFor(model.RoleAway), teams),
			displayTeam(g.Official, teams),
			g.Status, score(g))
	}
	_ = tw.Flush()
}

func displayTeam(id *model.TeamID, teams map[model.TeamID]string) string {
	if id == nil {
		return "-"
	}
	if name, ok := teams[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}

func score(g model.Game) string {
	if g.Status == model.StatusPlanned || g.Home == nil || g.Away == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%d", g.Home.Score, g.Away.Score)
}
