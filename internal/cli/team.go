package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/store"
)

// NewTeamCommand creates the team command group.
func NewTeamCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage the team registry",
	}
	cmd.AddCommand(newTeamAddCommand(rootOpts))
	cmd.AddCommand(newTeamListCommand(rootOpts))
	return cmd
}

func newTeamAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <name>...",
		Short:         "Register one or more teams",
		Example:       `  gameday team add Lions Tigers "Rot-Weiß Süd"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			teams := make([]model.Team, 0, len(args))
			err = svc.Store().InTx(ctx, func(tx *store.Tx) error {
				for _, name := range args {
					team, err := tx.CreateTeam(ctx, name)
					if err != nil {
						return err
					}
					teams = append(teams, team)
				}
				return nil
			})
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(teams, func(w io.Writer) {
				for _, team := range teams {
					fmt.Fprintf(w, "✓ Team %d %s\n", team.ID, team.Name)
				}
			})
		},
	}
}

func newTeamListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered teams",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			var teams []model.Team
			err = svc.Store().InTx(ctx, func(tx *store.Tx) error {
				var err error
				teams, err = tx.ListTeams(ctx)
				return err
			})
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(teams, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, team := range teams {
					fmt.Fprintf(tw, "%d\t%s\n", team.ID, team.Name)
				}
				_ = tw.Flush()
			})
		},
	}
}
