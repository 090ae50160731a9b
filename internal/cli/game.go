package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/resolve"
	"github.com/roach88/gameday/internal/service"
)

// GameResult is the payload of commands that change a game.
type GameResult struct {
	GameID  int64            `json:"game_id"`
	Status  model.GameStatus `json:"status,omitempty"`
	Changes []resolve.Change `json:"changes"`
}

// NewGameCommand creates the game command group.
func NewGameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Record scores and status changes of single games",
	}
	cmd.AddCommand(newGameStatusCommand(rootOpts))
	cmd.AddCommand(newGameScoreCommand(rootOpts))
	cmd.AddCommand(newGameFinishCommand(rootOpts))
	cmd.AddCommand(newGameResolveCommand(rootOpts))
	return cmd
}

func newGameStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <game-id> <status>",
		Short: "Move a game to planned, started, halftime or finished",
		Long: `Move a game along its status machine:

  planned -> started -> [halftime ->] finished

Finishing a game fills in the downstream slots that depend on its standing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gameID, err := parseID("game", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			to, err := model.ParseGameStatus(args[1])
			if err != nil {
				return formatter.Fail(WrapExitError(ExitCommandError, "invalid status", err))
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			report, err := svc.SetStatus(cmd.Context(), gameID, to)
			if err != nil {
				return formatter.Fail(err)
			}
			return writeGameResult(cmd, formatter, svc, GameResult{GameID: gameID, Status: to, Changes: report.Changes})
		},
	}
	return cmd
}

func newGameScoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "score <game-id> <home> <away>",
		Short:         "Record the current score of a game",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gameID, home, away, err := parseScoreArgs(args)
			if err != nil {
				return formatter.Fail(err)
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			if err := svc.Score(cmd.Context(), gameID, home, away); err != nil {
				return formatter.Fail(err)
			}
			data := map[string]any{"game_id": gameID, "home": home, "away": away}
			return formatter.Result(data, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Game %d %d:%d\n", gameID, home, away)
			})
		},
	}
}

func newGameFinishCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finish <game-id> <home> <away>",
		Short:         "Record the final score, finish the game and resolve the bracket",
		Example:       `  gameday game finish 3 2 1`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gameID, home, away, err := parseScoreArgs(args)
			if err != nil {
				return formatter.Fail(err)
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			report, err := svc.Finish(cmd.Context(), gameID, home, away)
			if err != nil {
				return formatter.Fail(err)
			}
			return writeGameResult(cmd, formatter, svc, GameResult{GameID: gameID, Status: model.StatusFinished, Changes: report.Changes})
		},
	}
	return cmd
}

func newGameResolveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resolve <game-id>",
		Short:         "Rerun bracket resolution for a finished game",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			gameID, err := parseID("game", args[0])
			if err != nil {
				return formatter.Fail(err)
			}

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			report, err := svc.Resolve(cmd.Context(), gameID)
			if err != nil {
				return formatter.Fail(err)
			}
			return writeGameResult(cmd, formatter, svc, GameResult{GameID: gameID, Changes: report.Changes})
		},
	}
	return cmd
}

func parseScoreArgs(args []string) (int64, int, int, error) {
	gameID, err := parseID("game", args[0])
	if err != nil {
		return 0, 0, 0, err
	}
	home, err := parseScore(args[1])
	if err != nil {
		return 0, 0, 0, err
	}
	away, err := parseScore(args[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return gameID, home, away, nil
}

func writeGameResult(cmd *cobra.Command, formatter *OutputFormatter, svc *service.Service, result GameResult) error {
	if result.Changes == nil {
		result.Changes = []resolve.Change{}
	}
	teams := map[model.TeamID]string{}
	if formatter.Format != "json" && len(result.Changes) > 0 {
		var err error
		if teams, err = teamNames(cmd.Context(), svc); err != nil {
			return formatter.Fail(err)
		}
	}
	return formatter.Result(result, func(w io.Writer) {
		if result.Status != "" {
			fmt.Fprintf(w, "✓ Game %d %s\n", result.GameID, result.Status)
		}
		if len(result.Changes) == 0 {
			fmt.Fprintln(w, "  no slots resolved")
			return
		}
		for _, c := range result.Changes {
			fmt.Fprintf(w, "  game %d %s: %s -> %s\n", c.GameID, c.Role, displayTeam(c.From, teams), displayTeam(c.To, teams))
		}
	})
}
