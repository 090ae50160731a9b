package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/service"
	"github.com/roach88/gameday/internal/store"
)

// TieFlags set the tie policy stored with an imported template. Every later
// resolution over gamedays built from it ranks with that policy.
type TieFlags struct {
	TieBreakers []string
	StrictTies  bool
}

func (f *TieFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.TieBreakers, "tie-breaker", nil, "tie-breaker applied after points, difference and goals (head_to_head|head_to_head_diff)")
	cmd.Flags().BoolVar(&f.StrictTies, "strict-ties", false, "fail instead of using schedule order when teams share a place")
}

// apply overrides the document's tie policy with the flags that were set on
// the command line. Names are checked by the validator on import.
func (f *TieFlags) apply(cmd *cobra.Command, tmpl *model.Template) {
	breakers, strict := cmd.Flags().Changed("tie-breaker"), cmd.Flags().Changed("strict-ties")
	if !breakers && !strict {
		return
	}
	if tmpl.Ties == nil {
		tmpl.Ties = &model.TiePolicy{TieBreakers: []string{}}
	}
	if breakers {
		tmpl.Ties.TieBreakers = append([]string{}, f.TieBreakers...)
	}
	if strict {
		tmpl.Ties.Strict = f.StrictTies
	}
}

// openService opens the configured database and wires the engines. The
// returned cleanup closes the store.
func openService(opts *RootOptions, cmd *cobra.Command) (*service.Service, func(), error) {
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	cleanup := func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}
	return service.New(st, service.WithLogger(logger)), cleanup, nil
}

// parseID parses a positional id argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

// parseScore parses a non-negative score argument.
func parseScore(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid score %q", arg))
	}
	return n, nil
}
