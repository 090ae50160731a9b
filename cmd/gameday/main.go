// Gameday builds tournament schedules from reusable templates and resolves
// the bracket as results come in.
//
// Usage:
//
//	gameday [--db PATH] [--format json|text] <command> <subcommand> [flags]
//
// Commands:
//
//	validate  Check a template document
//	template  Import, export, clone and list templates
//	team      Manage the team registry
//	gameday   Create gamedays and apply templates
//	game      Record scores and finish games
//	scenario  Run scenario files
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gameday/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	rootCmd := cli.NewRootCommand()
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}
	// Exit errors have already been reported by the command.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
