package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/seed"
	"github.com/roach88/gameday/internal/validator"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Name        string            `json:"name"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Errors      []validator.Issue `json:"errors,omitempty"`
	Warnings    []validator.Issue `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template-file>",
		Short: "Validate a template document without storing it",
		Long: `Validate a template document (YAML, JSON or CUE).

Reports every structural error (E2xx) and warning (W3xx). Warnings never
make a template invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	tmpl, err := seed.Load(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		// Unreadable documents are command-level errors (exit code 2)
		return WrapExitError(ExitCommandError, "failed to load template", err)
	}
	formatter.VerboseLog("Loaded %s: %d slot(s), %d rule(s)", path, len(tmpl.Slots), len(tmpl.Rules))

	report := validator.Validate(tmpl)
	result := ValidationResult{
		Valid:    report.Valid(),
		Name:     tmpl.Name,
		Errors:   report.Errors,
		Warnings: report.Warnings,
	}
	if result.Valid {
		if result.Fingerprint, err = tmpl.Fingerprint(); err != nil {
			return WrapExitError(ExitCommandError, "failed to fingerprint template", err)
		}
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: report.Errors[0].Code, Message: report.Errors[0].Message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		writeReport(formatter.Writer, result)
	}

	if !result.Valid {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))
	}
	return nil
}

func writeReport(w io.Writer, result ValidationResult) {
	if result.Valid {
		fmt.Fprintf(w, "✓ Template %q valid\n", result.Name)
		fmt.Fprintf(w, "  fingerprint %s\n", result.Fingerprint)
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "  %s\n", formatIssue(issue))
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "  warning %s\n", formatIssue(issue))
	}
}

func formatIssue(issue validator.Issue) string {
	if len(issue.SlotIDs) == 0 {
		return fmt.Sprintf("%s: %s", issue.Code, issue.Message)
	}
	ids := make([]string, len(issue.SlotIDs))
	for i, id := range issue.SlotIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s: %s (slots %s)", issue.Code, issue.Message, strings.Join(ids, ", "))
}
