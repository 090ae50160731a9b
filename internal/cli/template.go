package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/seed"
	"github.com/roach88/gameday/internal/store"
)

// TemplateSummary is the JSON shape of a stored template header.
type TemplateSummary struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	NumTeams    int              `json:"num_teams"`
	NumFields   int              `json:"num_fields"`
	Slots       int              `json:"slots,omitempty"`
	Rules       int              `json:"rules,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Ties        *model.TiePolicy `json:"ties,omitempty"`
}

// NewTemplateCommand creates the template command group.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Import, export, clone and list stored templates",
	}
	cmd.AddCommand(newTemplateImportCommand(rootOpts))
	cmd.AddCommand(newTemplateExportCommand(rootOpts))
	cmd.AddCommand(newTemplateCloneCommand(rootOpts))
	cmd.AddCommand(newTemplateListCommand(rootOpts))
	cmd.AddCommand(newTemplateDeleteCommand(rootOpts))
	return cmd
}

func newTemplateImportCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	ties := &TieFlags{}
	cmd := &cobra.Command{
		Use:   "import <template-file>",
		Short: "Validate a template document and store it",
		Example: `  gameday template import ./templates/4-teams.yaml
  gameday template import ./templates/bracket.cue --name "KO 4"
  gameday template import ./templates/8-teams.yaml --tie-breaker head_to_head --strict-ties`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			tmpl, err := seed.Load(args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			if name != "" {
				tmpl.Name = model.NormalizeLabel(name)
			}
			ties.apply(cmd, tmpl)

			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			saved, report, err := svc.ImportTemplate(cmd.Context(), tmpl)
			if err != nil {
				if formatter.Format != "json" {
					writeReport(formatter.ErrWriter, ValidationResult{Name: tmpl.Name, Errors: report.Errors, Warnings: report.Warnings})
				}
				return formatter.Fail(err)
			}
			tmpl = saved
			fingerprint, err := tmpl.Fingerprint()
			if err != nil {
				return formatter.Fail(err)
			}

			summary := summarize(tmpl)
			summary.Fingerprint = fingerprint
			return formatter.Result(summary, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Imported template %d %q (%d slots, %d rules)\n", tmpl.ID, tmpl.Name, len(tmpl.Slots), len(tmpl.Rules))
				if tmpl.Ties != nil {
					fmt.Fprintf(w, "  tie policy: [%s] strict=%t\n", strings.Join(tmpl.Ties.TieBreakers, ", "), tmpl.Ties.Strict)
				}
				for _, issue := range report.Warnings {
					fmt.Fprintf(w, "  warning %s\n", formatIssue(issue))
				}
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "override the template name")
	ties.register(cmd)
	return cmd
}

func newTemplateExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "export <template-id>",
		Short:         "Write a stored template as a YAML document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseID("template", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			tmpl, err := loadTemplate(cmd.Context(), rootOpts, cmd, id)
			if err != nil {
				return formatter.Fail(err)
			}
			data, err := seed.Encode(tmpl)
			if err != nil {
				return formatter.Fail(err)
			}

			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return formatter.Fail(WrapExitError(ExitCommandError, "failed to write template", err))
				}
				return formatter.Result(map[string]any{"template_id": id, "path": output}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Exported template %d to %s\n", id, output)
				})
			}
			return formatter.Result(map[string]any{"template_id": id, "document": string(data)}, func(w io.Writer) {
				_, _ = w.Write(data)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newTemplateCloneCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:           "clone <template-id>",
		Short:         "Copy a stored template under a new name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseID("template", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			var clone *model.Template
			err = svc.Store().InTx(ctx, func(tx *store.Tx) error {
				var err error
				clone, err = tx.CloneTemplate(ctx, id, model.NormalizeLabel(name))
				return err
			})
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(summarize(clone), func(w io.Writer) {
				fmt.Fprintf(w, "✓ Cloned template %d as %d %q\n", id, clone.ID, clone.Name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the copy (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTemplateListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored templates",
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
			var list []model.Template
			err = svc.Store().InTx(ctx, func(tx *store.Tx) error {
				var err error
				list, err = tx.ListTemplates(ctx)
				return err
			})
			if err != nil {
				return formatter.Fail(err)
			}

			summaries := make([]TemplateSummary, 0, len(list))
			for i := range list {
				summaries = append(summaries, summarize(&list[i]))
			}
			return formatter.Result(summaries, func(w io.Writer) {
				if len(summaries) == 0 {
					fmt.Fprintln(w, "No templates stored.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTEAMS\tFIELDS")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", s.ID, s.Name, s.NumTeams, s.NumFields)
				}
				_ = tw.Flush()
			})
		},
	}
}

func newTemplateDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <template-id>",
		Short:         "Delete a stored template; gamedays built from it keep their games",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseID("template", args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			svc, cleanup, err := openService(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer cleanup()

			ctx := cmd.Context()
			if err := svc.Store().InTx(ctx, func(tx *store.Tx) error {
				return tx.DeleteTemplate(ctx, id)
			}); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(map[string]any{"template_id": id, "deleted": true}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Deleted template %d\n", id)
			})
		},
	}
}

func loadTemplate(ctx context.Context, rootOpts *RootOptions, cmd *cobra.Command, id int64) (*model.Template, error) {
	svc, cleanup, err := openService(rootOpts, cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var tmpl *model.Template
	err = svc.Store().InTx(ctx, func(tx *store.Tx) error {
		var err error
		tmpl, err = tx.Template(ctx, id)
		return err
	})
	return tmpl, err
}

func summarize(t *model.Template) TemplateSummary {
	return TemplateSummary{
		ID:        t.ID,
		Name:      t.Name,
		NumTeams:  t.NumTeams,
		NumFields: t.NumFields,
		Slots:     len(t.Slots),
		Rules:     len(t.Rules),
		Ties:      t.Ties,
	}
}
