package commands

import (
	"fmt"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/spf13/cobra"
)

func (a *app) injectCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "inject <template.html> <data.json>",
		Short: "Write snapshot JSON into a document",
		Long: `Import a snapshot into a document template and print the saved document.
The snapshot is migrated first when migration rules or a script are
configured. Use "-" to read the snapshot from stdin.

Examples:
  localhtml inject sheet.html hero.json -o hero.html
  localhtml extract old.html | localhtml inject sheet.html - --rules rules.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			raw, err := snapshot.Decode(data, args[1])
			if err != nil {
				return err
			}

			name := ""
			if output != "-" {
				name = documentName(output)
			}
			e, err := a.engine(cmd.Context(), template, name)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.ImportSnapshot(raw); err != nil {
				return err
			}
			saved, err := e.SaveDocument(template)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, saved)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}

func (a *app) upgradeCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "upgrade <old.html> <template.html>",
		Short: "Move a document's data into a newer template",
		Long: `Import the data saved in an older document into a newer template, migrating
it on the way, and save the result. The output defaults to the name the
document would be saved under, e.g. document.html.

Examples:
  localhtml upgrade hero-v1.html sheet-v2.html --rules rules.yaml
  localhtml upgrade hero-v1.html sheet-v2.html --script migrate.js -o hero.html`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			template, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			e, err := a.engine(cmd.Context(), template, documentName(args[0]))
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.ImportDocument(old); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			saved, err := e.SaveDocument(template)
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = e.SheetName(e.AssembleSnapshot())
			}
			return writeOutput(cmd, target, saved)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, \"-\" for stdout")
	return cmd
}
