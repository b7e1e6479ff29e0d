package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) blankCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "blank <document.html>",
		Short: "Empty a document but keep its pages and widgets",
		Long: `Load a saved document, reset its form values, empty every page and reset
every widget to its defaults, keeping the extra pages and widgets in place.
The result is a blank copy that can be handed out as a starting point.

Examples:
  localhtml blank hero.html -o blank-hero.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(cmd.Context(), doc, "")
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.LoadDocument(doc); err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			if err := e.Blank(); err != nil {
				return err
			}
			saved, err := e.SaveDocument(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, saved)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}
