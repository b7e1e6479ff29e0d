package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goliatone/go-localhtml/pkg/state"
	"github.com/spf13/cobra"
)

func (a *app) historyCommand() *cobra.Command {
	var limit int
	var revision string
	cmd := &cobra.Command{
		Use:   "history <document>",
		Short: "List or print saved revisions of a document",
		Long: `List the revisions recorded in the revision store, newest first. With
--revision, print that revision's snapshot as JSON instead. The document is
named after its file without extension.

Examples:
  localhtml history hero --store history.db
  localhtml history hero --store history.db --revision 6f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history needs a revision store: set --store or store.path")
			}
			ref := state.Ref{Document: documentName(args[0])}

			if revision != "" {
				s, _, err := store.Revision(cmd.Context(), ref, revision)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(cmd, "-", append(out, '\n'))
			}

			metas, err := store.History(cmd.Context(), ref, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SNAPSHOT\tVERSION\tUPDATED\tETAG")
			for _, m := range metas {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.SnapshotID, m.Version, m.UpdatedAt.Format(time.RFC3339), m.ETag)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of revisions to list, 0 for all")
	cmd.Flags().StringVar(&revision, "revision", "", "print the snapshot of this revision")
	return cmd
}
