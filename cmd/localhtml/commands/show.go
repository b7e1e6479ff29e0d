package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/sheet"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type widgetSummary struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"type"`
	DisplayName string `yaml:"displayName,omitempty"`
}

type pageSummary struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// summary is what show prints for a document.
type summary struct {
	File    string          `yaml:"file"`
	Version string          `yaml:"version"`
	Saved   string          `yaml:"savedAs"`
	Fields  map[string]any  `yaml:"fields"`
	Pages   []pageSummary   `yaml:"pages"`
	Widgets []widgetSummary `yaml:"widgets"`
}

func (a *app) showCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <document.html>",
		Short: "Summarize the state saved in a document",
		Long: `Load a document the way the page itself does and print its version, form
values, extra pages and widgets as YAML.

Examples:
  localhtml show hero.html
  localhtml show hero.html --json | jq '.widgets'`,
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
				return err
			}
			current := e.AssembleSnapshot()

			if asJSON {
				out, err := json.MarshalIndent(current, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(cmd, "-", append(out, '\n'))
			}

			s := summary{
				File:    args[0],
				Version: e.SheetVersion(),
				Saved:   e.SheetName(current),
				Fields:  e.Fields().Values(),
			}
			for _, p := range e.Pages().Pages() {
				content, _ := e.Pages().Content(p.ID)
				s.Pages = append(s.Pages, pageSummary{ID: p.ID, Title: p.Title, Text: strings.TrimRight(richtext.PlainText(content), "\n")})
			}
			for _, d := range e.Widgets().Serialize() {
				s.Widgets = append(s.Widgets, widgetSummary{ID: d.ID, Kind: d.Kind, DisplayName: d.DisplayName})
			}
			out, err := yaml.Marshal(s)
			if err != nil {
				return err
			}
			return writeOutput(cmd, "-", out)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full snapshot as JSON")
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "extract <document.html>",
		Short: "Print the raw JSON saved in a document",
		Long: `Find the data container by text search, as an import does, and print its
JSON. Fails when the document holds no data or the data is malformed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			text, ok := sheet.ExtractRaw(doc)
			if !ok {
				return &errdefs.ParseError{Source: args[0], Err: fmt.Errorf("no %s container: %w", sheet.DataID, errdefs.ErrNotFound)}
			}
			s, err := snapshot.Decode([]byte(text), args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, append(out, '\n'))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}
