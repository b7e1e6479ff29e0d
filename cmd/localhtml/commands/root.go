// Package commands implements the localhtml CLI: inspecting saved documents,
// moving data in and out of them and upgrading them to a newer template.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	localhtml "github.com/goliatone/go-localhtml"
	"github.com/goliatone/go-localhtml/internal/config"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/ident"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/migrate"
	"github.com/goliatone/go-localhtml/pkg/sheet"
	"github.com/goliatone/go-localhtml/pkg/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  logging.Logger
	store   *state.SQLiteStore
}

// NewRoot builds the localhtml command tree.
func NewRoot(version string) *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "localhtml",
		Short: "Inspect and upgrade self-contained HTML documents",
		Long: `localhtml works with HTML documents that carry their own state: the
form values, extra pages and widgets saved inside the file.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./"+config.DefaultFile+")")
	root.PersistentFlags().String("store", "", "SQLite database keeping revision history")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("rules", "", "YAML migration rules applied to older snapshots")
	root.PersistentFlags().String("script", "", "JavaScript migration script defining migrate(data)")
	_ = a.v.BindPFlag("store.path", root.PersistentFlags().Lookup("store"))
	_ = a.v.BindPFlag("migration.rules", root.PersistentFlags().Lookup("rules"))
	_ = a.v.BindPFlag("migration.script", root.PersistentFlags().Lookup("script"))
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		a.showCommand(),
		a.extractCommand(),
		a.injectCommand(),
		a.upgradeCommand(),
		a.blankCommand(),
		a.historyCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	}
	a.logger = logging.Slog(slog.New(handler))
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) openStore(ctx context.Context) (*state.SQLiteStore, error) {
	if a.store != nil || a.cfg.Store.Path == "" {
		return a.store, nil
	}
	store, err := state.OpenSQLite(ctx, a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// migrator builds the configured migrator, or nil when none is configured.
func (a *app) migrator() (migrate.Migrator, error) {
	m := a.cfg.Migration
	switch {
	case m.Script != "":
		source, err := os.ReadFile(m.Script)
		if err != nil {
			return nil, fmt.Errorf("read migration script: %w", err)
		}
		script, err := migrate.NewScript(filepath.Base(m.Script), string(source), migrate.JSWithTimeout(m.ScriptTimeout))
		if err != nil {
			return nil, err
		}
		return script.Migrate, nil
	case m.Rules != "":
		f, err := os.Open(m.Rules)
		if err != nil {
			return nil, fmt.Errorf("open migration rules: %w", err)
		}
		defer f.Close()
		rules, err := migrate.LoadRules(f, migrate.NewCache(m.CacheTTL), migrate.RulesWithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		return rules.Migrate, nil
	}
	return nil, nil
}

// engine builds an engine for the document template. document names the
// revision history written when a store is configured.
func (a *app) engine(ctx context.Context, template []byte, document string) (*localhtml.Engine, error) {
	scanned, err := sheet.Scan(template)
	if err != nil {
		return nil, err
	}
	opts := []localhtml.Option{
		localhtml.WithTemplate(scanned),
		localhtml.WithLogger(a.logger),
		localhtml.WithConfirmer(confirm.Always),
		localhtml.WithDisabledKinds(a.cfg.Document.DisabledWidgets...),
	}
	if strings.EqualFold(a.cfg.Document.IDs, config.IDsUUID) {
		opts = append(opts,
			localhtml.WithPageGenerator(ident.UUID(ident.PagePrefix)),
			localhtml.WithWidgetGenerator(ident.UUID(ident.WidgetPrefix)),
		)
	}
	if url := a.cfg.Document.InfoURL; url != "" {
		opts = append(opts, localhtml.WithInfoURL(&url))
	}
	if field := a.cfg.Document.NameField; field != "" {
		opts = append(opts, localhtml.WithSheetName(func(s map[string]any) string {
			name, _ := s[field].(string)
			return name
		}))
	}
	migrator, err := a.migrator()
	if err != nil {
		return nil, err
	}
	if migrator != nil {
		opts = append(opts, localhtml.WithMigrator(migrator))
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil && document != "" {
		opts = append(opts, localhtml.WithAutosave(store, document))
	}
	return localhtml.New(opts...)
}

// documentName is the revision history key of a document file.
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
