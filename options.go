package localhtml

import (
	"time"

	"github.com/goliatone/go-localhtml/pkg/activity"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/ident"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/migrate"
	"github.com/goliatone/go-localhtml/pkg/notify"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/sheet"
	"github.com/goliatone/go-localhtml/pkg/state"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// DefaultSheetName is the base name of a saved document without a custom name.
const DefaultSheetName = "document"

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	version     string
	fields      []Field
	richFields  []string
	staticPages int
	editor      richtext.Editor
	registry    *widgets.Registry
	migrator    migrate.Migrator
	confirmer   confirm.Confirmer
	logger      logging.Logger
	events      *activity.Emitter
	clock       notify.Clock
	cooldown    time.Duration
	namer       func(snapshot map[string]any) string
	pageIDs     ident.Generator
	widgetIDs   ident.Generator
	infoURL     *string
	infoURLSet  bool
	disabled    []string
	store       state.Store
	document    string
}

// WithVersion sets the version stamped on snapshots the engine assembles.
func WithVersion(v string) Option {
	return func(cfg *engineConfig) {
		cfg.version = v
	}
}

// WithFields declares the document's form controls.
func WithFields(fields ...Field) Option {
	return func(cfg *engineConfig) {
		cfg.fields = append(cfg.fields, fields...)
	}
}

// WithRichFields declares the rich-text fields of the static pages.
func WithRichFields(names ...string) Option {
	return func(cfg *engineConfig) {
		cfg.richFields = append(cfg.richFields, names...)
	}
}

// WithStaticPages sets how many pages precede the extra pages.
func WithStaticPages(n int) Option {
	return func(cfg *engineConfig) {
		if n >= 0 {
			cfg.staticPages = n
		}
	}
}

// WithTemplate declares fields, rich-text fields, static pages and version
// from a scanned document.
func WithTemplate(t sheet.Template) Option {
	return func(cfg *engineConfig) {
		cfg.fields = append(cfg.fields, FieldsFromTemplate(t)...)
		cfg.richFields = append(cfg.richFields, t.RichFields...)
		cfg.staticPages = t.StaticPages
		if t.Version != "" {
			cfg.version = t.Version
		}
	}
}

// WithEditor sets the rich-text editor pages and notepads are mounted in.
// Defaults to an in-memory editor.
func WithEditor(editor richtext.Editor) Option {
	return func(cfg *engineConfig) {
		cfg.editor = editor
	}
}

// WithRegistry sets the widget kinds. Defaults to the built-in kinds.
func WithRegistry(registry *widgets.Registry) Option {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// WithMigrator sets the migrator applied by ImportSnapshot.
func WithMigrator(m migrate.Migrator) Option {
	return func(cfg *engineConfig) {
		cfg.migrator = m
	}
}

// WithConfirmer sets the prompt used before destructive edits.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(cfg *engineConfig) {
		cfg.confirmer = c
	}
}

// WithLogger sets the logger shared by the engine and its components.
func WithLogger(logger logging.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithActivity sets the emitter that receives document, page and widget events.
func WithActivity(emitter *activity.Emitter) Option {
	return func(cfg *engineConfig) {
		cfg.events = emitter
	}
}

// WithClock sets the clock of the change notifier.
func WithClock(clock notify.Clock) Option {
	return func(cfg *engineConfig) {
		cfg.clock = clock
	}
}

// WithCooldown sets the change notifier cooldown.
func WithCooldown(d time.Duration) Option {
	return func(cfg *engineConfig) {
		cfg.cooldown = d
	}
}

// WithSheetName names saved documents after the snapshot. An empty result
// falls back to DefaultSheetName.
func WithSheetName(fn func(snapshot map[string]any) string) Option {
	return func(cfg *engineConfig) {
		cfg.namer = fn
	}
}

// WithPageGenerator sets the identifier generator of extra pages.
func WithPageGenerator(g ident.Generator) Option {
	return func(cfg *engineConfig) {
		cfg.pageIDs = g
	}
}

// WithWidgetGenerator sets the identifier generator of widgets.
func WithWidgetGenerator(g ident.Generator) Option {
	return func(cfg *engineConfig) {
		cfg.widgetIDs = g
	}
}

// WithInfoURL sets the browser widget's default page. nil disables browsers.
func WithInfoURL(url *string) Option {
	return func(cfg *engineConfig) {
		cfg.infoURL = url
		cfg.infoURLSet = true
	}
}

// WithDisabledKinds disables widget kinds from the start.
func WithDisabledKinds(kinds ...string) Option {
	return func(cfg *engineConfig) {
		cfg.disabled = append(cfg.disabled, kinds...)
	}
}

// WithAutosave persists a revision to store, under document, every time the
// change notifier fires.
func WithAutosave(store state.Store, document string) Option {
	return func(cfg *engineConfig) {
		cfg.store = store
		cfg.document = document
	}
}
