package localhtml

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-localhtml/pkg/activity"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/migrate"
	"github.com/goliatone/go-localhtml/pkg/notify"
	"github.com/goliatone/go-localhtml/pkg/pages"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/sheet"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/goliatone/go-localhtml/pkg/state"
	"github.com/goliatone/go-localhtml/pkg/version"
	"github.com/goliatone/go-localhtml/pkg/widgets"
	"github.com/goliatone/go-localhtml/pkg/widgets/builtin"
)

const importSource = "import"

// Engine aggregates the document's fields, pages and widgets into snapshots
// and distributes snapshots back to them. It holds no document state of its
// own beyond the version stamp.
type Engine struct {
	fields    *FieldSet
	pages     *pages.Manager
	widgets   *widgets.Manager
	notifier  *notify.Notifier
	migrator  migrate.Migrator
	confirmer confirm.Confirmer
	namer     func(map[string]any) string
	autosave  *state.Autosaver
	log       logging.Component
	events    *activity.Emitter

	verMu   sync.RWMutex
	version string

	restoring atomic.Bool

	cbMu   sync.Mutex
	action func()
}

// New builds an Engine and mounts the document's static rich-text fields.
func New(opts ...Option) (*Engine, error) {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.version == "" {
		cfg.version = version.Zero
	}
	if cfg.editor == nil {
		cfg.editor = richtext.NewMemoryEditor()
	}
	if cfg.registry == nil {
		cfg.registry = builtin.NewRegistry(builtin.WithEditor(cfg.editor))
	}
	logger := logging.OrNop(cfg.logger)

	e := &Engine{
		fields:    NewFieldSet(cfg.fields...),
		migrator:  cfg.migrator,
		confirmer: cfg.confirmer,
		namer:     cfg.namer,
		log:       logging.Component{Name: "localhtml", Logger: logger},
		events:    cfg.events,
		version:   cfg.version,
	}
	e.fields.setOnChange(e.changed)

	pageOpts := []pages.Option{
		pages.WithFields(cfg.richFields...),
		pages.WithStaticPages(cfg.staticPages),
		pages.WithConfirmer(cfg.confirmer),
		pages.WithLogger(logger),
		pages.WithActivity(cfg.events),
		pages.WithOnChange(e.changed),
	}
	if cfg.pageIDs != nil {
		pageOpts = append(pageOpts, pages.WithGenerator(cfg.pageIDs))
	}
	pm, err := pages.New(cfg.editor, pageOpts...)
	if pm == nil {
		return nil, fmt.Errorf("localhtml: mount pages: %w", err)
	}
	if err != nil {
		// Fields without an editor keep their content parked.
		e.log.Warn("some rich-text fields have no editor", nil, err)
	}
	e.pages = pm

	widgetOpts := []widgets.Option{
		widgets.WithConfirmer(cfg.confirmer),
		widgets.WithLogger(logger),
		widgets.WithActivity(cfg.events),
		widgets.WithOnChange(e.changed),
		widgets.WithDisabledKinds(cfg.disabled...),
	}
	if cfg.widgetIDs != nil {
		widgetOpts = append(widgetOpts, widgets.WithGenerator(cfg.widgetIDs))
	}
	if cfg.infoURLSet {
		widgetOpts = append(widgetOpts, widgets.WithInfoURL(cfg.infoURL))
	}
	e.widgets = widgets.New(cfg.registry, widgetOpts...)

	notifyOpts := []notify.Option{notify.WithLogger(logger)}
	if cfg.clock != nil {
		notifyOpts = append(notifyOpts, notify.WithClock(cfg.clock))
	}
	if cfg.cooldown > 0 {
		notifyOpts = append(notifyOpts, notify.WithCooldown(cfg.cooldown))
	}
	e.notifier = notify.New(e.dispatch, notifyOpts...)

	if cfg.store != nil {
		saver, err := state.NewAutosaver(cfg.store, state.Ref{Document: cfg.document},
			func() (snapshot.Snapshot, error) { return e.AssembleSnapshot(), nil },
			state.WithAutosaveLogger(logger),
		)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("localhtml: autosave: %w", err)
		}
		e.autosave = saver
	}
	return e, nil
}

// Fields returns the document's form controls.
func (e *Engine) Fields() *FieldSet { return e.fields }

// Pages returns the page manager.
func (e *Engine) Pages() *pages.Manager { return e.pages }

// Widgets returns the widget manager.
func (e *Engine) Widgets() *widgets.Manager { return e.widgets }

// SheetVersion returns the version stamped on assembled snapshots.
func (e *Engine) SheetVersion() string {
	e.verMu.RLock()
	defer e.verMu.RUnlock()
	return e.version
}

// SheetName returns the file name a document holding s is saved under.
func (e *Engine) SheetName(s snapshot.Snapshot) string {
	name := DefaultSheetName
	if e.namer != nil {
		if custom := strings.TrimSpace(e.namer(s)); custom != "" {
			name = custom
		}
	}
	return name + ".html"
}

// SetChangeAction sets the function called, rate limited by cooldown, after
// document edits. A negative cooldown keeps the current one.
func (e *Engine) SetChangeAction(fn func(), cooldown time.Duration) {
	e.cbMu.Lock()
	e.action = fn
	e.cbMu.Unlock()
	e.notifier.SetAction(e.dispatch, cooldown)
}

// AssembleSnapshot collects the persistent field values, pages, widgets and
// version stamp into a new snapshot. Live state is not modified.
func (e *Engine) AssembleSnapshot() snapshot.Snapshot {
	out := snapshot.Snapshot{}
	for key, value := range e.fields.Values() {
		out[key] = value
	}
	for key, value := range e.pages.Serialize() {
		out[key] = value
	}

	descriptors := e.widgets.Serialize()
	list := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		value, err := snapshot.Normalize(d)
		if err != nil {
			e.log.Warn("skipping unserializable widget", map[string]any{"id": d.ID, "kind": d.Kind}, err)
			continue
		}
		list = append(list, value)
	}
	out[snapshot.KeyWidgets] = list
	out[snapshot.KeyVersion] = e.SheetVersion()
	return out
}

// RestoreSnapshot resets every field and then loads fields, pages and
// widgets from s, in that order. Widgets that cannot be restored are skipped.
// A restore requested while another one runs fails with
// errdefs.ErrRestoreInProgress.
func (e *Engine) RestoreSnapshot(s snapshot.Snapshot) error {
	if !e.restoring.CompareAndSwap(false, true) {
		return errdefs.ErrRestoreInProgress
	}
	e.restore(s)
	e.restoring.Store(false)

	e.notifier.Notify()
	e.emit(activity.VerbDocumentRestored, activity.DocumentEventInput{})
	return nil
}

func (e *Engine) restore(s snapshot.Snapshot) {
	if s == nil {
		s = snapshot.Snapshot{}
	}
	e.fields.restore(s)
	if err := e.pages.Restore(s); err != nil {
		e.log.Warn("pages restored with errors", nil, err)
	}
	if errs := e.widgets.Restore(s[snapshot.KeyWidgets]); len(errs) > 0 {
		e.log.Warn("widgets restored with errors", map[string]any{"failed": len(errs)}, widgets.Errors(errs))
	}
}

// ImportSnapshot migrates a copy of raw, when a migrator is configured, and
// restores the result. The migrator is called exactly once. Migration
// failures leave the document untouched and are reported as
// *errdefs.MigrationError.
func (e *Engine) ImportSnapshot(raw snapshot.Snapshot) error {
	input := snapshot.Clone(raw)
	if input == nil {
		input = snapshot.Snapshot{}
	}
	from := version.Of(input)
	to := e.SheetVersion()

	result := input
	if e.migrator != nil {
		migrated, err := runMigrator(e.migrator, input)
		if err != nil {
			e.log.Error("migration failed", map[string]any{"from": from, "to": to}, err)
			return &errdefs.MigrationError{From: from, To: to, Err: err}
		}
		if migrated == nil {
			return &errdefs.MigrationError{From: from, To: to, Err: fmt.Errorf("migrator returned no snapshot")}
		}
		result = migrated
	}

	normalized, err := snapshot.Normalize(map[string]any(result))
	if err != nil {
		return &errdefs.MigrationError{From: from, To: to, Err: err}
	}
	object, ok := normalized.(map[string]any)
	if !ok {
		return &errdefs.MigrationError{From: from, To: to, Err: fmt.Errorf("migrated snapshot is %T, not an object", normalized)}
	}

	if err := e.RestoreSnapshot(snapshot.Snapshot(object)); err != nil {
		return err
	}
	if e.migrator != nil {
		e.emit(activity.VerbDocumentMigrated, activity.DocumentEventInput{FromVersion: from})
	}
	e.emit(activity.VerbDocumentImported, activity.DocumentEventInput{FromVersion: from})
	return nil
}

func runMigrator(m migrate.Migrator, in snapshot.Snapshot) (out snapshot.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("migrator panicked: %v", r)
		}
	}()
	return m(in)
}

// Clear asks for confirmation and then empties the document. It reports
// whether the document was cleared.
func (e *Engine) Clear() (bool, error) {
	if !confirm.Ask(e.confirmer, confirm.PromptClear) {
		return false, nil
	}
	if err := e.Reset(); err != nil {
		return false, err
	}
	return true, nil
}

// Reset empties the document without asking.
func (e *Engine) Reset() error {
	if err := e.RestoreSnapshot(snapshot.Snapshot{}); err != nil {
		return err
	}
	e.emit(activity.VerbDocumentCleared, activity.DocumentEventInput{})
	return nil
}

// Blank empties the content of the document while keeping its shape: field
// values go back to their defaults, every page is emptied and every widget is
// rebuilt from its kind's defaults. Extra pages and widgets stay in place.
func (e *Engine) Blank() error {
	if !e.restoring.CompareAndSwap(false, true) {
		return errdefs.ErrRestoreInProgress
	}
	e.fields.Reset()
	e.pages.ClearContent()
	if errs := e.widgets.ResetContent(); len(errs) > 0 {
		e.log.Warn("widgets reset with errors", map[string]any{"failed": len(errs)}, widgets.Errors(errs))
	}
	e.restoring.Store(false)

	e.notifier.Notify()
	e.emit(activity.VerbDocumentCleared, activity.DocumentEventInput{})
	return nil
}

// LoadDocument restores the state saved inside doc. The document's version
// stamp replaces the engine's. Missing or malformed data loads an empty
// document.
func (e *Engine) LoadDocument(doc []byte) error {
	contents, err := sheet.Extract(doc)
	if err != nil {
		return err
	}
	if contents.Version != "" {
		e.verMu.Lock()
		e.version = contents.Version
		e.verMu.Unlock()
	}

	s := snapshot.Snapshot{}
	if contents.HasData && contents.Data != "" {
		decoded, err := snapshot.Decode([]byte(contents.Data), sheet.DataID)
		if err != nil {
			e.log.Warn("ignoring malformed document data", nil, err)
		} else {
			s = decoded
		}
	}
	if err := e.RestoreSnapshot(s); err != nil {
		return err
	}
	e.emit(activity.VerbDocumentLoaded, activity.DocumentEventInput{})
	return nil
}

// ImportDocument imports the state saved in another document, found by text
// search. Malformed data fails with *errdefs.ParseError before anything
// changes.
func (e *Engine) ImportDocument(raw []byte) error {
	text, ok := sheet.ExtractRaw(raw)
	if !ok {
		return &errdefs.ParseError{Source: importSource, Err: fmt.Errorf("no %s container: %w", sheet.DataID, errdefs.ErrNotFound)}
	}
	s, err := snapshot.Decode([]byte(text), importSource)
	if err != nil {
		return err
	}
	return e.ImportSnapshot(s)
}

// ConfirmImport asks whether unsaved changes may be discarded and then
// imports raw. It reports whether the import ran.
func (e *Engine) ConfirmImport(raw []byte) (bool, error) {
	if !confirm.Ask(e.confirmer, confirm.PromptImport) {
		return false, nil
	}
	if err := e.ImportDocument(raw); err != nil {
		return false, err
	}
	return true, nil
}

// SaveDocument writes the current snapshot into doc and returns the document
// to save.
func (e *Engine) SaveDocument(doc []byte) ([]byte, error) {
	payload, err := snapshot.Encode(e.AssembleSnapshot())
	if err != nil {
		return nil, err
	}
	out, err := sheet.Inject(doc, payload, e.SheetVersion())
	if err != nil {
		return nil, fmt.Errorf("localhtml: save document: %w", err)
	}
	e.emit(activity.VerbDocumentSaved, activity.DocumentEventInput{})
	return out, nil
}

// RestoreAutosave restores the latest autosaved revision. It reports false
// when autosave is off or nothing was saved yet.
func (e *Engine) RestoreAutosave(ctx context.Context) (bool, error) {
	if e.autosave == nil {
		return false, nil
	}
	return e.autosave.Restore(ctx, e.RestoreSnapshot)
}

// Close stops pending notifications and releases pages and widgets.
func (e *Engine) Close() {
	e.notifier.Stop()
	if e.widgets != nil {
		e.widgets.Close()
	}
	if e.pages != nil {
		e.pages.Close()
	}
}

func (e *Engine) changed() {
	if e.restoring.Load() {
		return
	}
	e.notifier.Notify()
}

func (e *Engine) dispatch() {
	if e.autosave != nil {
		if _, _, err := e.autosave.Save(context.Background()); err != nil {
			e.log.Warn("autosave failed", nil, err)
		}
	}
	e.cbMu.Lock()
	fn := e.action
	e.cbMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (e *Engine) emit(verb string, input activity.DocumentEventInput) {
	if !e.events.Enabled() {
		return
	}
	if input.Version == "" {
		input.Version = e.SheetVersion()
	}
	input.Pages = e.pages.Len()
	input.Widgets = e.widgets.Len()
	if err := e.events.Emit(context.Background(), activity.BuildDocumentEvent(verb, input)); err != nil {
		e.log.Warn("activity hook failed", map[string]any{"verb": verb}, err)
	}
}
