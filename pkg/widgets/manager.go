package widgets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/activity"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/ident"
	"github.com/goliatone/go-localhtml/pkg/logging"
)

// KindBrowser is disabled whenever the document has no info URL.
const KindBrowser = "browser"

// Option configures a Manager.
type Option func(*Manager)

// WithGenerator replaces the default widget identifier generator.
func WithGenerator(g ident.Generator) Option {
	return func(m *Manager) {
		if g != nil {
			m.ids = g
		}
	}
}

// WithConfirmer sets the prompt used before removing a widget.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(m *Manager) {
		m.confirmer = c
	}
}

// WithLogger attaches a logger. Widgets receive the same logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.log.Logger = logger
	}
}

// WithActivity emits widget.* events through emitter.
func WithActivity(emitter *activity.Emitter) Option {
	return func(m *Manager) {
		m.events = emitter
	}
}

// WithOnChange registers the callback signalled after every mutation and
// whenever a widget reports a content change.
func WithOnChange(fn func()) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithDisabledKinds starts the manager with kinds disabled.
func WithDisabledKinds(kinds ...string) Option {
	return func(m *Manager) {
		for _, kind := range kinds {
			if kind != "" && !slices.Contains(m.disabled, kind) {
				m.disabled = append(m.disabled, kind)
			}
		}
	}
}

// WithInfoURL sets the default browser URL. A nil url disables the browser kind.
func WithInfoURL(url *string) Option {
	return func(m *Manager) {
		if url == nil {
			m.infoURL = ""
			WithDisabledKinds(KindBrowser)(m)
			return
		}
		m.infoURL = *url
	}
}

type entry struct {
	widget Widget
}

// Manager owns the live widgets. Constructors, Render and Destroy run
// without mu held, so widgets may signal changes from any of them.
type Manager struct {
	mu        sync.Mutex
	cbMu      sync.Mutex
	registry  *Registry
	ids       ident.Generator
	confirmer confirm.Confirmer
	log       logging.Component
	events    *activity.Emitter
	onChange  func()
	disabled  []string
	infoURL   string
	widgets   []entry
}

// New returns an empty Manager bound to registry.
func New(registry *Registry, opts ...Option) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Manager{
		registry:  registry,
		ids:       ident.NewWidgetGenerator(),
		confirmer: confirm.Always,
		log:       logging.Component{Name: "widgets"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Registry returns the registry widgets are built from.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// SetOnChange replaces the mutation callback.
func (m *Manager) SetOnChange(fn func()) {
	m.cbMu.Lock()
	m.onChange = fn
	m.cbMu.Unlock()
}

// AddWidget constructs and appends a widget. An empty kind returns a
// *errdefs.MissingRequiredFieldError, an unregistered kind returns a
// *errdefs.UnknownWidgetKindError; in both cases the collection is unchanged.
// Adding a disabled kind is logged and ignored.
func (m *Manager) AddWidget(d Descriptor) error {
	w, index, err := m.add(d)
	if err != nil || w == nil {
		return err
	}
	m.emit(activity.VerbWidgetAdded, activity.WidgetEventInput{WidgetID: w.ID(), Kind: w.Kind(), Index: index})
	m.changed()
	return nil
}

// RemoveWidget destroys and removes the widget at index after confirmation.
func (m *Manager) RemoveWidget(index int) (bool, error) {
	if err := m.checkIndex(index); err != nil {
		return false, err
	}
	if !confirm.Ask(m.confirmer, confirm.PromptRemoveWidget) {
		m.log.Debug("widget removal declined", map[string]any{"index": index})
		return false, nil
	}

	m.mu.Lock()
	if index < 0 || index >= len(m.widgets) {
		m.mu.Unlock()
		return false, indexError(index)
	}
	removed := m.widgets[index].widget
	m.widgets = append(m.widgets[:index], m.widgets[index+1:]...)
	m.mu.Unlock()

	destroy(removed)
	m.emit(activity.VerbWidgetRemoved, activity.WidgetEventInput{WidgetID: removed.ID(), Kind: removed.Kind(), Index: index})
	m.changed()
	return true, nil
}

// RemoveAll destroys every widget in order.
func (m *Manager) RemoveAll() {
	m.mu.Lock()
	removed := m.widgets
	m.widgets = nil
	m.mu.Unlock()
	for _, e := range removed {
		destroy(e.widget)
	}
}

// Serialize returns one descriptor per live widget, in order.
func (m *Manager) Serialize() []Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Descriptor, len(m.widgets))
	for i, e := range m.widgets {
		out[i] = Descriptor{
			ID:          e.widget.ID(),
			Kind:        e.widget.Kind(),
			DisplayName: e.widget.DisplayName(),
			ContentData: e.widget.ContentData(),
		}
	}
	return out
}

// Restore replaces every widget with the ones described by raw. Anything
// other than a list yields an empty collection. Descriptors that fail are
// skipped and their errors returned; identifiers are preserved.
func (m *Manager) Restore(raw any) []error {
	descriptors, ok := toList(raw)

	m.RemoveAll()
	var errs []error
	if !ok {
		if raw != nil {
			m.log.Warn("ignoring malformed widget list", map[string]any{"type": fmt.Sprintf("%T", raw)}, nil)
		}
	} else {
		for i, item := range descriptors {
			d, err := DescriptorFrom(item)
			if err == nil {
				_, _, err = m.add(d)
			}
			if err != nil {
				m.log.Warn("skipping widget", map[string]any{"index": i}, err)
				errs = append(errs, err)
			}
		}
	}

	m.changed()
	return errs
}

// ReloadAll serializes and restores every widget, dropping disabled kinds.
func (m *Manager) ReloadAll() []error {
	return m.Restore(m.Serialize())
}

// ResetContent rebuilds every widget from its kind's default content.
func (m *Manager) ResetContent() []error {
	current := m.Serialize()
	for i := range current {
		current[i].ContentData = nil
	}
	return m.Restore(current)
}

// DisableKind prevents kind from being added and drops live instances.
func (m *Manager) DisableKind(kind string) {
	if kind == "" {
		return
	}
	m.mu.Lock()
	if slices.Contains(m.disabled, kind) {
		m.mu.Unlock()
		return
	}
	m.disabled = append(m.disabled, kind)
	m.mu.Unlock()

	m.log.Info("disabled", map[string]any{"kind": kind})
	m.emit(activity.VerbWidgetDisabled, activity.WidgetEventInput{Kind: kind, Index: -1})
	m.ReloadAll()
}

// EnableKind allows kind to be added again.
func (m *Manager) EnableKind(kind string) {
	m.mu.Lock()
	before := len(m.disabled)
	m.disabled = slices.DeleteFunc(m.disabled, func(k string) bool { return k == kind })
	changed := len(m.disabled) != before
	m.mu.Unlock()
	if changed {
		m.emit(activity.VerbWidgetEnabled, activity.WidgetEventInput{Kind: kind, Index: -1})
	}
}

// Disabled reports whether kind is disabled.
func (m *Manager) Disabled(kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.disabled, kind)
}

// AvailableKinds lists registered kinds that are not disabled.
func (m *Manager) AvailableKinds() []string {
	kinds := m.registry.Kinds()
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.DeleteFunc(kinds, func(k string) bool { return slices.Contains(m.disabled, k) })
}

// SetInfoURL sets the default browser URL. A nil url disables the browser
// kind, dropping live browser widgets.
func (m *Manager) SetInfoURL(url *string) {
	m.mu.Lock()
	if url != nil {
		m.infoURL = *url
		m.mu.Unlock()
		return
	}
	m.infoURL = ""
	m.mu.Unlock()
	m.DisableKind(KindBrowser)
}

// InfoURL returns the default browser URL.
func (m *Manager) InfoURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoURL
}

// Len returns the number of live widgets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.widgets)
}

// Widget returns the live widget at index.
func (m *Manager) Widget(index int) (Widget, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.widgets) {
		return nil, false
	}
	return m.widgets[index].widget, true
}

// Close destroys every widget.
func (m *Manager) Close() {
	m.RemoveAll()
}

// add builds the widget described by d and appends it. A nil widget with a
// nil error means the kind is disabled.
func (m *Manager) add(d Descriptor) (Widget, int, error) {
	m.mu.Lock()
	reg, cfg, err := m.prepareLocked(d)
	m.mu.Unlock()
	if err != nil || reg.New == nil {
		return nil, -1, err
	}

	w, err := reg.New(cfg)
	if err != nil {
		return nil, -1, fmt.Errorf("widgets: construct %s %s: %w", d.Kind, cfg.ID, err)
	}
	if w == nil {
		return nil, -1, fmt.Errorf("widgets: constructor for %s returned nil", d.Kind)
	}
	if err := w.Render(Container{ID: cfg.ID, Title: cfg.DisplayName}); err != nil {
		destroy(w)
		return nil, -1, fmt.Errorf("widgets: render %s %s: %w", d.Kind, cfg.ID, err)
	}

	m.mu.Lock()
	m.widgets = append(m.widgets, entry{widget: w})
	index := len(m.widgets) - 1
	m.mu.Unlock()
	return w, index, nil
}

// prepareLocked validates d and assigns its identifier. A zero Registration
// with a nil error means the kind is disabled.
func (m *Manager) prepareLocked(d Descriptor) (Registration, Config, error) {
	if d.Kind == "" {
		return Registration{}, Config{}, &errdefs.MissingRequiredFieldError{Op: "widgets", Field: "kind"}
	}
	reg, ok := m.registry.Lookup(d.Kind)
	if !ok {
		return Registration{}, Config{}, &errdefs.UnknownWidgetKindError{Kind: d.Kind, ID: d.ID}
	}
	if slices.Contains(m.disabled, d.Kind) {
		m.log.Info("widget not added: kind is disabled", map[string]any{"kind": d.Kind, "id": d.ID})
		return Registration{}, Config{}, nil
	}

	id := d.ID
	if id != "" && m.hasLocked(id) {
		m.log.Warn("duplicate widget id, assigning a new one", map[string]any{"id": id}, nil)
		id = ""
	}
	if id == "" {
		id = m.ids.Next()
	} else {
		ident.Reserve(m.ids, id)
	}
	name := d.DisplayName
	if name == "" {
		name = reg.DisplayName
	}
	return reg, Config{
		ID:          id,
		Kind:        d.Kind,
		DisplayName: name,
		ContentData: d.ContentData,
		InfoURL:     m.infoURL,
		OnChange:    m.changed,
		Logger:      m.log.Logger,
	}, nil
}

func (m *Manager) hasLocked(id string) bool {
	for _, e := range m.widgets {
		if e.widget.ID() == id {
			return true
		}
	}
	return false
}

func (m *Manager) checkIndex(index int) error {
	m.mu.Lock()
	n := len(m.widgets)
	m.mu.Unlock()
	if index < 0 || index >= n {
		return indexError(index)
	}
	return nil
}

func indexError(index int) error {
	return &errdefs.MissingRequiredFieldError{Op: "widgets", Field: "widget index", Value: index}
}

// destroy recovers from a panicking Destroy.
func destroy(w Widget) {
	defer func() { _ = recover() }()
	w.Destroy()
}

func toList(raw any) ([]any, bool) {
	switch typed := raw.(type) {
	case []any:
		return typed, true
	case []Descriptor:
		out := make([]any, len(typed))
		for i, d := range typed {
			out[i] = d
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(typed))
		for i, d := range typed {
			out[i] = d
		}
		return out, true
	default:
		return nil, false
	}
}

func (m *Manager) changed() {
	m.cbMu.Lock()
	fn := m.onChange
	m.cbMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) emit(verb string, input activity.WidgetEventInput) {
	if err := m.events.Emit(context.Background(), activity.BuildWidgetEvent(verb, input)); err != nil {
		m.log.Warn("activity hook failed", map[string]any{"verb": verb}, err)
	}
}

// Errors joins the per-widget errors returned by Restore.
func Errors(errs []error) error {
	return errors.Join(errs...)
}
