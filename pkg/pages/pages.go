// Package pages owns the ordered rich-text pages of a document.
//
// Static fields come from the document template and are never added, removed
// or reordered. Extra pages are user-added; every structural change destroys
// their editors and mounts fresh ones in the new order, carrying content over.
package pages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-localhtml/pkg/activity"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/ident"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

// Page describes one page. Index is the position within its own sequence.
type Page struct {
	ID     string
	Index  int
	Static bool
	Title  string
}

type page struct {
	id     string
	static bool
	title  string
	handle richtext.Handle
	// parked holds content for a page whose editor failed to attach.
	parked any
}

// Option configures a Manager.
type Option func(*Manager)

// WithGenerator replaces the default page identifier generator.
func WithGenerator(g ident.Generator) Option {
	return func(m *Manager) {
		if g != nil {
			m.ids = g
		}
	}
}

// WithConfirmer sets the prompt used before removing a page.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(m *Manager) {
		m.confirmer = c
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.log.Logger = logger
	}
}

// WithActivity emits page.* events through emitter.
func WithActivity(emitter *activity.Emitter) Option {
	return func(m *Manager) {
		m.events = emitter
	}
}

// WithOnChange registers the callback signalled after every mutation.
func WithOnChange(fn func()) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithStaticPages sets how many template pages precede the extra pages. It
// only affects page titles.
func WithStaticPages(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.staticPages = n
		}
	}
}

// WithFields declares the template's rich-text fields by name.
func WithFields(ids ...string) Option {
	return func(m *Manager) {
		m.fieldIDs = append(m.fieldIDs, ids...)
	}
}

// Manager owns static fields and extra pages.
//
// Editor content is loaded after mu is released, so editors may notify
// their listeners from SetContent and SetText.
type Manager struct {
	mu          sync.Mutex
	cbMu        sync.Mutex
	loading     atomic.Bool
	editor      richtext.Editor
	ids         ident.Generator
	confirmer   confirm.Confirmer
	log         logging.Component
	events      *activity.Emitter
	onChange    func()
	staticPages int
	fieldIDs    []string

	fields []*page
	extra  []*page
}

// New mounts the static fields in editor and returns a Manager with no
// extra pages.
func New(editor richtext.Editor, opts ...Option) (*Manager, error) {
	if editor == nil {
		return nil, &errdefs.MissingRequiredFieldError{Op: "pages", Field: "editor"}
	}
	m := &Manager{
		editor:    editor,
		ids:       ident.NewPageGenerator(),
		confirmer: confirm.Always,
		log:       logging.Component{Name: "pages"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	seen := map[string]struct{}{}
	var errs []error
	for _, id := range m.fieldIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p := &page{id: id, static: true, title: id}
		if err := m.attach(p); err != nil {
			errs = append(errs, err)
		}
		m.fields = append(m.fields, p)
	}
	ident.Reserve(m.ids, m.fieldIDs...)
	return m, errors.Join(errs...)
}

// SetOnChange replaces the mutation callback.
func (m *Manager) SetOnChange(fn func()) {
	m.cbMu.Lock()
	m.onChange = fn
	m.cbMu.Unlock()
}

// AddPage appends a new empty extra page and returns its identifier.
func (m *Manager) AddPage() (string, error) {
	m.mu.Lock()
	id := m.ids.Next()
	m.extra = append(m.extra, &page{id: id})
	loads, err := m.rebuildLocked(m.captureLocked())
	total := len(m.extra)
	m.mu.Unlock()
	m.load(loads)

	m.emit(activity.VerbPageAdded, activity.PageEventInput{PageID: id, From: total - 1, Total: total})
	m.changed()
	return id, err
}

// RemovePage removes the extra page at index after confirmation. A declined
// confirmation returns false and leaves every page untouched.
func (m *Manager) RemovePage(index int) (bool, error) {
	if err := m.checkIndex(index); err != nil {
		return false, err
	}
	if !confirm.Ask(m.confirmer, confirm.PromptRemovePage) {
		m.log.Debug("page removal declined", map[string]any{"index": index})
		return false, nil
	}

	m.mu.Lock()
	if index < 0 || index >= len(m.extra) {
		m.mu.Unlock()
		return false, indexError(index)
	}
	data := m.captureLocked()
	removed := m.extra[index]
	destroy(removed)
	m.extra = append(m.extra[:index], m.extra[index+1:]...)
	loads, err := m.rebuildLocked(data)
	total := len(m.extra)
	m.mu.Unlock()
	m.load(loads)

	m.emit(activity.VerbPageRemoved, activity.PageEventInput{PageID: removed.id, From: index, Total: total})
	m.changed()
	return true, err
}

// MovePage removes the extra page at from and reinserts it at to. This is a
// shift: moving 0 to 2 in [A B C] yields [B C A].
func (m *Manager) MovePage(from, to int) error {
	if err := m.checkIndex(from); err != nil {
		return err
	}
	if err := m.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	m.mu.Lock()
	data := m.captureLocked()
	moved := m.extra[from]
	rest := append(m.extra[:from:from], m.extra[from+1:]...)
	next := make([]*page, 0, len(m.extra))
	next = append(next, rest[:to]...)
	next = append(next, moved)
	next = append(next, rest[to:]...)
	m.extra = next
	loads, err := m.rebuildLocked(data)
	total := len(m.extra)
	m.mu.Unlock()
	m.load(loads)

	m.emit(activity.VerbPageMoved, activity.PageEventInput{PageID: moved.id, From: from, To: to, Total: total})
	m.changed()
	return err
}

// Serialize returns extraPages plus the content of every page keyed by id.
func (m *Manager) Serialize() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]any, len(m.extra))
	for i, p := range m.extra {
		ids[i] = p.id
	}
	out := m.captureLocked()
	out[snapshot.KeyExtraPages] = ids
	return out
}

// Restore rebuilds the extra pages listed in fragment["extraPages"] and loads
// content for every page whose id appears in fragment. Pages absent from
// fragment, static fields included, are left empty. A missing or malformed
// list yields no extra pages; duplicate ids keep their first position.
func (m *Manager) Restore(fragment map[string]any) error {
	ids, ok := snapshot.Snapshot(fragment).Strings(snapshot.KeyExtraPages)
	if !ok && fragment[snapshot.KeyExtraPages] != nil {
		m.log.Warn("ignoring malformed page list", map[string]any{"value": fmt.Sprintf("%T", fragment[snapshot.KeyExtraPages])}, nil)
	}

	m.mu.Lock()
	seen := map[string]struct{}{}
	for _, f := range m.fields {
		seen[f.id] = struct{}{}
	}
	extra := make([]*page, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		extra = append(extra, &page{id: id})
	}
	ident.Reserve(m.ids, ids...)

	for _, p := range m.extra {
		destroy(p)
	}
	m.extra = extra
	loads, err := m.rebuildLocked(fragment)
	m.mu.Unlock()
	m.load(loads)

	m.changed()
	return err
}

// ClearContent empties every page, static and extra, keeping the page list.
func (m *Manager) ClearContent() {
	m.mu.Lock()
	loads := m.loadLocked(nil)
	m.mu.Unlock()
	m.load(loads)

	m.changed()
}

// Pages lists static fields followed by extra pages.
func (m *Manager) Pages() []Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Page, 0, len(m.fields)+len(m.extra))
	for i, p := range m.fields {
		out = append(out, Page{ID: p.id, Index: i, Static: true, Title: p.title})
	}
	for i, p := range m.extra {
		out = append(out, Page{ID: p.id, Index: i, Title: p.title})
	}
	return out
}

// ExtraPages returns the extra page identifiers in order.
func (m *Manager) ExtraPages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.extra))
	for i, p := range m.extra {
		out[i] = p.id
	}
	return out
}

// Len returns the number of extra pages.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.extra)
}

// Content returns the current content of the page with id.
func (m *Manager) Content(id string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.allLocked() {
		if p.id == id {
			return contentOf(p), true
		}
	}
	return nil, false
}

// Handle returns the editor handle bound to the page with id.
func (m *Manager) Handle(id string) (richtext.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.allLocked() {
		if p.id == id && p.handle != nil {
			return p.handle, true
		}
	}
	return nil, false
}

// Close detaches every editor.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, p := range m.allLocked() {
		destroy(p)
	}
	m.mu.Unlock()
}

func (m *Manager) checkIndex(index int) error {
	m.mu.Lock()
	n := len(m.extra)
	m.mu.Unlock()
	if index < 0 || index >= n {
		return indexError(index)
	}
	return nil
}

func indexError(index int) error {
	return &errdefs.MissingRequiredFieldError{Op: "pages", Field: "page index", Value: index}
}

func (m *Manager) allLocked() []*page {
	out := make([]*page, 0, len(m.fields)+len(m.extra))
	out = append(out, m.fields...)
	return append(out, m.extra...)
}

func (m *Manager) captureLocked() map[string]any {
	out := make(map[string]any, len(m.fields)+len(m.extra)+1)
	for _, p := range m.allLocked() {
		out[p.id] = contentOf(p)
	}
	return out
}

func contentOf(p *page) any {
	switch {
	case p.handle != nil:
		return p.handle.Content()
	case p.parked != nil:
		return snapshot.CloneValue(p.parked)
	default:
		return richtext.EmptyContent()
	}
}

// rebuildLocked remounts extra pages and returns the content to load once
// mu is released.
func (m *Manager) rebuildLocked(data map[string]any) ([]pageLoad, error) {
	var errs []error
	total := len(m.extra) + m.staticPages
	for i, p := range m.extra {
		destroy(p)
		p.title = fmt.Sprintf("Page %d of %d", i+m.staticPages+1, total)
		if err := m.attach(p); err != nil {
			errs = append(errs, err)
		}
	}
	return m.loadLocked(data), errors.Join(errs...)
}

func (m *Manager) attach(p *page) error {
	handle, err := m.editor.Attach(richtext.Container{ID: p.id, Title: p.title})
	if err != nil {
		m.log.Error("attach editor", map[string]any{"page": p.id}, err)
		return fmt.Errorf("pages: attach editor for %s: %w", p.id, err)
	}
	p.handle = handle
	handle.OnContentChanged(m.contentChanged)
	return nil
}

type pageLoad struct {
	id      string
	handle  richtext.Handle
	content any
}

// loadLocked parks content for pages without an editor and returns the loads
// for the rest. Pages missing from data load empty.
func (m *Manager) loadLocked(data map[string]any) []pageLoad {
	loads := make([]pageLoad, 0, len(m.fields)+len(m.extra))
	for _, p := range m.allLocked() {
		content := data[p.id]
		if p.handle == nil {
			p.parked = snapshot.CloneValue(content)
			continue
		}
		p.parked = nil
		loads = append(loads, pageLoad{id: p.id, handle: p.handle, content: content})
	}
	return loads
}

// load pushes content into editors. Content events raised by the editors
// while loading are folded into the caller's own change signal.
func (m *Manager) load(loads []pageLoad) {
	m.loading.Store(true)
	defer m.loading.Store(false)
	for _, l := range loads {
		if text, isText := l.content.(string); isText {
			m.log.Info("migrating plain text page", map[string]any{"page": l.id})
			l.handle.SetText(text)
			continue
		}
		if err := l.handle.SetContent(l.content); err != nil {
			m.log.Warn("loading page content", map[string]any{"page": l.id}, err)
			_ = l.handle.SetContent(nil)
		}
	}
}

func destroy(p *page) {
	if p.handle == nil {
		return
	}
	p.parked = nil
	p.handle.SetEnabled(false)
	p.handle.Detach()
	p.handle = nil
}

func (m *Manager) contentChanged() {
	if m.loading.Load() {
		return
	}
	m.changed()
}

func (m *Manager) changed() {
	m.cbMu.Lock()
	fn := m.onChange
	m.cbMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) emit(verb string, input activity.PageEventInput) {
	if err := m.events.Emit(context.Background(), activity.BuildPageEvent(verb, input)); err != nil {
		m.log.Warn("activity hook failed", map[string]any{"verb": verb}, err)
	}
}
