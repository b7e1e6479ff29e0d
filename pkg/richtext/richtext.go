// Package richtext defines the contract between the page manager and the
// rich-text editor that owns each page's content, plus a headless
// implementation that stores content in the Quill delta shape:
//
//	{"ops": [{"insert": "Hello\n"}]}
package richtext

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

// Container is the host element an editor is mounted into.
type Container struct {
	ID    string
	Title string
}

// Editor mounts editor instances.
type Editor interface {
	Attach(Container) (Handle, error)
}

// Handle is one mounted editor instance. The handle owns the page content.
type Handle interface {
	Content() any
	SetContent(content any) error
	SetText(text string)
	SetEnabled(enabled bool)
	Enabled() bool
	OnContentChanged(fn func())
	Detach()
}

// EmptyContent returns the delta of an empty document.
func EmptyContent() map[string]any {
	return map[string]any{"ops": []any{map[string]any{"insert": "\n"}}}
}

// PlainText flattens a delta into its text inserts. Embeds are skipped.
func PlainText(content any) string {
	ops, ok := deltaOps(content)
	if !ok {
		if s, isString := content.(string); isString {
			return s
		}
		return ""
	}
	var b strings.Builder
	for _, op := range ops {
		m, _ := op.(map[string]any)
		if s, ok := m["insert"].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String()
}

func deltaOps(content any) ([]any, bool) {
	var m map[string]any
	switch typed := content.(type) {
	case map[string]any:
		m = typed
	case snapshot.Snapshot:
		m = typed
	default:
		return nil, false
	}
	ops, ok := m["ops"].([]any)
	return ops, ok
}

// MemoryEditor is a headless Editor. It keeps track of live handles so
// callers can assert editors are detached when pages go away.
type MemoryEditor struct {
	mu        sync.Mutex
	handles   map[*MemoryHandle]struct{}
	fail      func(Container) error
	fireOnSet bool
}

// NewMemoryEditor returns an empty MemoryEditor.
func NewMemoryEditor() *MemoryEditor {
	return &MemoryEditor{handles: map[*MemoryHandle]struct{}{}}
}

// FailAttach makes Attach return the error produced by fn, for tests that
// exercise partially-initialized pages.
func (e *MemoryEditor) FailAttach(fn func(Container) error) {
	e.mu.Lock()
	e.fail = fn
	e.mu.Unlock()
}

// FireOnSet makes handles attached afterwards notify their listeners when
// content is loaded through SetContent or SetText, as Quill does for
// setContents.
func (e *MemoryEditor) FireOnSet(fire bool) {
	e.mu.Lock()
	e.fireOnSet = fire
	e.mu.Unlock()
}

// Attach implements Editor.
func (e *MemoryEditor) Attach(c Container) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		if err := e.fail(c); err != nil {
			return nil, err
		}
	}
	h := &MemoryHandle{
		editor:    e,
		container: c,
		ops:       EmptyContent()["ops"].([]any),
		enabled:   true,
		fireOnSet: e.fireOnSet,
	}
	e.handles[h] = struct{}{}
	return h, nil
}

// Live reports the number of attached handles.
func (e *MemoryEditor) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

// Handle returns the live handle mounted in the container with id, if any.
func (e *MemoryEditor) Handle(id string) (*MemoryHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for h := range e.handles {
		if h.container.ID == id {
			return h, true
		}
	}
	return nil, false
}

func (e *MemoryEditor) release(h *MemoryHandle) {
	e.mu.Lock()
	delete(e.handles, h)
	e.mu.Unlock()
}

// MemoryHandle is the Handle produced by MemoryEditor.
type MemoryHandle struct {
	editor    *MemoryEditor
	mu        sync.Mutex
	container Container
	ops       []any
	enabled   bool
	detached  bool
	fireOnSet bool
	listeners []func()
}

// Container returns the container the handle is mounted in.
func (h *MemoryHandle) Container() Container {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.container
}

// Content implements Handle.
func (h *MemoryHandle) Content() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return map[string]any{"ops": snapshot.CloneValue(h.ops)}
}

// SetContent implements Handle. nil loads an empty document.
func (h *MemoryHandle) SetContent(content any) error {
	ops := EmptyContent()["ops"].([]any)
	if content != nil {
		normalized, err := snapshot.Normalize(content)
		if err != nil {
			return fmt.Errorf("richtext: set content: %w", err)
		}
		var ok bool
		if ops, ok = deltaOps(normalized); !ok {
			return fmt.Errorf("richtext: set content: expected delta with ops, got %T", content)
		}
	}
	h.load(ops)
	return nil
}

// SetText implements Handle. The text always ends in a newline.
func (h *MemoryHandle) SetText(text string) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	h.load([]any{map[string]any{"insert": text}})
}

func (h *MemoryHandle) load(ops []any) {
	h.mu.Lock()
	h.ops = ops
	var listeners []func()
	if h.fireOnSet && !h.detached {
		listeners = append(listeners, h.listeners...)
	}
	h.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// SetEnabled implements Handle.
func (h *MemoryHandle) SetEnabled(enabled bool) {
	h.mu.Lock()
	h.enabled = enabled
	h.mu.Unlock()
}

// Enabled implements Handle.
func (h *MemoryHandle) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// OnContentChanged implements Handle.
func (h *MemoryHandle) OnContentChanged(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Type appends text as a user edit and notifies listeners. Disabled or
// detached handles ignore input.
func (h *MemoryHandle) Type(text string) {
	h.mu.Lock()
	if !h.enabled || h.detached {
		h.mu.Unlock()
		return
	}
	// Insert before the trailing newline Quill keeps at the end.
	body := strings.TrimSuffix(PlainText(map[string]any{"ops": h.ops}), "\n")
	h.ops = []any{map[string]any{"insert": body + text + "\n"}}
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Detached reports whether Detach was called.
func (h *MemoryHandle) Detached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detached
}

// Detach implements Handle. It is idempotent.
func (h *MemoryHandle) Detach() {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return
	}
	h.detached = true
	h.listeners = nil
	h.mu.Unlock()
	if h.editor != nil {
		h.editor.release(h)
	}
}
