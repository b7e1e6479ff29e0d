package builtin

import (
	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// NotepadState is the persisted notepad content.
type NotepadState struct {
	Height    int `json:"height"`
	QuillData any `json:"quillData"`
}

var notepadDecoder = hydrate.NewDecoder[NotepadState]()

// Notepad is a small rich-text editor in the sidebar.
type Notepad struct {
	*base
	editor richtext.Editor
	handle richtext.Handle
	state  NotepadState
}

func (s *settings) newNotepad(cfg widgets.Config) (widgets.Widget, error) {
	state, err := notepadDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Notepad{base: newBase(cfg), editor: s.editor, state: state}, nil
}

// Render mounts the editor, if any, and loads the stored delta.
func (n *Notepad) Render(c widgets.Container) error {
	if err := n.base.Render(c); err != nil {
		return err
	}
	if n.editor == nil {
		return nil
	}
	handle, err := n.editor.Attach(richtext.Container{ID: c.ID, Title: c.Title})
	if err != nil {
		return err
	}
	if err := handle.SetContent(n.state.QuillData); err != nil {
		n.log.Warn("loading notepad content", map[string]any{"id": n.id}, err)
	}
	handle.OnContentChanged(n.changed)

	n.mu.Lock()
	n.handle = handle
	n.mu.Unlock()
	return nil
}

// SetHeight records the resized height of the notepad.
func (n *Notepad) SetHeight(height int) {
	n.mu.Lock()
	n.state.Height = height
	n.mu.Unlock()
	n.changed()
}

// ContentData reads the live editor content.
func (n *Notepad) ContentData() any {
	n.mu.Lock()
	defer n.mu.Unlock()
	state := n.state
	if n.handle != nil {
		state.QuillData = n.handle.Content()
	}
	return encode(n.log, state)
}

// Destroy detaches the editor.
func (n *Notepad) Destroy() {
	n.mu.Lock()
	handle := n.handle
	if handle != nil {
		n.state.QuillData = handle.Content()
	}
	n.handle = nil
	n.mu.Unlock()
	if handle != nil {
		handle.SetEnabled(false)
		handle.Detach()
	}
	n.base.Destroy()
}

// Handle returns the mounted editor handle.
func (n *Notepad) Handle() (richtext.Handle, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handle, n.handle != nil
}
