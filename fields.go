package localhtml

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/sheet"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

// Field declares one form control of the document.
type Field struct {
	Name string
	// Default is the value the control holds before any data is loaded.
	Default any
	// Transient fields are editable but never saved.
	Transient bool
}

// FieldsFromTemplate converts the form controls found by sheet.Scan.
func FieldsFromTemplate(t sheet.Template) []Field {
	out := make([]Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, Field{Name: f.Name, Default: f.Default, Transient: f.Transient})
	}
	return out
}

// FieldSet holds the current values of the document's form controls.
type FieldSet struct {
	mu       sync.Mutex
	fields   []Field
	index    map[string]int
	values   map[string]any
	onChange func()
}

// NewFieldSet declares fields in order. Later duplicates and reserved
// snapshot keys are ignored.
func NewFieldSet(fields ...Field) *FieldSet {
	fs := &FieldSet{index: map[string]int{}, values: map[string]any{}}
	for _, f := range fields {
		if f.Name == "" || snapshot.Reserved(f.Name) {
			continue
		}
		if _, dup := fs.index[f.Name]; dup {
			continue
		}
		f.Default = normalizeValue(f.Default)
		fs.index[f.Name] = len(fs.fields)
		fs.fields = append(fs.fields, f)
		fs.values[f.Name] = snapshot.CloneValue(f.Default)
	}
	return fs
}

func (fs *FieldSet) setOnChange(fn func()) {
	fs.mu.Lock()
	fs.onChange = fn
	fs.mu.Unlock()
}

// Names lists the declared fields in declaration order.
func (fs *FieldSet) Names() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, len(fs.fields))
	for i, f := range fs.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns the current value of name.
func (fs *FieldSet) Get(name string) (any, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.index[name]; !ok {
		return nil, false
	}
	return snapshot.CloneValue(fs.values[name]), true
}

// Set changes the value of a declared field, as a user edit would.
func (fs *FieldSet) Set(name string, value any) error {
	normalized, err := snapshot.Normalize(value)
	if err != nil {
		return fmt.Errorf("localhtml: field %q: %w", name, err)
	}
	fs.mu.Lock()
	if _, ok := fs.index[name]; !ok {
		fs.mu.Unlock()
		return fmt.Errorf("localhtml: field %q: %w", name, errdefs.ErrNotFound)
	}
	fs.values[name] = normalized
	onChange := fs.onChange
	fs.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return nil
}

// Values returns the persistent field values. Transient fields are omitted.
func (fs *FieldSet) Values() map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make(map[string]any, len(fs.fields))
	for _, f := range fs.fields {
		if f.Transient {
			continue
		}
		out[f.Name] = snapshot.CloneValue(fs.values[f.Name])
	}
	return out
}

// Reset returns every field to its default.
func (fs *FieldSet) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.resetLocked()
}

// restore resets every field and then loads the persistent ones present in s.
func (fs *FieldSet) restore(s snapshot.Snapshot) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.resetLocked()
	for _, f := range fs.fields {
		if f.Transient {
			continue
		}
		if value, ok := s[f.Name]; ok {
			fs.values[f.Name] = normalizeValue(value)
		}
	}
}

func (fs *FieldSet) resetLocked() {
	for _, f := range fs.fields {
		fs.values[f.Name] = snapshot.CloneValue(f.Default)
	}
}

func normalizeValue(value any) any {
	normalized, err := snapshot.Normalize(value)
	if err != nil {
		return nil
	}
	return normalized
}
