package pages

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-localhtml/pkg/activity"
	"github.com/goliatone/go-localhtml/pkg/confirm"
	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/ident"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"pgregory.net/rapid"
)

func sequence(ids ...string) ident.Generator {
	i := 0
	return ident.GeneratorFunc(func() string {
		id := ids[i%len(ids)]
		i++
		return id
	})
}

func newManager(t *testing.T, opts ...Option) (*Manager, *richtext.MemoryEditor) {
	t.Helper()
	editor := richtext.NewMemoryEditor()
	m, err := New(editor, opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, editor
}

func typeInto(t *testing.T, editor *richtext.MemoryEditor, id, text string) {
	t.Helper()
	h, ok := editor.Handle(id)
	if !ok {
		t.Fatalf("no editor mounted for %s", id)
	}
	h.Type(text)
}

func TestAddPageGeneratesPrefixedIdentifiers(t *testing.T) {
	m, editor := newManager(t)
	id, err := m.AddPage()
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	if len(id) != len(ident.PagePrefix)+ident.DefaultLength || id[:len(ident.PagePrefix)] != ident.PagePrefix {
		t.Fatalf("unexpected page id %q", id)
	}
	if editor.Live() != 1 {
		t.Fatalf("expected one mounted editor, got %d", editor.Live())
	}
}

func TestMovePageIsAShift(t *testing.T) {
	m, editor := newManager(t, WithGenerator(sequence("A", "B", "C")))
	for i := 0; i < 3; i++ {
		if _, err := m.AddPage(); err != nil {
			t.Fatalf("add page: %v", err)
		}
	}
	typeInto(t, editor, "A", "alpha")

	if err := m.MovePage(0, 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := m.ExtraPages(); !reflect.DeepEqual(got, []string{"B", "C", "A"}) {
		t.Fatalf("expected [B C A], got %v", got)
	}
	content, _ := m.Content("A")
	if richtext.PlainText(content) != "alpha\n" {
		t.Fatalf("content did not follow the page: %v", content)
	}
	pages := m.Pages()
	if pages[2].ID != "A" || pages[2].Title != "Page 3 of 3" {
		t.Fatalf("unexpected title for moved page: %+v", pages[2])
	}

	if err := m.MovePage(2, 0); err != nil {
		t.Fatalf("move back: %v", err)
	}
	if got := m.ExtraPages(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected [A B C], got %v", got)
	}
	if editor.Live() != 3 {
		t.Fatalf("rebuild leaked editors: %d live", editor.Live())
	}
}

func TestMoveThenMoveBackRestoresOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('A' + i))
		}
		editor := richtext.NewMemoryEditor()
		m, _ := New(editor, WithGenerator(sequence(ids...)))
		for i := 0; i < n; i++ {
			_, _ = m.AddPage()
		}
		from := rapid.IntRange(0, n-1).Draw(rt, "from")
		to := rapid.IntRange(0, n-1).Draw(rt, "to")
		if err := m.MovePage(from, to); err != nil {
			rt.Fatalf("move: %v", err)
		}
		if got := m.ExtraPages()[to]; got != ids[from] {
			rt.Fatalf("expected %s at %d, got %s", ids[from], to, got)
		}
		if err := m.MovePage(to, from); err != nil {
			rt.Fatalf("move back: %v", err)
		}
		if got := m.ExtraPages(); !reflect.DeepEqual(got, ids) {
			rt.Fatalf("expected %v, got %v", ids, got)
		}
	})
}

func TestMoveOutOfRange(t *testing.T) {
	m, _ := newManager(t, WithGenerator(sequence("A", "B")))
	_, _ = m.AddPage()
	_, _ = m.AddPage()
	if err := m.MovePage(0, 5); !errdefs.IsMissingRequiredField(err) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestDeclinedRemoveLeavesPagesIdentical(t *testing.T) {
	var prompted string
	m, editor := newManager(t,
		WithGenerator(sequence("A", "B")),
		WithConfirmer(confirm.Func(func(prompt string) bool {
			prompted = prompt
			return false
		})),
	)
	_, _ = m.AddPage()
	_, _ = m.AddPage()
	typeInto(t, editor, "B", "keep me")
	before := m.Serialize()

	removed, err := m.RemovePage(1)
	if err != nil || removed {
		t.Fatalf("expected declined removal, got %v %v", removed, err)
	}
	if prompted != confirm.PromptRemovePage {
		t.Fatalf("unexpected prompt %q", prompted)
	}
	if !reflect.DeepEqual(before, m.Serialize()) {
		t.Fatalf("declined removal changed state")
	}
}

func TestRemovePageDetachesEditor(t *testing.T) {
	m, editor := newManager(t, WithGenerator(sequence("A", "B", "C")))
	for i := 0; i < 3; i++ {
		_, _ = m.AddPage()
	}
	typeInto(t, editor, "C", "third")
	handleB, _ := editor.Handle("B")

	removed, err := m.RemovePage(1)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if !handleB.Detached() || handleB.Enabled() {
		t.Fatalf("removed page editor must be disabled and detached")
	}
	if got := m.ExtraPages(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("unexpected pages %v", got)
	}
	if _, ok := m.Serialize()["B"]; ok {
		t.Fatalf("removed page still serialized")
	}
	content, _ := m.Content("C")
	if richtext.PlainText(content) != "third\n" {
		t.Fatalf("surviving page lost content")
	}
	if _, err := m.RemovePage(7); !errdefs.IsMissingRequiredField(err) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestRestoreRepairsOrphans(t *testing.T) {
	m, _ := newManager(t, WithFields("notes"))
	fragment := map[string]any{
		snapshot.KeyExtraPages: []any{"p1", "p2", "p1"},
		"p1":                   map[string]any{"ops": []any{map[string]any{"insert": "one\n"}}},
		"orphan":               map[string]any{"ops": []any{map[string]any{"insert": "lost\n"}}},
		"notes":                "legacy plain text",
	}
	if err := m.Restore(fragment); err != nil {
		t.Fatalf("restore: %v", err)
	}

	out := m.Serialize()
	if !reflect.DeepEqual(out[snapshot.KeyExtraPages], []any{"p1", "p2"}) {
		t.Fatalf("unexpected page list %v", out[snapshot.KeyExtraPages])
	}
	if !reflect.DeepEqual(out["p2"], richtext.EmptyContent()) {
		t.Fatalf("missing content should restore empty, got %v", out["p2"])
	}
	if _, ok := out["orphan"]; ok {
		t.Fatalf("unlisted content must be ignored")
	}
	if richtext.PlainText(out["notes"]) != "legacy plain text\n" {
		t.Fatalf("plain text content not migrated: %v", out["notes"])
	}
}

func TestRestoreToleratesMalformedList(t *testing.T) {
	m, editor := newManager(t, WithGenerator(sequence("A")))
	_, _ = m.AddPage()
	if err := m.Restore(map[string]any{snapshot.KeyExtraPages: "nope"}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m.Len() != 0 || editor.Live() != 0 {
		t.Fatalf("expected all extra pages destroyed")
	}
	if err := m.Restore(nil); err != nil {
		t.Fatalf("restore nil: %v", err)
	}
}

func TestRestoredIdentifiersAreNeverReissued(t *testing.T) {
	gen := ident.NewRandom("p_", ident.WithLength(1))
	m, _ := newManager(t, WithGenerator(gen))
	var listed []any
	for _, r := range "0123456789abcdefghijklmnopqrstuvwxy" {
		listed = append(listed, "p_"+string(r))
	}
	_ = m.Restore(map[string]any{snapshot.KeyExtraPages: listed})
	id, _ := m.AddPage()
	for _, existing := range listed {
		if existing == id {
			t.Fatalf("restored id %s was reissued", id)
		}
	}
}

func TestStaticPagesAffectTitles(t *testing.T) {
	m, _ := newManager(t, WithStaticPages(2), WithGenerator(sequence("A")))
	_, _ = m.AddPage()
	pages := m.Pages()
	if pages[0].Title != "Page 3 of 3" {
		t.Fatalf("unexpected title %q", pages[0].Title)
	}
}

func TestAttachFailureParksContent(t *testing.T) {
	editor := richtext.NewMemoryEditor()
	m, err := New(editor, WithGenerator(sequence("A", "B")))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	boom := errors.New("boom")
	editor.FailAttach(func(c richtext.Container) error {
		if c.ID == "B" {
			return boom
		}
		return nil
	})
	delta := map[string]any{"ops": []any{map[string]any{"insert": "parked\n"}}}
	err = m.Restore(map[string]any{snapshot.KeyExtraPages: []any{"A", "B"}, "B": delta})
	if !errors.Is(err, boom) {
		t.Fatalf("expected attach error, got %v", err)
	}
	if got := m.Serialize()["B"]; !reflect.DeepEqual(got, delta) {
		t.Fatalf("parked content lost: %v", got)
	}
}

func TestMutationsSignalChangeAndEmitEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	changes := 0
	m, editor := newManager(t,
		WithGenerator(sequence("A", "B")),
		WithOnChange(func() { changes++ }),
		WithActivity(activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})),
	)
	_, _ = m.AddPage()
	_, _ = m.AddPage()
	_ = m.MovePage(0, 1)
	_, _ = m.RemovePage(0)
	typeInto(t, editor, "A", "x")

	if changes != 5 {
		t.Fatalf("expected 5 change signals, got %d", changes)
	}
	want := []string{activity.VerbPageAdded, activity.VerbPageAdded, activity.VerbPageMoved, activity.VerbPageRemoved}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClearContentAndClose(t *testing.T) {
	m, editor := newManager(t, WithFields("notes"), WithGenerator(sequence("A")))
	_, _ = m.AddPage()
	typeInto(t, editor, "notes", "static")
	typeInto(t, editor, "A", "extra")
	m.ClearContent()
	for _, id := range []string{"notes", "A"} {
		content, _ := m.Content(id)
		if !reflect.DeepEqual(content, richtext.EmptyContent()) {
			t.Fatalf("%s not cleared: %v", id, content)
		}
	}
	m.Close()
	if editor.Live() != 0 {
		t.Fatalf("close left %d editors", editor.Live())
	}
}

func TestNewRequiresEditor(t *testing.T) {
	if _, err := New(nil); !errdefs.IsMissingRequiredField(err) {
		t.Fatalf("expected missing editor error, got %v", err)
	}
}

// within fails the test when fn does not return in time.
func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not return", what)
	}
}

func TestEditorEventsDuringLoadDoNotDeadlock(t *testing.T) {
	editor := richtext.NewMemoryEditor()
	editor.FireOnSet(true)
	changes := 0
	var m *Manager
	m, err := New(editor,
		WithFields("notes"),
		WithGenerator(sequence("A", "B")),
		WithOnChange(func() {
			changes++
			m.Serialize()
		}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	within(t, "Restore", func() {
		_ = m.Restore(map[string]any{
			snapshot.KeyExtraPages: []any{"p1"},
			"p1":                   "hello",
			"notes":                "legacy",
		})
	})
	within(t, "AddPage", func() { _, _ = m.AddPage() })
	within(t, "MovePage", func() { _ = m.MovePage(0, 1) })
	within(t, "RemovePage", func() { _, _ = m.RemovePage(0) })
	within(t, "ClearContent", m.ClearContent)

	if changes != 5 {
		t.Fatalf("expected one change signal per operation, got %d", changes)
	}
	typeInto(t, editor, "notes", "typed")
	if changes != 6 {
		t.Fatalf("user edits must still signal, got %d", changes)
	}
}

func TestRestoreEmptiesStaticFieldsMissingFromFragment(t *testing.T) {
	m, editor := newManager(t, WithFields("notes", "bio"))
	typeInto(t, editor, "notes", "secret from previous document")
	typeInto(t, editor, "bio", "old bio")

	bio := map[string]any{"ops": []any{map[string]any{"insert": "new bio\n"}}}
	if err := m.Restore(map[string]any{"bio": bio}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if content, _ := m.Content("notes"); !reflect.DeepEqual(content, richtext.EmptyContent()) {
		t.Fatalf("static field kept content: %v", content)
	}
	if content, _ := m.Content("bio"); richtext.PlainText(content) != "new bio\n" {
		t.Fatalf("listed field not loaded: %v", content)
	}
	if err := m.Restore(map[string]any{}); err != nil {
		t.Fatalf("restore empty: %v", err)
	}
	if content, _ := m.Content("bio"); !reflect.DeepEqual(content, richtext.EmptyContent()) {
		t.Fatalf("empty restore kept content: %v", content)
	}
}
