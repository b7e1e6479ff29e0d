package sheet

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

func loadTemplate(t *testing.T) []byte {
	t.Helper()
	doc, err := os.ReadFile("../../testdata/sheet_template.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return doc
}

func TestScanTemplate(t *testing.T) {
	tpl, err := Scan(loadTemplate(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if tpl.Version != "1.2.0" || tpl.StaticPages != 2 {
		t.Fatalf("unexpected template header %+v", tpl)
	}
	if !reflect.DeepEqual(tpl.RichFields, []string{"notes", "spells"}) {
		t.Fatalf("unexpected rich fields %v", tpl.RichFields)
	}
	want := []Field{
		{Name: "characterName", Type: "text", Default: "Unnamed"},
		{Name: "level", Type: "number", Default: "1"},
		{Name: "inspired", Type: "checkbox", Default: nil},
		{Name: "prepared", Type: "checkbox", Default: "yes"},
		{Name: "alignment", Type: "radio", Default: "neutral"},
		{Name: "class", Type: "select", Default: ""},
		{Name: "backstory", Type: "textarea", Default: "Once upon a time"},
		{Name: "search", Type: "text", Default: "", Transient: true},
	}
	if !reflect.DeepEqual(tpl.Fields, want) {
		t.Fatalf("unexpected fields:\nwant: %+v\n got: %+v", want, tpl.Fields)
	}
}

func TestInjectThenExtract(t *testing.T) {
	payload := []byte(`{"characterName":"Ada <the> \"bold\" & brave","widgets":[]}`)
	out, err := Inject(loadTemplate(t), payload, "9.9.9")
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	contents, err := Extract(out)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !contents.HasData || contents.Data != string(payload) {
		t.Fatalf("parsed extraction mismatch: %q", contents.Data)
	}
	if contents.Version != "1.2.0" {
		t.Fatalf("existing version stamp must be kept, got %q", contents.Version)
	}
	raw, ok := ExtractRaw(out)
	if !ok || raw != string(payload) {
		t.Fatalf("raw extraction mismatch: %q", raw)
	}

	html := string(out)
	if strings.Contains(html, "lh-menu") || strings.Contains(html, `name="search"`) {
		t.Fatalf("lh-no-save elements were written")
	}
	if strings.Contains(html, "<p>rendered</p>") {
		t.Fatalf("rendered rich-text children were written")
	}
	if !strings.Contains(html, `name="notes"`) {
		t.Fatalf("rich-text field container should survive")
	}
}

func TestInjectCreatesContainers(t *testing.T) {
	out, err := Inject([]byte("<html><body><p>hi</p></body></html>"), []byte(`{}`), "2.0.0")
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	contents, _ := Extract(out)
	if contents.Version != "2.0.0" || contents.Data != "{}" {
		t.Fatalf("unexpected contents %+v", contents)
	}

	again, _ := Inject(out, []byte(`{"a":1}`), "3.0.0")
	contents, _ = Extract(again)
	if contents.Version != "2.0.0" || contents.Data != `{"a":1}` {
		t.Fatalf("second save should replace data and keep the stamp: %+v", contents)
	}
	if strings.Count(string(again), `id="sheetData"`) != 1 {
		t.Fatalf("data container duplicated")
	}
}

func TestExtractMissingContainers(t *testing.T) {
	contents, err := Extract([]byte("<p>nothing here"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if contents.HasData || contents.Version != "" {
		t.Fatalf("expected empty contents, got %+v", contents)
	}
	if _, ok := ExtractRaw([]byte("<p>nothing")); ok {
		t.Fatalf("raw extraction should miss")
	}
}

func TestExtractRawSpansLines(t *testing.T) {
	doc := "<div id=\"sheetData\" hidden=\"\">{\"a\":\n&quot;x&quot;}</div>"
	raw, ok := ExtractRaw([]byte(doc))
	if !ok || raw != "{\"a\":\n\"x\"}" {
		t.Fatalf("unexpected raw extraction %q", raw)
	}
}
