package snapshot

import (
	"testing"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
)

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	for _, payload := range []string{"", "   ", "{not json", "[1,2]", "null"} {
		_, err := Decode([]byte(payload), "test")
		if !errdefs.IsParse(err) {
			t.Fatalf("payload %q: expected parse error, got %v", payload, err)
		}
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	in := Snapshot{
		"name":          "Ada",
		KeyExtraPages:   []any{"p1"},
		"p1":            map[string]any{"ops": []any{map[string]any{"insert": "hi\n"}}},
		KeyWidgets:      []any{},
		KeyVersion:      "1.0.0",
		"strength":      float64(12),
		"inspiration":   true,
		"transient_key": nil,
	}
	payload, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(payload, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !Equal(in, out) {
		t.Fatalf("round trip mismatch: %#v vs %#v", in, out)
	}
}

func TestCloneIsDeep(t *testing.T) {
	in := Snapshot{
		"list": []any{map[string]any{"a": 1}},
		"tags": []string{"x"},
	}
	out := Clone(in)
	out["list"].([]any)[0].(map[string]any)["a"] = 2
	out["tags"].([]string)[0] = "y"
	if in["list"].([]any)[0].(map[string]any)["a"] != 1 {
		t.Fatalf("nested map shared between clone and source")
	}
	if in["tags"].([]string)[0] != "x" {
		t.Fatalf("string slice shared between clone and source")
	}
	if Clone(nil) != nil {
		t.Fatalf("clone of nil should be nil")
	}
}

func TestEqualIgnoresGoTypes(t *testing.T) {
	a := Snapshot{"n": 3, "list": []string{"a"}}
	b := Snapshot{"n": float64(3), "list": []any{"a"}}
	if !Equal(a, b) {
		t.Fatalf("expected equal after normalization")
	}
	if Equal(a, Snapshot{"n": 4, "list": []string{"a"}}) {
		t.Fatalf("expected different values to compare unequal")
	}
}

func TestStrings(t *testing.T) {
	s := Snapshot{KeyExtraPages: []any{"a", 3, "b"}, "bad": "a"}
	got, ok := s.Strings(KeyExtraPages)
	if !ok || len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected strings %v ok=%v", got, ok)
	}
	if _, ok := s.Strings("bad"); ok {
		t.Fatalf("non-list value should not be ok")
	}
	if _, ok := s.Strings("missing"); ok {
		t.Fatalf("missing key should not be ok")
	}
}

func TestReservedAndVersion(t *testing.T) {
	if !Reserved(KeyWidgets) || Reserved("name") {
		t.Fatalf("unexpected reserved classification")
	}
	if (Snapshot{KeyVersion: "2.1"}).Version() != "2.1" {
		t.Fatalf("unexpected version")
	}
	if (Snapshot{}).Version() != "" {
		t.Fatalf("missing version should be empty")
	}
}
