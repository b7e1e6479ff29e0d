package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseErrorUnwraps(t *testing.T) {
	base := errors.New("unexpected end of JSON input")
	err := fmt.Errorf("import: %w", &ParseError{Source: "import", Err: base})

	if !IsParse(err) {
		t.Fatalf("expected IsParse to match")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to unwrap")
	}
	if !strings.Contains(err.Error(), "from import") {
		t.Fatalf("expected source in message, got %q", err.Error())
	}
}

func TestMigrationErrorDescribesVersions(t *testing.T) {
	err := &MigrationError{To: "1.2.0", Err: errors.New("boom")}
	if !strings.Contains(err.Error(), "from=<unset> to=1.2.0") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsMigration(err) || IsParse(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
}

func TestMissingRequiredFieldMessages(t *testing.T) {
	missing := &MissingRequiredFieldError{Op: "widgets: add", Field: "kind"}
	if missing.Error() != "widgets: add: kind is required" {
		t.Fatalf("unexpected message %q", missing.Error())
	}
	outOfRange := &MissingRequiredFieldError{Op: "pages: remove", Field: "index", Value: 7}
	if outOfRange.Error() != "pages: remove: invalid index 7" {
		t.Fatalf("unexpected message %q", outOfRange.Error())
	}
	if !IsMissingRequiredField(fmt.Errorf("wrap: %w", outOfRange)) {
		t.Fatalf("expected wrapped match")
	}
}

func TestUnknownWidgetKindMessage(t *testing.T) {
	err := &UnknownWidgetKindError{Kind: "nonexistent", ID: "widget_1"}
	if !IsUnknownWidgetKind(err) {
		t.Fatalf("expected match")
	}
	if !strings.Contains(err.Error(), `"nonexistent"`) || !strings.Contains(err.Error(), "widget_1") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNilReceivers(t *testing.T) {
	var p *ParseError
	var m *MigrationError
	if p.Error() != "<nil>" || m.Error() != "<nil>" || p.Unwrap() != nil || m.Unwrap() != nil {
		t.Fatalf("nil receivers should be safe")
	}
}
