package activity

import "strings"

// Document lifecycle verbs.
const (
	VerbDocumentSaved    = "document.saved"
	VerbDocumentLoaded   = "document.loaded"
	VerbDocumentRestored = "document.restored"
	VerbDocumentImported = "document.imported"
	VerbDocumentCleared  = "document.cleared"
	VerbDocumentMigrated = "document.migrated"

	VerbPageAdded   = "page.added"
	VerbPageRemoved = "page.removed"
	VerbPageMoved   = "page.moved"

	VerbWidgetAdded    = "widget.added"
	VerbWidgetRemoved  = "widget.removed"
	VerbWidgetDisabled = "widget.disabled"
	VerbWidgetEnabled  = "widget.enabled"
)

// Object types.
const (
	ObjectDocument = "document"
	ObjectPage     = "page"
	ObjectWidget   = "widget"
)

// DocumentEventInput carries the common fields of document events.
type DocumentEventInput struct {
	Document    string
	Version     string
	FromVersion string
	Pages       int
	Widgets     int
	Metadata    map[string]any
}

// PageEventInput describes a page change.
type PageEventInput struct {
	PageID   string
	From     int
	To       int
	Total    int
	Metadata map[string]any
}

// WidgetEventInput describes a widget change.
type WidgetEventInput struct {
	WidgetID string
	Kind     string
	Index    int
	Metadata map[string]any
}

// BuildDocumentEvent builds an event for one of the document.* verbs.
func BuildDocumentEvent(verb string, input DocumentEventInput) Event {
	meta := cloneMap(input.Metadata)
	if input.Version != "" {
		meta = ensureMetadata(meta)
		meta["version"] = input.Version
	}
	if input.FromVersion != "" {
		meta = ensureMetadata(meta)
		meta["from_version"] = input.FromVersion
	}
	meta = ensureMetadata(meta)
	meta["pages"] = input.Pages
	meta["widgets"] = input.Widgets

	objectID := strings.TrimSpace(input.Document)
	if objectID == "" {
		objectID = ObjectDocument
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectDocument,
		ObjectID:   objectID,
		Document:   input.Document,
		Metadata:   meta,
	}
}

// BuildPageEvent builds an event for one of the page.* verbs.
func BuildPageEvent(verb string, input PageEventInput) Event {
	meta := ensureMetadata(cloneMap(input.Metadata))
	meta["total"] = input.Total
	if verb == VerbPageMoved {
		meta["from"] = input.From
		meta["to"] = input.To
	} else {
		meta["index"] = input.From
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectPage,
		ObjectID:   strings.TrimSpace(input.PageID),
		Metadata:   meta,
	}
}

// BuildWidgetEvent builds an event for one of the widget.* verbs. Kind-wide
// events (enable, disable) use the kind as object id.
func BuildWidgetEvent(verb string, input WidgetEventInput) Event {
	meta := ensureMetadata(cloneMap(input.Metadata))
	if input.Kind != "" {
		meta["kind"] = input.Kind
	}
	if input.Index >= 0 && input.WidgetID != "" {
		meta["index"] = input.Index
	}
	objectID := strings.TrimSpace(input.WidgetID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Kind)
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectWidget,
		ObjectID:   objectID,
		Metadata:   meta,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
