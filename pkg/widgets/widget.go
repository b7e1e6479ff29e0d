// Package widgets owns the ordered collection of sidebar widgets and the
// registry mapping widget kinds to constructors.
package widgets

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-localhtml/pkg/logging"
)

// Container is the sidebar slot a widget renders into.
type Container struct {
	ID    string
	Title string
}

// Widget is one live sidebar tool.
//
// ContentData must return the full reconstructable state at any time.
// Destroy must release timers and listeners, be safe to call more than once
// and be safe on a widget whose Render never ran or failed.
type Widget interface {
	ID() string
	Kind() string
	DisplayName() string
	Render(Container) error
	ContentData() any
	Destroy()
}

// Config is handed to a Constructor.
type Config struct {
	ID          string
	Kind        string
	DisplayName string
	// ContentData is nil when the widget should start from its defaults.
	ContentData any
	// InfoURL is the document's default browser URL.
	InfoURL  string
	OnChange func()
	Logger   logging.Logger
}

// Changed signals a content change, if anyone listens.
func (c Config) Changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

// Constructor builds a widget from its config.
type Constructor func(Config) (Widget, error)

// Descriptor is the serialized form of a widget.
type Descriptor struct {
	ID          string `json:"id"`
	Kind        string `json:"type"`
	DisplayName string `json:"displayName,omitempty"`
	ContentData any    `json:"contentData,omitempty"`
}

// DescriptorFrom reads a descriptor out of a decoded JSON value.
func DescriptorFrom(raw any) (Descriptor, error) {
	switch typed := raw.(type) {
	case Descriptor:
		return typed, nil
	case *Descriptor:
		if typed == nil {
			return Descriptor{}, fmt.Errorf("widgets: nil descriptor")
		}
		return *typed, nil
	case map[string]any:
		d := Descriptor{ContentData: typed["contentData"]}
		var ok bool
		if v, present := typed["id"]; present && v != nil {
			if d.ID, ok = v.(string); !ok {
				return Descriptor{}, fmt.Errorf("widgets: descriptor id must be a string, got %T", v)
			}
		}
		if v, present := typed["type"]; present && v != nil {
			if d.Kind, ok = v.(string); !ok {
				return Descriptor{}, fmt.Errorf("widgets: descriptor type must be a string, got %T", v)
			}
		}
		d.DisplayName, _ = typed["displayName"].(string)
		return d, nil
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(typed, &m); err != nil {
			return Descriptor{}, fmt.Errorf("widgets: decode descriptor: %w", err)
		}
		return DescriptorFrom(m)
	default:
		return Descriptor{}, fmt.Errorf("widgets: descriptor must be an object, got %T", raw)
	}
}
