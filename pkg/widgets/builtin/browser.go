package builtin

import (
	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// BrowserState is the persisted browser widget.
type BrowserState struct {
	URL        string `json:"url"`
	DefaultURL string `json:"defaultURL"`
}

var browserDecoder = hydrate.NewDecoder[BrowserState]()

// Browser shows an embedded page, defaulting to the document's info URL.
type Browser struct {
	*base
	state BrowserState
}

func newBrowser(cfg widgets.Config) (widgets.Widget, error) {
	state, err := browserDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	if cfg.ContentData == nil && state.DefaultURL == "" {
		state.DefaultURL = cfg.InfoURL
	}
	return &Browser{base: newBase(cfg), state: state}, nil
}

// Navigate opens url.
func (b *Browser) Navigate(url string) {
	b.mu.Lock()
	b.state.URL = url
	b.mu.Unlock()
	b.changed()
}

// Current returns the open URL, falling back to the default.
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.URL != "" {
		return b.state.URL
	}
	return b.state.DefaultURL
}

func (b *Browser) ContentData() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return encode(b.log, b.state)
}
