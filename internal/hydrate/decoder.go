// Package hydrate turns loosely typed widget content (whatever JSON a saved
// document carried) into a widget's typed state.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the widget whose content is being decoded.
type Context struct {
	Kind string
	ID   string
}

func (c Context) String() string {
	if c.ID == "" {
		return c.Kind
	}
	return c.Kind + "/" + c.ID
}

// PreHook normalizes the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder decodes content into T on top of T's defaults, so fields missing
// from the payload keep their default value.
type Decoder[T any] struct {
	defaults     func() T
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithDefaults sets the value decoding starts from.
func WithDefaults[T any](fn func() T) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.defaults = fn
	}
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects payload keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Default returns the value a widget starts with when it has no content.
func (d *Decoder[T]) Default() T {
	var out T
	if d.defaults != nil {
		out = d.defaults()
	}
	return out
}

// Decode converts payload into T. A nil payload yields the defaults; any
// other non-object payload is an error.
func (d *Decoder[T]) Decode(ctx Context, payload any) (T, error) {
	var zero T
	result := d.Default()

	if payload != nil {
		current, err := toObject(payload)
		if err != nil {
			return zero, fmt.Errorf("hydrate: %s: %w", ctx, err)
		}
		for _, hook := range d.preHooks {
			if hook == nil {
				continue
			}
			next, err := hook(ctx, current)
			if err != nil {
				return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx, err)
			}
			if next != nil {
				current = next
			}
		}

		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal %s: %w", ctx, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			configure(decoder)
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx, err)
		}
	}
	return result, nil
}

// Encode converts v into a JSON object value.
func Encode(v any) (map[string]any, error) {
	buffer, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hydrate: encode: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("hydrate: encode: %w", err)
	}
	return out, nil
}

func toObject(payload any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("clone payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("content must be an object: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("content must be an object, got null")
	}
	return out, nil
}
