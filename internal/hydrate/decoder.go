package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies where a payload came from so errors can name it.
type Context struct {
	Source string
	Path   string
}

func (c Context) label() string {
	if c.Path == "" {
		return c.Source
	}
	return c.Source + ":" + c.Path
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated value after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts loosely typed payloads into T.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
	useNumber    bool
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber keeps numbers as json.Number, both when reading raw bytes and
// when decoding into T.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.useNumber = true
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
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

// DecodeBytes parses raw as a JSON object and decodes it. A body that is not
// an object is rejected.
func (d *Decoder[T]) DecodeBytes(ctx Context, raw []byte) (T, error) {
	var zero T
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, fmt.Errorf("hydrate: empty body for %q", ctx.label())
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.useNumber {
		dec.UseNumber()
	}
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return zero, fmt.Errorf("hydrate: parse %q: %w", ctx.label(), err)
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return zero, fmt.Errorf("hydrate: %q is %T, want object", ctx.label(), payload)
	}
	return d.decode(ctx, obj)
}

// Decode converts payload into T applying configured hooks. payload is not
// mutated.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %q", ctx.label())
	}
	current, err := d.clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for %q: %w", ctx.label(), err)
	}
	return d.decode(ctx, current)
}

func (d *Decoder[T]) decode(ctx Context, current map[string]any) (T, error) {
	var zero T
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		var err error
		result, err = d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.label(), err)
		}
	} else if asMap, ok := any(&result).(*map[string]any); ok {
		*asMap = current
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal payload for %q: %w", ctx.label(), err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			if configure != nil {
				configure(decoder)
			}
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.label(), err)
		}
	}

	return result, nil
}

func (d *Decoder[T]) clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	if d.useNumber {
		dec.UseNumber()
	}
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
