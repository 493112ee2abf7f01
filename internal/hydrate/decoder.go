// Package hydrate turns raw source documents into element trees and back.
package hydrate

import (
	"fmt"
	"os"

	"github.com/goliatone/go-inventory/element"
)

// Context carries identifiers tied to one source document.
type Context struct {
	Path   string
	Format Format
}

// PreHook lets callers rewrite the raw payload before decoding.
type PreHook func(Context, []byte) ([]byte, error)

// PostHook lets callers adjust or validate the decoded document.
type PostHook func(Context, *element.Element) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts source payloads into element documents.
type Decoder struct {
	preHooks  []PreHook
	postHooks []PostHook
	codecs    map[Format]Codec
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithCodec replaces the codec used for format.
func WithCodec(format Format, codec Codec) DecoderOption {
	return func(d *Decoder) {
		if codec != nil {
			d.codecs[format] = codec
		}
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{codecs: map[Format]Codec{
		FormatXML:  XMLCodec{},
		FormatYAML: YAMLCodec{},
		FormatJSON: JSONCodec{},
		FormatCBOR: CBORCodec{},
	}}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Codec returns the codec registered for format.
func (d *Decoder) Codec(format Format) (Codec, error) {
	codec, ok := d.codecs[format]
	if !ok {
		return nil, fmt.Errorf("hydrate: no codec for format %q", format)
	}
	return codec, nil
}

// Decode converts payload into a document applying configured hooks.
func (d *Decoder) Decode(ctx Context, payload []byte) (*element.Element, error) {
	if ctx.Format == "" {
		ctx.Format = FormatFor(ctx.Path)
	}
	codec, err := d.Codec(ctx.Format)
	if err != nil {
		return nil, err
	}

	current := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Path, err)
		}
		if next != nil {
			current = next
		}
	}

	doc, err := codec.Decode(current)
	if err != nil {
		return nil, fmt.Errorf("hydrate: decode %q: %w", ctx.Path, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, doc); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Path, err)
		}
	}
	return doc, nil
}

// DecodeFile reads path and decodes it with the codec its extension selects.
func (d *Decoder) DecodeFile(path string) (*element.Element, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return d.Decode(Context{Path: path}, raw)
}

// Encode renders doc with the codec for ctx.Format (or ctx.Path's extension).
func (d *Decoder) Encode(ctx Context, doc *element.Element) ([]byte, error) {
	if ctx.Format == "" {
		ctx.Format = FormatFor(ctx.Path)
	}
	codec, err := d.Codec(ctx.Format)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("hydrate: document is nil for %q", ctx.Path)
	}
	out, err := codec.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("hydrate: encode %q: %w", ctx.Path, err)
	}
	return out, nil
}
