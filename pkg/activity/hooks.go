// Package activity reports inventory load and persistence events to
// pluggable hooks.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultChannel is the channel stamped on events emitted without one.
const DefaultChannel = "inventory"

// Event is one inventory occurrence. ObjectID is an element key for element
// events and the root path for inventory events. Identity fields are plain
// strings; sinks parse them as they need.
type Event struct {
	ID         string
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Deliverable reports whether event names a verb and an object.
func (e Event) Deliverable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// Hook receives events from an Emitter.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks is an ordered set of hooks.
type Hooks []Hook

// DeliveryError reports a hook that rejected an event.
type DeliveryError struct {
	Verb     string
	ObjectID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("activity: deliver %s %s: %v", e.Verb, e.ObjectID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NormalizeEvent trims the identifiers of event, copies its metadata and
// assigns an id and timestamp when missing.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{
		&event.ID, &event.Verb, &event.ActorID, &event.UserID, &event.TenantID,
		&event.ObjectType, &event.ObjectID, &event.Channel,
	} {
		*field = strings.TrimSpace(*field)
	}
	event.Metadata = cloneMap(event.Metadata)
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

// Emitter delivers events to hooks in registration order. Undeliverable
// events are dropped.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter constructs an emitter. Nil hooks are ignored and an empty
// channel means DefaultChannel.
func NewEmitter(hooks Hooks, channel string) *Emitter {
	e := &Emitter{channel: strings.TrimSpace(channel)}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	for _, hook := range hooks {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
	return e
}

// Enabled reports whether any hook is registered.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit delivers one event to every hook. Failures are returned as joined
// DeliveryErrors; later hooks still run.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event = NormalizeEvent(event)
	if !event.Deliverable() {
		return nil
	}
	if event.Channel == "" {
		event.Channel = e.channel
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, hook := range e.hooks {
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, &DeliveryError{Verb: event.Verb, ObjectID: event.ObjectID, Err: err})
		}
	}
	return errors.Join(errs...)
}

// EmitAll delivers events in order.
func (e *Emitter) EmitAll(ctx context.Context, events []Event) error {
	var errs []error
	for _, event := range events {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CaptureHook records events. Tests and examples use it to observe an
// inventory.
type CaptureHook struct {
	Err error

	mu     sync.Mutex
	events []Event
}

// Notify records event and returns h.Err.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.Err
}

// Events returns the recorded events.
func (h *CaptureHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Verbs returns the recorded verbs in order.
func (h *CaptureHook) Verbs() []string {
	events := h.Events()
	out := make([]string, len(events))
	for i, event := range events {
		out[i] = event.Verb
	}
	return out
}

// ByVerb returns the recorded events carrying verb.
func (h *CaptureHook) ByVerb(verb string) []Event {
	var out []Event
	for _, event := range h.Events() {
		if event.Verb == verb {
			out = append(out, event)
		}
	}
	return out
}

// Reset forgets the recorded events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
