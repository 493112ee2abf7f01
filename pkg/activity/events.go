package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the inventory.
const (
	VerbLoaded     = "inventory.loaded"
	VerbReloaded   = "inventory.reloaded"
	VerbOverridden = "element.overridden"
	VerbMerged     = "element.merged"
	VerbDropped    = "element.dropped"
	VerbPersisted  = "override.persisted"
)

// Object types carried by inventory events.
const (
	ObjectInventory = "inventory"
	ObjectElement   = "inventory.element"
)

// InventoryEventInput describes a whole load pass.
type InventoryEventInput struct {
	ActorID    string
	TenantID   string
	Root       string
	Files      []string
	Elements   int
	Generation uint64
	Metadata   map[string]any
	OccurredAt time.Time
}

// ElementEventInput describes one element affected by loading or persistence.
type ElementEventInput struct {
	ActorID    string
	TenantID   string
	Key        string
	Source     string
	Version    string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildLoadedEvent constructs the event for a first committed load pass.
func BuildLoadedEvent(input InventoryEventInput) Event {
	return buildInventoryEvent(VerbLoaded, input)
}

// BuildReloadedEvent constructs the event for a committed reload.
func BuildReloadedEvent(input InventoryEventInput) Event {
	return buildInventoryEvent(VerbReloaded, input)
}

// BuildOverriddenEvent constructs the event for an override applied to Main.
func BuildOverriddenEvent(input ElementEventInput) Event {
	return buildElementEvent(VerbOverridden, input)
}

// BuildMergedEvent constructs the event for an out-of-version element merged
// into the current defaults.
func BuildMergedEvent(input ElementEventInput) Event {
	return buildElementEvent(VerbMerged, input)
}

// BuildDroppedEvent constructs the event for an out-of-version element that
// had nothing to merge into.
func BuildDroppedEvent(input ElementEventInput) Event {
	return buildElementEvent(VerbDropped, input)
}

// BuildPersistedEvent constructs the event for an override written to the
// user layer.
func BuildPersistedEvent(input ElementEventInput) Event {
	return buildElementEvent(VerbPersisted, input)
}

func buildInventoryEvent(verb string, input InventoryEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["elements"] = input.Elements
	metadata["generation"] = input.Generation
	if len(input.Files) > 0 {
		metadata["files"] = append([]string{}, input.Files...)
	}

	objectID := strings.TrimSpace(input.Root)
	if objectID == "" {
		objectID = ObjectInventory
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectInventory,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildElementEvent(verb string, input ElementEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Source != "" {
		metadata = ensureMetadata(metadata)
		metadata["source"] = input.Source
	}
	if input.Version != "" {
		metadata = ensureMetadata(metadata)
		metadata["version"] = input.Version
	}
	if input.Reason != "" {
		metadata = ensureMetadata(metadata)
		metadata["reason"] = input.Reason
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Source)
	}
	if objectID == "" {
		objectID = ObjectElement
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectElement,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
