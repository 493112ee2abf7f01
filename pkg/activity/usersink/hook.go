// Package usersink records inventory activity in a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-inventory/pkg/activity"
)

// Hook is an activity.Hook writing one ActivityRecord per event. When Verbs
// is set, other verbs are ignored.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
}

// Notify forwards event to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !h.accepts(event.Verb) {
		return nil
	}
	record, ok := Record(event)
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	verb = strings.TrimSpace(verb)
	for _, v := range h.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}

// Record maps event to an ActivityRecord. Event metadata becomes the record
// data, with the event id under "event_id". Identities that are not UUIDs map
// to uuid.Nil. It reports false for undeliverable events.
func Record(event activity.Event) (usertypes.ActivityRecord, bool) {
	event = activity.NormalizeEvent(event)
	if !event.Deliverable() {
		return usertypes.ActivityRecord{}, false
	}
	data := map[string]any{"event_id": event.ID}
	for key, value := range event.Metadata {
		data[key] = value
	}
	return usertypes.ActivityRecord{
		ActorID:    identity(event.ActorID),
		UserID:     identity(event.UserID),
		TenantID:   identity(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}, true
}

func identity(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
