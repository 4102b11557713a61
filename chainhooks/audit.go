// audit.go grounds chainhooks' event persistence on
// invalidation/audit.go's append-only log: every posted webhook event is
// written once under its own key and never mutated afterward, with an
// index of event IDs kept alongside it so the full set can be listed
// without a KV prefix scan.
package chainhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/setindex"
)

// Event is a single webhook delivery, stored verbatim under
// "event_<id>" the way the webhook event persister collaborator
// (out of scope per §1) is described to behave: a thin write-through.
type Event struct {
	ID         string         `json:"id"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// EventLog is the append-only store backing /post-event, /events, and
// /events/{id}.
type EventLog struct {
	kv    kvstore.Store
	index *setindex.Index[string]
}

const eventIndexKey = "chainhooks_event_ids"

func NewEventLog(kv kvstore.Store) *EventLog {
	return &EventLog{
		kv:    kv,
		index: setindex.New[string](kv, eventIndexKey, func(s string) string { return s }),
	}
}

// Append stores payload under a freshly generated event ID and records
// that ID in the index, returning the ID.
func (l *EventLog) Append(ctx context.Context, payload map[string]any) (string, error) {
	id := uuid.NewString()
	event := Event{ID: id, Payload: payload, ReceivedAt: time.Now().UTC()}
	raw, err := json.Marshal(event)
	if err != nil {
		return "", apierr.Wrap(apierr.CodeInternal, err, "encode event %q", id)
	}
	if err := l.kv.Put(ctx, "event_"+id, raw, 0); err != nil {
		return "", apierr.Wrap(apierr.CodeCache, err, "store event %q", id)
	}
	if err := l.index.Insert(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the event stored under id, or ok=false if none exists.
func (l *EventLog) Get(ctx context.Context, id string) (Event, bool, error) {
	var event Event
	raw, ok, err := l.kv.Get(ctx, "event_"+id)
	if err != nil {
		return event, false, apierr.Wrap(apierr.CodeCache, err, "read event %q", id)
	}
	if !ok {
		return event, false, nil
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return event, false, apierr.Wrap(apierr.CodeInternal, err, "decode event %q", id)
	}
	return event, true, nil
}

// List returns every event currently in the index, newest first.
func (l *EventLog) List(ctx context.Context) ([]Event, error) {
	ids, err := l.index.List(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(ids))
	for _, id := range ids {
		event, ok, err := l.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, event)
		}
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
