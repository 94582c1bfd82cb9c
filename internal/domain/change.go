package domain

import "time"

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// Change is a row-level notification delivered on a realtime channel.
// New is set for INSERT and UPDATE, Old for DELETE.
type Change struct {
	Type            EventType `json:"type"`
	Table           string    `json:"table"`
	New             *Bookmark `json:"new,omitempty"`
	Old             *Bookmark `json:"old,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}

// ChannelFilter selects which changes a subscription receives.
// An empty Events list behaves like EventAll.
type ChannelFilter struct {
	Table  string
	Owner  string
	Events []EventType
}

// Match reports whether c passes the table and event-type filter.
// Owner scoping happens at the channel level, not here.
func (f ChannelFilter) Match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if len(f.Events) == 0 {
		return true
	}
	for _, e := range f.Events {
		if e == EventAll || e == c.Type {
			return true
		}
	}
	return false
}

// Subscription is a cancellable push subscription. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}
