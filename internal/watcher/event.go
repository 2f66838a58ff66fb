package watcher

import (
	"github.com/fsnotify/fsnotify"
)

// EventType is the kind of change seen on a path.
type EventType int

const (
	// EventCreated is a new file or directory.
	EventCreated EventType = iota
	// EventWritten is a change to an existing file's content.
	EventWritten
	// EventRemoved is a deleted path.
	EventRemoved
	// EventRenamed is a path moved away; its new name arrives as EventCreated.
	EventRenamed
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventWritten:
		return "written"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one change inside the library.
type Event struct {
	Type EventType
	// Path is absolute.
	Path string
}

// typeOf maps an fsnotify operation to an EventType. Chmod-only events report
// false; they never change what the catalog sees.
func typeOf(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated, true
	case op.Has(fsnotify.Write):
		return EventWritten, true
	case op.Has(fsnotify.Remove):
		return EventRemoved, true
	case op.Has(fsnotify.Rename):
		return EventRenamed, true
	default:
		return 0, false
	}
}
