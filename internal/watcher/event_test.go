package watcher

import (
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "written", EventWritten.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "renamed", EventRenamed.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want EventType
		ok   bool
	}{
		{fsnotify.Create, EventCreated, true},
		{fsnotify.Write, EventWritten, true},
		{fsnotify.Remove, EventRemoved, true},
		{fsnotify.Rename, EventRenamed, true},
		{fsnotify.Create | fsnotify.Write, EventCreated, true},
		{fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		got, ok := typeOf(tt.op)
		assert.Equal(t, tt.ok, ok, tt.op.String())
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.op.String())
		}
	}
}
