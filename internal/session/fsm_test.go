package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kobink/kobink-server/internal/domain"
)

func TestNext(t *testing.T) {
	const (
		unauth = domain.StateUnauthenticated
		hand   = domain.StateHandshaking
		authed = domain.StateAuthenticated
	)

	tests := []struct {
		from   domain.DeviceState
		event  Event
		want   domain.DeviceState
		wantOK bool
	}{
		{unauth, EventHandshake, hand, true},
		{hand, EventHandshake, hand, true},
		{authed, EventHandshake, authed, true},

		{unauth, EventValidToken, unauth, false},
		{hand, EventValidToken, authed, true},
		{authed, EventValidToken, authed, true},

		{unauth, EventInvalidToken, unauth, true},
		{hand, EventInvalidToken, unauth, true},
		{authed, EventInvalidToken, unauth, true},
		{authed, EventStaleCursor, unauth, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, ok := Next(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
