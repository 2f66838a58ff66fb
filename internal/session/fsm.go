package session

import (
	"github.com/kobink/kobink-server/internal/domain"
)

// Event is something a device request did that may move its state.
type Event int

// Events fed to the state machine.
const (
	// EventHandshake is an initialization or device auth request.
	EventHandshake Event = iota
	// EventValidToken is a request carrying a token the store accepted.
	EventValidToken
	// EventInvalidToken is a request whose token was missing, unknown or forged.
	EventInvalidToken
	// EventStaleCursor is a sync that lost a cursor race to a concurrent sync.
	EventStaleCursor
)

func (e Event) String() string {
	switch e {
	case EventHandshake:
		return "handshake"
	case EventValidToken:
		return "valid_token"
	case EventInvalidToken:
		return "invalid_token"
	case EventStaleCursor:
		return "stale_cursor"
	default:
		return "unknown"
	}
}

// Next returns the state after ev. ok is false when the event is not allowed in
// state s; the only such case is a token presented by a device that has not
// handshaken since it was last reset.
//
//	Unauthenticated --handshake--> Handshaking --valid token--> Authenticated
//	any --invalid token | stale cursor--> Unauthenticated
func Next(s domain.DeviceState, ev Event) (next domain.DeviceState, ok bool) {
	switch ev {
	case EventHandshake:
		if s == domain.StateUnauthenticated {
			return domain.StateHandshaking, true
		}
		return s, true
	case EventValidToken:
		if s == domain.StateUnauthenticated {
			return s, false
		}
		return domain.StateAuthenticated, true
	case EventInvalidToken, EventStaleCursor:
		return domain.StateUnauthenticated, true
	default:
		return s, false
	}
}
