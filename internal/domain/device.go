package domain

import "time"

// DeviceState is the server-side view of where a device is in the handshake cycle.
type DeviceState int

// Device states.
const (
	StateUnauthenticated DeviceState = iota
	StateHandshaking
	StateAuthenticated
)

func (s DeviceState) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// DeviceSession is the per-device state held for the lifetime of the process.
type DeviceSession struct {
	DeviceID   string      `json:"device_id"`
	Token      string      `json:"-"`
	UserKey    string      `json:"user_key"`
	Cursor     uint64      `json:"cursor"`
	State      DeviceState `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	LastSeenAt time.Time   `json:"last_seen_at"`
}
