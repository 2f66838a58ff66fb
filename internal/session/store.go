// Package session keeps per-device sessions for the lifetime of the process and
// drives each device through the handshake state machine.
package session

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/id"
)

// TokenIssuer mints device tokens and recovers the device a token was minted for.
type TokenIssuer interface {
	Issue(deviceID, userKey string) (string, error)
	DeviceOf(token string) (string, error)
}

type entry struct {
	mu       sync.Mutex
	session  domain.DeviceSession
	inFlight int
}

// Store maps device ids to sessions. The map is shared; each entry carries its own
// lock so unrelated devices never wait on each other. Nothing is persisted.
type Store struct {
	issuer  TokenIssuer
	logger  *slog.Logger
	now     func() time.Time
	devices *SyncMap[string, *entry]
}

// NewStore creates an empty session store.
func NewStore(issuer TokenIssuer, logger *slog.Logger) *Store {
	return &Store{
		issuer:  issuer,
		logger:  logger,
		now:     time.Now,
		devices: NewSyncMap[string, *entry](),
	}
}

func (s *Store) loadOrCreate(deviceID string) *entry {
	if e, ok := s.devices.Load(deviceID); ok {
		return e
	}
	now := s.now()
	e, _ := s.devices.LoadOrStore(deviceID, &entry{session: domain.DeviceSession{
		DeviceID:   deviceID,
		State:      domain.StateUnauthenticated,
		CreatedAt:  now,
		LastSeenAt: now,
	}})
	return e
}

// BeginSession returns the device's token, minting one on first contact. Repeated
// calls return the same token so handshake retries never orphan a sync cursor.
func (s *Store) BeginSession(deviceID string) (string, error) {
	if deviceID == "" {
		return "", domainerrors.Validation("device id is required")
	}

	e := s.loadOrCreate(deviceID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.LastSeenAt = s.now()
	if e.session.Token != "" {
		return e.session.Token, nil
	}

	userKey, err := id.Generate("usr")
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generate user key")
	}
	token, err := s.issuer.Issue(deviceID, userKey)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "issue device token")
	}

	e.session.Token = token
	e.session.UserKey = userKey
	s.logger.Info("device session started", "device_id", deviceID)
	return token, nil
}

// Authenticate resolves a token to its device. On failure the device id is still
// returned when the token names one, so the caller can reset that device.
func (s *Store) Authenticate(token string) (string, error) {
	if token == "" {
		return "", domainerrors.InvalidToken("missing access token")
	}

	deviceID, err := s.issuer.DeviceOf(token)
	if err != nil {
		return "", domainerrors.InvalidToken("access token not recognized")
	}

	e, ok := s.devices.Load(deviceID)
	if !ok {
		return deviceID, domainerrors.InvalidToken("no session for device")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Token != token {
		return deviceID, domainerrors.InvalidToken("access token superseded")
	}
	e.session.LastSeenAt = s.now()
	return deviceID, nil
}

// Fire applies a state machine event to the device and returns its new state.
// A handshake creates the session entry if needed; other events on an unknown
// device leave it unknown.
func (s *Store) Fire(deviceID string, ev Event) (domain.DeviceState, error) {
	var e *entry
	if ev == EventHandshake {
		e = s.loadOrCreate(deviceID)
	} else {
		var ok bool
		if e, ok = s.devices.Load(deviceID); !ok {
			if ev == EventValidToken {
				return domain.StateUnauthenticated, domainerrors.InvalidToken("no session for device")
			}
			return domain.StateUnauthenticated, nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.session.State
	next, ok := Next(from, ev)
	if !ok {
		return from, domainerrors.InvalidToken("handshake required")
	}
	e.session.State = next
	e.session.LastSeenAt = s.now()

	if next != from {
		s.logger.Debug("device state changed",
			"device_id", deviceID,
			"event", ev.String(),
			"from", from.String(),
			"to", next.String(),
		)
	}
	return next, nil
}

// AdvanceCursor records that the device has acknowledged generation. Lower or
// equal generations are ignored, except that a regression while another sync for
// the device is still running reports StaleCursor.
func (s *Store) AdvanceCursor(deviceID string, generation uint64) error {
	e, ok := s.devices.Load(deviceID)
	if !ok {
		return domainerrors.InvalidToken("no session for device")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.advance(e, generation, e.inFlight)
}

func (s *Store) advance(e *entry, generation uint64, concurrent int) error {
	switch {
	case generation > e.session.Cursor:
		e.session.Cursor = generation
		e.session.LastSeenAt = s.now()
	case generation < e.session.Cursor && concurrent > 0:
		return domainerrors.StaleCursorf("generation %d is behind acknowledged %d", generation, e.session.Cursor)
	}
	return nil
}

// SyncTicket marks one in-flight sync for a device.
type SyncTicket struct {
	store *Store
	e     *entry
	once  sync.Once
	// Cursor is the device's acknowledged generation when the sync began.
	Cursor uint64
}

// BeginSync registers an in-flight sync. Callers must call End.
func (s *Store) BeginSync(deviceID string) (*SyncTicket, error) {
	e, ok := s.devices.Load(deviceID)
	if !ok {
		return nil, domainerrors.InvalidToken("no session for device")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight++
	return &SyncTicket{store: s, e: e, Cursor: e.session.Cursor}, nil
}

// Advance is AdvanceCursor counting only syncs other than this one.
func (t *SyncTicket) Advance(generation uint64) error {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()
	return t.store.advance(t.e, generation, t.e.inFlight-1)
}

// End unregisters the sync. It is safe to call more than once.
func (t *SyncTicket) End() {
	t.once.Do(func() {
		t.e.mu.Lock()
		t.e.inFlight--
		t.e.mu.Unlock()
	})
}

// Session returns a copy of the device's session.
func (s *Store) Session(deviceID string) (domain.DeviceSession, bool) {
	e, ok := s.devices.Load(deviceID)
	if !ok {
		return domain.DeviceSession{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// List returns copies of all sessions ordered by device id.
func (s *Store) List() []domain.DeviceSession {
	entries := s.devices.Values()
	out := make([]domain.DeviceSession, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.session)
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b domain.DeviceSession) int {
		return cmp.Compare(a.DeviceID, b.DeviceID)
	})
	return out
}
