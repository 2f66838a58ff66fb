package service

import (
	"cmp"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/id"
	"github.com/kobink/kobink-server/internal/kobo"
	"github.com/kobink/kobink-server/internal/media/covers"
	"github.com/kobink/kobink-server/internal/session"
	"github.com/kobink/kobink-server/internal/validation"
)

// DefaultPageSize is the number of sync events sent per response.
const DefaultPageSize = 100

// KoboConfig holds the protocol settings of the Kobo service.
type KoboConfig struct {
	PageSize  int
	Resources kobo.ResourceOverrides
}

// KoboService implements the device protocol: handshake, device auth, library sync
// and content resolution. Every authenticated call drives the device state machine;
// auth failures send the device back to Unauthenticated.
type KoboService struct {
	sessions  *session.Store
	library   *LibraryService
	covers    *covers.Service
	validator *validation.Validator
	logger    *slog.Logger

	epoch     string
	pageSize  int
	overrides kobo.ResourceOverrides
}

// NewKoboService creates the Kobo protocol service. Each instance mints its own
// epoch, so sync tokens issued by an earlier process are never trusted.
func NewKoboService(
	sessions *session.Store,
	library *LibraryService,
	coverService *covers.Service,
	validator *validation.Validator,
	cfg KoboConfig,
	logger *slog.Logger,
) *KoboService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &KoboService{
		sessions:  sessions,
		library:   library,
		covers:    coverService,
		validator: validator,
		logger:    logger,
		epoch:     id.MustGenerate("ep"),
		pageSize:  pageSize,
		overrides: cfg.Resources,
	}
}

// Epoch identifies this process in sync tokens.
func (s *KoboService) Epoch() string {
	return s.epoch
}

// Credentials identify the caller of a device endpoint. DeviceID comes from the
// X-Kobo-DeviceId header and names the device to reset when Bearer is missing or
// does not verify.
type Credentials struct {
	Bearer   string
	DeviceID string
}

// HandshakeRequest is a call to the initialization endpoint.
type HandshakeRequest struct {
	URLs     kobo.URLs
	Bearer   string
	DeviceID string
}

// Handshake returns the endpoint map the device should use. A bearer that does
// not verify never fails the handshake; it only resets that device.
func (s *KoboService) Handshake(_ context.Context, req HandshakeRequest) map[string]any {
	if req.Bearer != "" {
		deviceID, err := s.sessions.Authenticate(req.Bearer)
		switch {
		case err == nil:
			s.fire(deviceID, session.EventHandshake)
			s.fire(deviceID, session.EventValidToken)
		case deviceID != "":
			s.fire(deviceID, session.EventInvalidToken)
		case req.DeviceID != "":
			s.fire(req.DeviceID, session.EventInvalidToken)
		}
	}
	return kobo.Resources(req.URLs, s.overrides)
}

// AuthResult is the outcome of device authentication.
type AuthResult struct {
	DeviceID  string
	Response  kobo.DeviceAuthResponse
	SyncToken string
}

// AuthenticateDevice registers the device (or finds its existing session) and
// returns its access token.
func (s *KoboService) AuthenticateDevice(_ context.Context, req kobo.DeviceAuthRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.issue(req.DeviceID)
}

// RefreshAuth answers a token refresh for the device bound to the refresh token.
// headerDeviceID is reset when the refresh token is rejected without naming a device.
func (s *KoboService) RefreshAuth(_ context.Context, req kobo.RefreshRequest, headerDeviceID string) (*AuthResult, error) {
	deviceID, err := s.sessions.Authenticate(req.RefreshToken)
	if err != nil {
		s.fail(cmp.Or(deviceID, headerDeviceID), err)
		return nil, err
	}
	return s.issue(deviceID)
}

func (s *KoboService) issue(deviceID string) (*AuthResult, error) {
	token, err := s.sessions.BeginSession(deviceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Fire(deviceID, session.EventHandshake); err != nil {
		return nil, err
	}
	sess, _ := s.sessions.Session(deviceID)

	s.logger.Info("device authenticated", "device_id", deviceID, "state", sess.State.String())
	return &AuthResult{
		DeviceID:  deviceID,
		Response:  kobo.AuthResponse(token, sess.UserKey, uuid.NewString()),
		SyncToken: kobo.NewSyncToken(s.epoch, sess.Cursor).Encode(),
	}, nil
}

// SyncRequest is one library sync call.
type SyncRequest struct {
	URLs      kobo.URLs
	Bearer    string
	DeviceID  string
	SyncToken string
}

// SyncResult is one page of sync events.
type SyncResult struct {
	DeviceID   string
	Events     []kobo.SyncEvent
	SyncToken  string
	More       bool
	Generation uint64
}

// Sync computes the device's pending changes and returns the next page of them.
// The cursor is advanced only once the final page has been produced.
func (s *KoboService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	deviceID, err := s.authorize(Credentials{Bearer: req.Bearer, DeviceID: req.DeviceID})
	if err != nil {
		return nil, err
	}

	ticket, err := s.sessions.BeginSync(deviceID)
	if err != nil {
		s.fail(deviceID, err)
		return nil, err
	}
	defer ticket.End()

	head, err := s.library.Current(ctx)
	if err != nil {
		return nil, err
	}

	base := ticket.Cursor
	target := head
	offset := 0
	if tok, ok := kobo.ParseSyncToken(req.SyncToken); ok && tok.Epoch == s.epoch {
		base = tok.Generation
		if tok.Paging() {
			if snap, ok := s.library.Snapshot(tok.Target); ok {
				target = snap
				offset = tok.Offset
			}
		}
	}

	d := s.library.Delta(base, target)
	events := kobo.SyncEvents(d, req.URLs)
	page, more := kobo.Paginate(events, offset, s.pageSize)

	next := kobo.NewSyncToken(s.epoch, target.Generation)
	if more {
		next = kobo.SyncToken{
			Version:    next.Version,
			Epoch:      s.epoch,
			Generation: base,
			Target:     target.Generation,
			Offset:     offset + len(page),
		}
	} else if err := ticket.Advance(target.Generation); err != nil {
		s.fail(deviceID, err)
		return nil, err
	}

	s.logger.Debug("library sync",
		"device_id", deviceID,
		"from", base,
		"generation", target.Generation,
		"added", len(d.Added),
		"changed", len(d.Changed),
		"removed", len(d.Removed),
		"page", len(page),
		"more", more,
	)

	return &SyncResult{
		DeviceID:   deviceID,
		Events:     page,
		SyncToken:  next.Encode(),
		More:       more,
		Generation: target.Generation,
	}, nil
}

// Resolve finds a book for download. Unknown ids are NotFound whatever the caller's
// auth state; a bearer, when sent, must be valid.
func (s *KoboService) Resolve(_ context.Context, bookID string, creds Credentials) (*domain.BookEntry, error) {
	e, err := s.library.Lookup(bookID)
	if err != nil {
		return nil, err
	}
	if creds.Bearer != "" {
		if _, err := s.authorize(creds); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Metadata returns the metadata record of one book.
func (s *KoboService) Metadata(_ context.Context, bookID string, creds Credentials, urls kobo.URLs) ([]kobo.BookMetadata, error) {
	if _, err := s.authorize(creds); err != nil {
		return nil, err
	}
	e, err := s.library.Lookup(bookID)
	if err != nil {
		return nil, err
	}
	return []kobo.BookMetadata{kobo.Metadata(e, urls)}, nil
}

// ReadingState returns the default (unread) reading state of a book.
func (s *KoboService) ReadingState(_ context.Context, bookID string, creds Credentials) ([]kobo.ReadingState, error) {
	if _, err := s.authorize(creds); err != nil {
		return nil, err
	}
	e, err := s.library.Lookup(bookID)
	if err != nil {
		return nil, err
	}
	return []kobo.ReadingState{kobo.NewReadingState(e)}, nil
}

// UpdateReadingState acknowledges a progress update. Nothing is stored.
func (s *KoboService) UpdateReadingState(_ context.Context, bookID string, creds Credentials) (kobo.StateUpdateResponse, error) {
	deviceID, err := s.authorize(creds)
	if err != nil {
		return kobo.StateUpdateResponse{}, err
	}
	s.logger.Debug("reading state update ignored", "device_id", deviceID, "book_id", bookID)
	return kobo.StateUpdateAck(bookID), nil
}

// Archive acknowledges a device removing a book from its library. The catalog is
// the directory, so nothing changes.
func (s *KoboService) Archive(_ context.Context, bookID string, creds Credentials) error {
	deviceID, err := s.authorize(creds)
	if err != nil {
		return err
	}
	s.logger.Info("device archived book", "device_id", deviceID, "book_id", bookID)
	return nil
}

// Cover renders a book's cover. Covers are fetched without credentials.
func (s *KoboService) Cover(_ context.Context, imageID string, opts covers.Options) ([]byte, error) {
	e, err := s.library.Lookup(imageID)
	if err != nil {
		return nil, err
	}
	return s.covers.Render(e, opts)
}

// Devices lists all known device sessions.
func (s *KoboService) Devices() []domain.DeviceSession {
	return s.sessions.List()
}

// authorize verifies the bearer and moves the device to Authenticated. When the
// bearer is missing or forged the token names no device, so the header's device
// is the one sent back to Unauthenticated.
func (s *KoboService) authorize(creds Credentials) (string, error) {
	deviceID, err := s.sessions.Authenticate(creds.Bearer)
	if err != nil {
		s.fail(cmp.Or(deviceID, creds.DeviceID), err)
		return "", err
	}
	if _, err := s.sessions.Fire(deviceID, session.EventValidToken); err != nil {
		return "", err
	}
	return deviceID, nil
}

// fail applies the state machine effect of an auth error.
func (s *KoboService) fail(deviceID string, err error) {
	if deviceID == "" {
		return
	}
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeInvalidToken:
		s.fire(deviceID, session.EventInvalidToken)
	case domainerrors.CodeStaleCursor:
		s.fire(deviceID, session.EventStaleCursor)
	}
}

func (s *KoboService) fire(deviceID string, ev session.Event) {
	if _, err := s.sessions.Fire(deviceID, ev); err != nil {
		s.logger.Debug("state machine event rejected", "device_id", deviceID, "event", ev.String(), "error", err)
	}
}
