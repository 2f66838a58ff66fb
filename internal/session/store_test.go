package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobink/kobink-server/internal/auth"
	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	key, err := auth.GenerateKey()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key)
	require.NoError(t, err)
	return NewStore(tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBeginSession_Idempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.BeginSession("kobo-1")
	require.NoError(t, err)
	second, err := s.BeginSession("kobo-1")
	require.NoError(t, err)
	other, err := s.BeginSession("kobo-2")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)

	sess, ok := s.Session("kobo-1")
	require.True(t, ok)
	assert.NotEmpty(t, sess.UserKey)
	assert.Equal(t, uint64(0), sess.Cursor)
}

func TestBeginSession_RequiresDeviceID(t *testing.T) {
	_, err := newTestStore(t).BeginSession("")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	token, err := s.BeginSession("kobo-1")
	require.NoError(t, err)

	deviceID, err := s.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "kobo-1", deviceID)

	_, err = s.Authenticate("")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	_, err = s.Authenticate("v4.local.forged")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthenticate_TokenFromAnotherProcess(t *testing.T) {
	previous := newTestStore(t)
	token, err := previous.BeginSession("kobo-1")
	require.NoError(t, err)

	_, err = newTestStore(t).Authenticate(token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAdvanceCursor_Monotonic(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BeginSession("kobo-1")
	require.NoError(t, err)

	require.NoError(t, s.AdvanceCursor("kobo-1", 3))
	require.NoError(t, s.AdvanceCursor("kobo-1", 1), "stale poll is a no-op")
	require.NoError(t, s.AdvanceCursor("kobo-1", 3))

	sess, _ := s.Session("kobo-1")
	assert.Equal(t, uint64(3), sess.Cursor)
}

func TestAdvanceCursor_UnknownDevice(t *testing.T) {
	err := newTestStore(t).AdvanceCursor("ghost", 1)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAdvanceCursor_StaleWhileAnotherSyncRuns(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BeginSession("kobo-1")
	require.NoError(t, err)

	slow, err := s.BeginSync("kobo-1")
	require.NoError(t, err)
	fast, err := s.BeginSync("kobo-1")
	require.NoError(t, err)

	require.NoError(t, fast.Advance(3))
	err = slow.Advance(2)
	assert.ErrorIs(t, err, domainerrors.ErrStaleCursor)

	fast.End()
	// With no other sync in flight the same regression is simply ignored.
	require.NoError(t, slow.Advance(2))
	slow.End()
	slow.End()

	sess, _ := s.Session("kobo-1")
	assert.Equal(t, uint64(3), sess.Cursor)
}

func TestSyncTicket_ConcurrentSameGeneration(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BeginSession("kobo-1")
	require.NoError(t, err)
	require.NoError(t, s.AdvanceCursor("kobo-1", 1))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := s.BeginSync("kobo-1")
			if err != nil {
				errs <- err
				return
			}
			defer ticket.End()
			errs <- ticket.Advance(2)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	sess, _ := s.Session("kobo-1")
	assert.Equal(t, uint64(2), sess.Cursor)
}

func TestFire_HandshakeCycle(t *testing.T) {
	s := newTestStore(t)

	state, err := s.Fire("kobo-1", EventValidToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	assert.Equal(t, domain.StateUnauthenticated, state)

	state, err = s.Fire("kobo-1", EventHandshake)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHandshaking, state)

	state, err = s.Fire("kobo-1", EventValidToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticated, state)

	state, err = s.Fire("kobo-1", EventInvalidToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnauthenticated, state)

	_, err = s.Fire("kobo-1", EventValidToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken, "reset device must handshake again")
}

func TestFire_UnknownDeviceReset(t *testing.T) {
	state, err := newTestStore(t).Fire("ghost", EventInvalidToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnauthenticated, state)
}

func TestList_Sorted(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"c", "a", "b"} {
		_, err := s.BeginSession(id)
		require.NoError(t, err)
	}

	var ids []string
	for _, sess := range s.List() {
		ids = append(ids, sess.DeviceID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
