package response

import (
	"encoding/json/v2"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnvelope_Success(t *testing.T) {
	data, err := json.Marshal(Success(map[string]string{"id": "x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"success":true,"data":{"id":"x"}}`, string(data))
}

func TestEnvelope_Failure(t *testing.T) {
	data, err := json.Marshal(Failure("NOT_FOUND", "book not found", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"success":false,"error":"book not found","code":"NOT_FOUND"}`, string(data))
}

func TestKobo_WritesBareDeterministicJSON(t *testing.T) {
	body := map[string]any{"b": 1, "a": []string{}, "c": map[string]int{"z": 1, "y": 2}}

	first := httptest.NewRecorder()
	Kobo(first, http.StatusOK, body, discard())
	second := httptest.NewRecorder()
	Kobo(second, http.StatusOK, body, discard())

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "application/json; charset=utf-8", first.Header().Get("Content-Type"))
	assert.Equal(t, `{"a":[],"b":1,"c":{"y":2,"z":1}}`, first.Body.String())
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestKoboError_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid token", domainerrors.InvalidToken("bad token"), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"stale cursor", domainerrors.StaleCursorf("behind"), http.StatusUnauthorized, "STALE_CURSOR"},
		{"not found", domainerrors.NotFound("no such book"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", domainerrors.Validation("DeviceId is required"), http.StatusBadRequest, "VALIDATION"},
		{"rate limited", domainerrors.RateLimited("slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			KoboError(w, tt.err, discard())

			assert.Equal(t, tt.wantStatus, w.Code)
			var body KoboErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.ResultCode)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestKoboError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	KoboError(w, errors.New("open /secret/path: permission denied"), discard())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "/secret/path")
	assert.Contains(t, w.Body.String(), `"ResultCode":"INTERNAL"`)

	w = httptest.NewRecorder()
	KoboError(w, domainerrors.Wrap(errors.New("disk detail"), domainerrors.CodeInternal, "scan library"), discard())
	assert.NotContains(t, w.Body.String(), "disk detail")
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequests(w, "Too many requests", discard())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
