// Package response writes the two JSON dialects the server speaks: bare Kobo store
// payloads for devices, and the enveloped admin API.
package response

import (
	"encoding/json/v2"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
)

// EnvelopeVersion is the admin envelope format version.
const EnvelopeVersion = 1

// Envelope provides a consistent JSON structure for admin responses.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data any) Envelope {
	return Envelope{Version: EnvelopeVersion, Success: true, Data: data}
}

// Failure builds an error envelope.
func Failure(code, message string, details any) Envelope {
	return Envelope{Version: EnvelopeVersion, Error: message, Code: code, Details: details}
}

// KoboErrorBody is the error document devices understand.
type KoboErrorBody struct {
	ResultCode string `json:"ResultCode"`
	Message    string `json:"Message"`
}

// Kobo writes body as a bare JSON document. Output is deterministic: map keys are
// sorted, so identical inputs always produce identical bytes.
func Kobo(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.MarshalWrite(w, body, json.Deterministic(true)); err != nil {
		if logger != nil {
			logger.Error("Failed to encode Kobo response", "error", err)
		}
	}
}

// KoboOK writes a 200 Kobo response.
func KoboOK(w http.ResponseWriter, body any, logger *slog.Logger) {
	Kobo(w, http.StatusOK, body, logger)
}

// NoContent writes a no content response (204 No Content).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// KoboError writes err in the device error format. Domain errors keep their code
// and message; anything else becomes a 500 whose text is logged but never sent.
func KoboError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == domainerrors.CodeInternal {
		if logger != nil {
			logger.Error("Unhandled error", "error", err)
		}
		Kobo(w, http.StatusInternalServerError, KoboErrorBody{
			ResultCode: string(domainerrors.CodeInternal),
			Message:    "internal server error",
		}, logger)
		return
	}

	Kobo(w, domainErr.HTTPStatus(), KoboErrorBody{
		ResultCode: string(domainErr.Code),
		Message:    domainErr.Message,
	}, logger)
}

// TooManyRequests writes a 429 in the device error format.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	KoboError(w, domainerrors.RateLimited(message), logger)
}
