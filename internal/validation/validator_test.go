package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/validation"
)

type testRequest struct {
	DeviceID string `json:"DeviceId" validate:"required,deviceid,max=16"`
	Platform string `json:"PlatformId,omitempty" validate:"omitempty,oneof=kobo android"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(testRequest{DeviceID: "abc123"}))
	assert.NoError(t, v.Validate(testRequest{DeviceID: "abc123", Platform: "kobo"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        testRequest
		wantErrMsg string
	}{
		{name: "missing device id", req: testRequest{}, wantErrMsg: "DeviceId is required"},
		{name: "device id with space", req: testRequest{DeviceID: "a b"}, wantErrMsg: "DeviceId must be printable"},
		{name: "device id too long", req: testRequest{DeviceID: strings.Repeat("x", 17)}, wantErrMsg: "DeviceId must not exceed 16"},
		{name: "unknown platform", req: testRequest{DeviceID: "a", Platform: "ios"}, wantErrMsg: "PlatformId must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
				assert.Contains(t, domainErr.Message, tt.wantErrMsg)
			}
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestValidator_DetailsListFields(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Platform: "ios"})
	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))

	fields, ok := domainErr.Details.([]validation.FieldError)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "DeviceId", fields[0].Field)
	assert.Equal(t, "PlatformId", fields[1].Field)
}
