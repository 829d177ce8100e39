package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := errors.New("connection reset")
	err := OrderCreationFailedError(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.Equal(t, KindOrderCreationFailed, err.Kind)
	assert.Equal(t, "Failed to create order: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "Coupon not found", NotFoundError("Coupon not found", nil).Error())
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("apply coupon: %w", ForbiddenError("Not your order"))

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
	assert.True(t, IsForbiddenError(wrapped))
	assert.False(t, IsNotFoundError(wrapped))

	assert.Nil(t, GetAppError(errors.New("plain")))
	assert.False(t, IsKind(nil, KindValidation))
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		code int
		kind string
	}{
		{ValidationFailed("bad"), http.StatusBadRequest, KindValidation},
		{UnauthorizedError("who", nil), http.StatusUnauthorized, KindUnauthorized},
		{ForbiddenError("no"), http.StatusForbidden, KindForbidden},
		{NotFoundError("gone", nil), http.StatusNotFound, KindNotFound},
		{DuplicateCodeError("taken", nil), http.StatusBadRequest, KindDuplicateCode},
		{ConflictError("stock", nil), http.StatusConflict, KindConflict},
		{NotificationFailedError(nil), http.StatusInternalServerError, KindNotificationFailed},
		{InternalError("boom", nil), http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))

	cause := NotFoundError("Order not found", nil)
	err := WrapError(cause, "load order")
	assert.EqualError(t, err, "load order: Order not found")
	assert.True(t, IsNotFoundError(err))
}
