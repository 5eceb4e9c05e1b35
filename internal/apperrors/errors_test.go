package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindInventoryListingFailed, "failed to list instances", cause)

	assert.Equal(t, "failed to list instances: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "region required", New(KindValidation, "region required").Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantOK   bool
	}{
		{"nil", nil, "", false},
		{"plain error", errors.New("x"), "", false},
		{"direct", New(KindUnknownRegion, "x"), KindUnknownRegion, true},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(KindInvalidDuration, "x")), KindInvalidDuration, true},
		{"context canceled", context.Canceled, KindCancelled, true},
		{"deadline exceeded", fmt.Errorf("call: %w", context.DeadlineExceeded), KindCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, FromContext(ctx))

	cancel()
	err := FromContext(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{New(KindValidation, "x"), ExitInvalidArguments},
		{New(KindInvalidDuration, "x"), ExitInvalidArguments},
		{New(KindUnknownRegion, "x"), ExitUnknownRegion},
		{New(KindInventoryListingFailed, "x"), ExitInventoryFailure},
		{New(KindConfig, "x"), ExitImpactUnavailable},
		{errors.New("unclassified"), ExitFailure},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "ExitCode(%v)", tt.err)
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(KindValidation, "x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(KindUnknownRegion, "x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(KindInvalidDuration, "x")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(New(KindInventoryListingFailed, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}
