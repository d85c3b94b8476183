package ixerr_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/torsten-rupp/barindex/internal/ixerr"
)

func TestWrapConvertsNoRowsToNotFound(t *testing.T) {
	err := ixerr.Wrap("getEntity", sql.ErrNoRows)
	assert.True(t, errors.Is(err, ixerr.ErrNotFound))
	assert.Equal(t, ixerr.NotFound, ixerr.Of(err))
}

func TestWrapPassesThroughOtherErrors(t *testing.T) {
	raw := errors.New("disk full")
	err := ixerr.Wrap("copyTable", raw)
	assert.True(t, errors.Is(err, raw))
	assert.False(t, errors.Is(err, ixerr.ErrNotFound))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, ixerr.Wrap("noop", nil))
}

func TestNewBuildsFormattedReason(t *testing.T) {
	err := ixerr.New(ixerr.InvalidArgument, "bad offset %d", -1)
	assert.True(t, errors.Is(err, ixerr.ErrInvalidArg))
	assert.Contains(t, err.Error(), "bad offset -1")
}

func TestOfReturnsNoneForUnrelatedError(t *testing.T) {
	assert.Equal(t, ixerr.None, ixerr.Of(errors.New("plain")))
}

func TestSentinelsDistinguishKinds(t *testing.T) {
	err := ixerr.Wrapf(ixerr.ErrBusy, "purge(%s)", "storage-1")
	assert.True(t, errors.Is(err, ixerr.ErrBusy))
	assert.False(t, errors.Is(err, ixerr.ErrTimeout))
}
