package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternalHidesDriverText(t *testing.T) {
	cause := errors.New(`pq: duplicate key value violates unique constraint "ux_work_logs_active_recognition"`)
	err := Internal(cause)

	require.NotNil(t, err)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, "storage failure", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFromKeepsTaxonomy(t *testing.T) {
	wrapped := fmt.Errorf("advance: %w", InvalidTransition("finish the current step before jumping back"))

	assert.Equal(t, CodeInvalidTransition, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeInvalidTransition))
	assert.Equal(t, http.StatusConflict, From(wrapped).Status)
	assert.Equal(t, "finish the current step before jumping back", From(wrapped).Message)
}

func TestCodeOfUnknownIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
	assert.Nil(t, Internal(nil))
}
