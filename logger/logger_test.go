package logger

import (
	// Go Internal Packages
	"testing"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesLogfmtEncoder(t *testing.T) {
	lgr, err := New("debug", "pix-stream")
	require.NoError(t, err)
	require.NotNil(t, lgr)
	assert.True(t, lgr.Core().Enabled(-1))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "pix-stream")
	require.Error(t, err)
}
