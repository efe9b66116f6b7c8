package duex

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEStreamWriteFramesAsDataRecord(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSSEStream(rec, noopLogger{})
	require.NoError(t, s.Write(map[string]any{"n": 1}))
	assert.Equal(t, "data: {\"n\":1}\n\n", rec.Body.String())
}

func TestSSEStreamWriteAfterCloseFails(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSSEStream(rec, noopLogger{})
	require.NoError(t, s.Close())
	err := s.Write(map[string]any{"n": 1})
	require.Error(t, err)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindChannelClosed, de.Code)
}

func TestSSEStreamMultipleWritesAppend(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSSEStream(rec, noopLogger{})
	require.NoError(t, s.Write(map[string]any{"n": 1}))
	require.NoError(t, s.Write(map[string]any{"n": 2}))
	assert.Equal(t, "data: {\"n\":1}\n\ndata: {\"n\":2}\n\n", rec.Body.String())
}
