package duex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBodyDecoderDecodesObject(t *testing.T) {
	pending := newPendingBody()
	pending.resolve([]byte(`{"a":1}`), nil)
	req := &Request{Body: pending}
	sess := &Session{abortion: newAbortion()}

	require.NoError(t, JSONBodyDecoder.Dispatch(req, sess))
	decoded, ok := req.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), decoded["a"])
}

func TestJSONBodyDecoderEmptyBodyIsNoop(t *testing.T) {
	pending := newPendingBody()
	pending.resolve(nil, nil)
	req := &Request{Body: pending}
	sess := &Session{abortion: newAbortion()}

	require.NoError(t, JSONBodyDecoder.Dispatch(req, sess))
	_, stillPending := req.Body.(*PendingBody)
	assert.True(t, stillPending)
}

func TestJSONBodyDecoderInvalidJSONFails(t *testing.T) {
	pending := newPendingBody()
	pending.resolve([]byte("not json"), nil)
	req := &Request{Body: pending}
	sess := &Session{abortion: newAbortion()}

	err := JSONBodyDecoder.Dispatch(req, sess)
	require.Error(t, err)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindInvalidBody, de.Code)
}

func TestJSONBodyDecoderSkipsAlreadyDecodedBody(t *testing.T) {
	req := &Request{Body: map[string]any{"already": true}}
	sess := &Session{abortion: newAbortion()}
	require.NoError(t, JSONBodyDecoder.Dispatch(req, sess))
	assert.Equal(t, map[string]any{"already": true}, req.Body)
}

func TestJSONBodyDecoderPropagatesUpstreamReadError(t *testing.T) {
	pending := newPendingBody()
	readErr := NewError(KindUpstreamClosed, 502, "upstream body read failed")
	pending.resolve(nil, readErr)
	req := &Request{Body: pending}
	sess := &Session{abortion: newAbortion()}

	err := JSONBodyDecoder.Dispatch(req, sess)
	assert.Same(t, readErr, err)
}
