package duex

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewMergeBodyDeepMerges(t *testing.T) {
	v := newView(httptest.NewRecorder(), noopLogger{})
	v.MergeBody(map[string]any{"user": map[string]any{"name": "ann", "age": 30}})
	v.MergeBody(map[string]any{"user": map[string]any{"age": 31}, "ok": true})

	body := v.Body()
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann", user["name"])
	assert.Equal(t, 31, user["age"])
	assert.Equal(t, true, body["ok"])
}

func TestViewMergeBodyOverwritesNonMappingValues(t *testing.T) {
	v := newView(httptest.NewRecorder(), noopLogger{})
	v.MergeBody(map[string]any{"count": 1})
	v.MergeBody(map[string]any{"count": 2})
	assert.Equal(t, 2, v.Body()["count"])
}

func TestViewPresentIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	v := newView(rec, noopLogger{})
	v.MergeBody(map[string]any{"ok": true})
	v.Present()
	firstBody := rec.Body.String()
	v.SetStatus(500) // ignored: already ended
	v.Present()
	assert.Equal(t, firstBody, rec.Body.String())
	assert.Equal(t, 200, rec.Code)
}

func TestViewPresentErrorWritesDetailsChain(t *testing.T) {
	rec := httptest.NewRecorder()
	v := newView(rec, noopLogger{})
	inner := NewError(KindUpstreamError, 0, "upstream failed")
	outer := NewError(KindDispatchFailed, 502, "dispatch failed").WithCause(inner)

	v.PresentError(outer)

	assert.Equal(t, 502, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "dispatch failed", body.Error)
	assert.Equal(t, string(KindDispatchFailed), body.Code)
	require.Len(t, body.Details, 1)
	assert.Contains(t, body.Details[0], string(KindUpstreamError))
}

func TestViewStreamIsLazyAndStable(t *testing.T) {
	rec := httptest.NewRecorder()
	v := newView(rec, noopLogger{})
	assert.Equal(t, "", rec.Header().Get("Content-Type"))

	s1 := v.Stream()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	s2 := v.Stream()
	assert.Same(t, s1, s2)
}

func TestViewGetSetRejectsUnknownField(t *testing.T) {
	v := newView(httptest.NewRecorder(), noopLogger{})
	_, err := v.Get("bogus")
	require.Error(t, err)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindPropertyNotReadable, de.Code)

	err = v.Set("headers", "nope")
	require.Error(t, err)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindPropertyNotWritable, de.Code)
}

func TestViewGetSetBodyAndStatusRoundTrip(t *testing.T) {
	v := newView(httptest.NewRecorder(), noopLogger{})
	require.NoError(t, v.Set("status", 201))
	require.NoError(t, v.Set("body", map[string]any{"a": 1}))
	got, err := v.Get("status")
	require.NoError(t, err)
	assert.Equal(t, 201, got)
	got, err = v.Get("body")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)
}

func TestHeadersSetNoopAfterSent(t *testing.T) {
	rec := httptest.NewRecorder()
	v := newView(rec, noopLogger{})
	h := v.Headers()
	h.Set("X-Before", "yes")
	v.flushHeadersLocked()
	h.Set("X-After", "no")
	assert.Equal(t, "yes", rec.Header().Get("X-Before"))
	assert.Equal(t, "", rec.Header().Get("X-After"))
}
