package duex

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchErrorStatusCodeDefaultsTo500(t *testing.T) {
	err := NewError(KindDispatchFailed, 0, "boom")
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
}

func TestDispatchErrorStatusCodeHonorsExplicitStatus(t *testing.T) {
	err := NewError(KindNoRoute, http.StatusNotFound, "missing")
	assert.Equal(t, http.StatusNotFound, err.StatusCode())
}

func TestDispatchErrorWithHeaderAccumulates(t *testing.T) {
	err := NewError(KindNoRoute, http.StatusMethodNotAllowed, "no").
		WithHeader("Allow", "GET").
		WithHeader("Allow", "POST")
	assert.Equal(t, []string{"GET", "POST"}, err.Headers["Allow"])
}

func TestErrorDetailsWalksWrappedChain(t *testing.T) {
	root := errors.New("root cause")
	mid := NewError(KindUpstreamError, 0, "upstream error").WithCause(root)
	top := NewError(KindDispatchFailed, 0, "dispatch failed").WithCause(mid)

	details := errorDetails(top.Err)
	require.Len(t, details, 2)
	assert.Contains(t, details[0], string(KindUpstreamError))
	assert.Contains(t, details[1], "root cause")
}

func TestErrorDetailsWalksCauseList(t *testing.T) {
	a := NewError(KindUpstreamError, 0, "a failed")
	b := NewError(KindUpstreamClosed, 0, "b failed")
	top := NewError(KindDispatchFailed, 0, "dispatch failed").WithCause(CauseList{a, b})

	details := errorDetails(top.Err)
	require.Len(t, details, 2)
	assert.Contains(t, details[0], string(KindUpstreamError))
	assert.Contains(t, details[1], string(KindUpstreamClosed))
}

func TestErrorDetailsBreaksCycles(t *testing.T) {
	cyclic := &DispatchError{Message: "self", Code: KindDispatchFailed}
	cyclic.Err = cyclic

	details := errorDetails(cyclic)
	assert.Len(t, details, 1)
}

func TestAsDispatchErrorWrapsPlainError(t *testing.T) {
	plain := errors.New("plain failure")
	de := asDispatchError(plain)
	require.NotNil(t, de)
	assert.Equal(t, KindDispatchFailed, de.Code)
	assert.Same(t, plain, de.Err)
}

func TestAsDispatchErrorPassesThroughDispatchError(t *testing.T) {
	original := NewError(KindInvalidBody, 400, "bad")
	assert.Same(t, original, asDispatchError(original))
}

func TestTrimMessage(t *testing.T) {
	assert.Equal(t, "hello", trimMessage("  hello  "))
	assert.Equal(t, "hello world", trimMessage("\thello world\n"))
	assert.Equal(t, "", trimMessage("   "))
}
