package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duex-go/duex"
)

func signToken(t *testing.T, secret []byte, userID string, expired bool) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newJWTRequest(headers http.Header) *duex.Request {
	return &duex.Request{Method: http.MethodGet, Headers: headers, URL: &url.URL{Path: "/secure"}}
}

func TestJWTAuthAcceptsValidBearerToken(t *testing.T) {
	secret := []byte("topsecret")
	tokenStr := signToken(t, secret, "user-1", false)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+tokenStr)

	sess := duex.NewSession(httptest.NewRecorder(), nil)
	err := JWTAuth(secret).Dispatch(newJWTRequest(headers), sess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.View().Body()["user_id"])
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	sess := duex.NewSession(httptest.NewRecorder(), nil)
	err := JWTAuth([]byte("topsecret")).Dispatch(newJWTRequest(http.Header{}), sess)
	require.Error(t, err)
	var de *duex.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, duex.KindUnauthenticated, de.Code)
	assert.Equal(t, http.StatusUnauthorized, de.StatusCode())
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	secret := []byte("topsecret")
	tokenStr := signToken(t, secret, "user-1", true)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+tokenStr)

	sess := duex.NewSession(httptest.NewRecorder(), nil)
	err := JWTAuth(secret).Dispatch(newJWTRequest(headers), sess)
	require.Error(t, err)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tokenStr := signToken(t, []byte("right-secret"), "user-1", false)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+tokenStr)

	sess := duex.NewSession(httptest.NewRecorder(), nil)
	err := JWTAuth([]byte("wrong-secret")).Dispatch(newJWTRequest(headers), sess)
	require.Error(t, err)
}
