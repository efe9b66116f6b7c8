package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duex-go/duex"
)

// Claims is the JWT payload JWTAuth expects, grounded on
// elliota43/go-php-app-server's WSClaims: a subject plus the registered
// claim set.
type Claims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTAuth builds a Dispatcher implementing elliota43's authenticateWS in
// duex terms: it requires "Authorization: Bearer <jwt>" signed with an HMAC
// method (HS256, HS384 or HS512) using secret, and merges the resulting user ID into the view body under
// "user_id" so downstream dispatchers can read it back via View.Body.
// Authentication failures raise the additive duex.KindUnauthenticated kind
// (never a spec-named kind) with a 401 status.
func JWTAuth(secret []byte) duex.Dispatcher {
	return duex.DispatcherFunc(func(req *duex.Request, sess *duex.Session) error {
		userID, err := authenticate(req.Headers, secret)
		if err != nil {
			return duex.NewError(duex.KindUnauthenticated, http.StatusUnauthorized, "unauthenticated").
				WithCause(err).
				WithHeader("WWW-Authenticate", "Bearer")
		}
		sess.View().MergeBody(map[string]any{"user_id": userID})
		return nil
	})
}

func authenticate(headers http.Header, secret []byte) (string, error) {
	auth := headers.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || len(secret) == 0 {
		return "", errors.New("missing bearer token")
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", errors.New("invalid token")
	}
	return claims.UserID, nil
}
