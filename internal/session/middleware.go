package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Middleware attaches a stable session id to every request. The id travels
// in an HMAC-signed cookie so two requests from the same browser resolve to
// the same journey drafts. A missing or tampered cookie gets a fresh id.
func Middleware(secret, cookieName string, lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(cookieName); err == nil {
				sessionID = verify(c.Value, secret)
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				token, err := sign(sessionID, secret, lifetime)
				if err != nil {
					http.Error(w, "session error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(lifetime.Seconds()),
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

func sign(sessionID, secret string, lifetime time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verify(token, secret string) string {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return ""
	}
	return claims.Subject
}
