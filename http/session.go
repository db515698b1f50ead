package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "homely_session"
)

type sessionKey struct{}

// Sessions attaches a session id to every request: the X-Session-ID
// header wins, then the homely_session cookie. A fresh id is issued when
// neither is present and echoed back in both places.
func Sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimSpace(req.Header.Get(SessionHeader))
		if id == "" {
			if c, err := req.Cookie(SessionCookie); err == nil {
				id = strings.TrimSpace(c.Value)
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), sessionKey{}, id)))
	})
}

// SessionID returns the id attached by Sessions, or "" outside it.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
