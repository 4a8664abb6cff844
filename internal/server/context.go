package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lazypower/charmlink/internal/engine"
)

type ctxKey int

const userKey ctxKey = iota

// TimezoneHeader names the caller's IANA timezone.
const TimezoneHeader = "X-Timezone"

// requireUser rejects requests without the identity header and stores the
// caller id on the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(s.userHeader))
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "missing " + s.userHeader + " header",
				"kind":  engine.KindUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func access(r *http.Request) engine.Access {
	user, _ := r.Context().Value(userKey).(string)
	return engine.Access{UserID: user}
}

// today returns the caller's current calendar date. The timezone comes from
// the X-Timezone header, then the tz query parameter, then the server default.
func (s *Server) today(r *http.Request) (time.Time, error) {
	name := r.Header.Get(TimezoneHeader)
	if name == "" {
		name = r.URL.Query().Get("tz")
	}
	loc := s.loc
	if name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown timezone %q", engine.ErrInvalidArgument, name)
		}
		loc = l
	}
	return engine.Today(s.now(), loc), nil
}
