package route

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rsvpd/src-server/model"
	"rsvpd/src-server/utils"
)

type SessionCtxKeyType string

const (
	SessionCtxKey SessionCtxKeyType = "session"
)

// AuthMiddleware resolves the session-secret cookie to a session and passes
// it down in the request context. Expired sessions are deleted.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		// extract session secret from cookies
		sessionSecret := func() string {
			sessionCookie, err := r.Cookie(model.SESSION_COOKIE_NAME)
			if err == nil {
				return strings.TrimSpace(sessionCookie.Value)
			}
			return ""
		}()
		if sessionSecret == "" {
			writeError(w, http.StatusUnauthorized, "Session secret cookie not found")
			return
		}

		startTimer := time.Now()
		sessionModel := new(model.Session)
		err := as.BunDB.
			NewSelect().
			Model(sessionModel).
			Where("secret = ?", sessionSecret).
			Where("purpose = ?", model.SESSION_MODEL_PURPOSE_SESSION).
			Scan(r.Context())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusUnauthorized, "Session secret not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "Can't check if session exists in DB")
			slog.Error("can't check if session exists in DB", "error", err)
			return
		}
		utils.ObserveSince(as.MetricChans.DatabaseRead, startTimer)

		if sessionModel.Expired(time.Now()) {
			if _, err := as.BunDB.
				NewDelete().
				Model((*model.Session)(nil)).
				Where("secret = ?", sessionSecret).
				Exec(r.Context()); err != nil {
				writeError(w, http.StatusInternalServerError, "Can't delete session model in DB")
				slog.Error("can't delete session model in DB", "error", err)
				return
			}
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		ctx := context.WithValue(r.Context(), SessionCtxKey, sessionModel)
		next(w, r.WithContext(ctx))
	}
}
