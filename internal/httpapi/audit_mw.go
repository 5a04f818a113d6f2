package httpapi

import (
	"net/http"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
)

// withAudit installs an audit note for the handler to fill in, then records an
// entry after the response has been written. Requests whose handler never set
// the note produce no entry. Recording is asynchronous and cannot change the
// already-sent response.
func (a *API) withAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, note := audit.WithNote(r.Context())
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		e := audit.Entry{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Status:    sw.code,
			RequestID: RequestIDFromContext(ctx),
		}
		if user, ok := auth.UserFromContext(ctx); ok {
			e.ActorID = user.ID
			e.ActorName = user.Name
		}
		if !note.Snapshot(&e) {
			return
		}
		a.recorder.Record(&e)
	})
}
