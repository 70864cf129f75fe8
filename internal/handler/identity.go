package handler

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const callerIDKey contextKey = "caller_id"

// RequireIdentity fails closed when the upstream identity resolver did
// not attach a caller ID. Authentication itself lives outside this
// service; by the time a request arrives X-User-ID is already trusted.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		callerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || callerID <= 0 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "No resolvable caller identity")
			return
		}
		ctx := context.WithValue(r.Context(), callerIDKey, callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID returns the resolved caller, 0 when absent.
func CallerID(ctx context.Context) int64 {
	id, _ := ctx.Value(callerIDKey).(int64)
	return id
}
