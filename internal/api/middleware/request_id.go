package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	// ClientIDKey holds the caller's self-declared client id (X-Client-ID), such as the
	// voice agent or the CLI.
	ClientIDKey contextKey = "client_id"
)

// Longer caller-supplied ids are dropped.
const maxRequestIDLength = 128

// RequestID puts the request id and the caller's client id into the context. A usable
// X-Request-ID is kept, otherwise a new one is generated; either way it is echoed back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		if clientID := strings.TrimSpace(r.Header.Get("X-Client-ID")); clientID != "" && len(clientID) <= maxRequestIDLength {
			ctx = context.WithValue(ctx, ClientIDKey, clientID)
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from context.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}
