// Package httpapi exposes a small read-only status surface for the
// tracker and scheduler. It is observability only; nothing in the
// pipeline depends on it.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey int

const requestIDKey ctxKey = 1

var alphabet = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func newReqID8() string {
	b := make([]byte, 8)
	rnd := make([]byte, 8)
	_, _ = rand.Read(rnd)
	for i := 0; i < 8; i++ {
		b[i] = alphabet[int(rnd[i])%len(alphabet)]
	}
	return string(b)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" || len(rid) != 8 {
			rid = newReqID8()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid, _ := r.Context().Value(requestIDKey).(string)
		next.ServeHTTP(w, r)
		log.Debug().
			Str("rid", rid).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("dur", time.Since(start)).
			Msg("status request")
	})
}

// StatusSource is what the router reads to answer /status.
type StatusSource interface {
	Status() Status
}

// Status is the JSON body served by /status.
type Status struct {
	Boards   []BoardStatus `json:"boards"`
	QueueLen int           `json:"queue_len"`
}

// BoardStatus is the per-board slice of Status.
type BoardStatus struct {
	ID        string `json:"id"`
	Position  string `json:"position"`
	Pieces    int    `json:"pieces"`
	InFlight  bool   `json:"in_flight"`
	HasResult bool   `json:"has_result"`
	BestMove  string `json:"best_move,omitempty"`
}

// NewRouter builds the status mux.
func NewRouter(log zerolog.Logger, src StatusSource) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Status())
	})

	return requestID(accessLog(log, mux))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
