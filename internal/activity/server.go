package activity

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type RoutesOptions struct {
	AuthToken string
	Reader    Reader
	// Identity is reported by /health, e.g. the bot user id.
	Identity string
}

const defaultListLimit = 20

type routes struct {
	token    string
	reader   Reader
	identity string
}

// RegisterRoutes mounts /health, which is public, and the bearer-protected
// /activity endpoints on mux.
func RegisterRoutes(mux *http.ServeMux, opts RoutesOptions) {
	if mux == nil {
		return
	}
	h := &routes{
		token:    strings.TrimSpace(opts.AuthToken),
		reader:   opts.Reader,
		identity: strings.TrimSpace(opts.Identity),
	}
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /activity", h.requireToken(h.list))
	mux.HandleFunc("GET /activity/{id}", h.requireToken(h.get))
}

func (h *routes) health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"ok":   true,
		"time": time.Now().Format(time.RFC3339Nano),
	}
	if h.identity != "" {
		payload["bot_user_id"] = h.identity
	}
	if h.reader != nil {
		if info, ok := h.reader.LastCycle(); ok {
			payload["last_cycle"] = info
		}
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, payload)
}

func (h *routes) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	outcome, ok := ParseOutcome(query.Get("outcome"))
	if !ok {
		http.Error(w, "invalid outcome", http.StatusBadRequest)
		return
	}
	limit := defaultListLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, map[string]any{"items": h.reader.List(outcome, limit)})
}

func (h *routes) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reader.Get(strings.TrimSpace(r.PathValue("id")))
	if !ok || rec == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, rec)
}

// requireToken rejects requests without the bearer token and answers 503
// while no reader is attached.
func (h *routes) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(r, h.token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if h.reader == nil {
			http.Error(w, "activity reader is unavailable", http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type ServerOptions struct {
	Listen string
	Routes RoutesOptions
}

// StartServer serves the routes until ctx is done.
func StartServer(ctx context.Context, logger *slog.Logger, opts ServerOptions) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listen := strings.TrimSpace(opts.Listen)
	if listen == "" {
		return nil, errors.New("empty status listen address")
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", listen, err)
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, opts.Routes)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	addr := ln.Addr().String()
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status_server_error", "addr", addr, "error", err.Error())
		}
	}()
	context.AfterFunc(ctx, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(stopCtx)
	})

	logger.Info("status_server_start",
		"addr", addr,
		"activity_enabled", strings.TrimSpace(opts.Routes.AuthToken) != "",
	)
	return srv, nil
}

func checkAuth(r *http.Request, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	got, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) == 1
}
