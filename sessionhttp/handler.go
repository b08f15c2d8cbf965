// Package sessionhttp exposes a session manager over a small local HTTP API
// so that UI shells and route guards written in other runtimes can read and
// drive the session.
package sessionhttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
)

const maxLoginBody = 16 << 10

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

type handler struct {
	manager *sessionx.Manager
	log     *zap.Logger
}

type loginRequest struct {
	Token string `json:"token"`
}

// NewRouter builds the API:
//
//	GET  /session          current state
//	POST /session/login    {"token": "..."}
//	POST /session/logout
//	POST /session/refresh
//	GET  /whoami           identity, 401 when unauthenticated
func NewRouter(m *sessionx.Manager, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{manager: m, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/session", h.state).Methods(http.MethodGet)
	r.HandleFunc("/session/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/session/logout", h.logout).Methods(http.MethodPost)
	r.HandleFunc("/session/refresh", h.refresh).Methods(http.MethodPost)
	r.Handle("/whoami", Guard(m)(http.HandlerFunc(h.whoami))).Methods(http.MethodGet)
	r.Use(logging(log))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		MaxAge:           86400,
	})
	return c.Handler(r)
}

// Guard rejects requests while the session is unauthenticated and binds the
// session snapshot into the request context otherwise.
func Guard(m *sessionx.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := m.State()
			if !state.IsAuthenticated {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(sessionx.BindState(r.Context(), state)))
		})
	}
}

func (h *handler) state(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.State())
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}
	if !h.manager.Login(token) {
		respondError(w, http.StatusUnauthorized, "token rejected")
		return
	}
	respondJSON(w, http.StatusOK, h.manager.State())
}

func (h *handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.manager.Logout()
	respondJSON(w, http.StatusOK, h.manager.State())
}

func (h *handler) refresh(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.RefreshAuthStatus())
}

func (h *handler) whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionx.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, id)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

func logging(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
