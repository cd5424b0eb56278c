package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/bpaulsen/roomchat/internal/auth"
	"github.com/bpaulsen/roomchat/internal/message"
	"github.com/bpaulsen/roomchat/internal/metrics"
	"github.com/bpaulsen/roomchat/internal/ratelimit"
	"github.com/bpaulsen/roomchat/internal/room"
	"github.com/bpaulsen/roomchat/internal/ws"
	"github.com/samber/lo"
)

const tokenTTL = 24 * time.Hour

// Server is the HTTP front for the chat coordinator: the WebSocket
// endpoint plus the REST collaborators (auth, history, room listing).
type Server struct {
	addr      string
	mux       *http.ServeMux
	httpSrv   *http.Server
	registry  *room.Registry
	hub       *ws.Hub
	messages  message.Store
	users     *auth.Service
	jwtSecret []byte
	limiter   *ratelimit.IPLimiter
	history   int
	maxConns  int
}

// Option configures a Server.
type Option func(*Server)

// WithMessageStore sets the message persistence backend.
// Defaults to an in-memory store.
func WithMessageStore(s message.Store) Option {
	return func(srv *Server) { srv.messages = s }
}

// WithUserStore sets the account persistence backend.
// Defaults to an in-memory store.
func WithUserStore(s auth.UserStore) Option {
	return func(srv *Server) { srv.users = auth.NewService(s) }
}

// WithJWTSecret sets the secret used to sign login tokens.
func WithJWTSecret(secret []byte) Option {
	return func(srv *Server) { srv.jwtSecret = secret }
}

// WithMaxConns limits concurrent WebSocket connections. 0 means unlimited.
func WithMaxConns(n int) Option {
	return func(srv *Server) { srv.maxConns = n }
}

// WithRateLimit overrides the per-IP limit applied to signup and login.
func WithRateLimit(max int, window time.Duration) Option {
	return func(srv *Server) { srv.limiter = ratelimit.NewIPLimiter(max, window) }
}

// WithHistoryLimit caps how many messages the history endpoint returns.
func WithHistoryLimit(n int) Option {
	return func(srv *Server) { srv.history = n }
}

// New creates a Server coordinating the given enumerated room set.
func New(addr string, rooms []string, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		mux:       http.NewServeMux(),
		registry:  room.NewRegistry(rooms),
		messages:  message.NewMemoryStore(500),
		users:     auth.NewService(auth.NewMemoryStore()),
		jwtSecret: []byte("dev-secret-change"),
		limiter:   ratelimit.NewIPLimiter(10, time.Minute),
		history:   50,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = ws.NewHub(ws.WithMaxConns(s.maxConns))
	s.routes()
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown closes all WebSocket connections and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.ConnMgr().Shutdown()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes() {
	wsHandler := ws.NewHandler(s.hub, s.registry, s.messages)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/room-messages", s.handleRoomMessages)
	s.mux.HandleFunc("POST /api/signup", s.rateLimited(s.handleSignup))
	s.mux.HandleFunc("POST /api/login", s.rateLimited(s.handleLogin))
	s.mux.Handle("GET /ws", wsHandler)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RoomSummary is one entry of the room listing.
type RoomSummary struct {
	Name      string `json:"name"`
	Occupants int    `json:"occupants"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	summaries := lo.Map(s.registry.Rooms(), func(name string, _ int) RoomSummary {
		return RoomSummary{Name: name, Occupants: s.registry.Occupancy(name)}
	})
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room is required")
		return
	}
	if !s.registry.Valid(roomName) {
		writeError(w, http.StatusNotFound, "unknown room")
		return
	}

	msgs, err := s.messages.Recent(roomName, s.history)
	if err != nil {
		log.Printf("server: failed to load messages for %s: %v", roomName, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []*message.GroupMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

type signupRequest struct {
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Password  string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Username == "" || req.Firstname == "" || req.Lastname == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	u, err := s.users.Signup(r.Context(), req.Username, req.Firstname, req.Lastname, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrExists) {
			writeError(w, http.StatusConflict, "Username already exists.")
			return
		}
		log.Printf("server: signup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Signup successful",
		"user":    map[string]string{"username": u.Username},
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing credentials.")
		return
	}

	u, err := s.users.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username/password.")
		return
	}

	token, err := auth.GenerateToken(u.Username, s.jwtSecret, tokenTTL)
	if err != nil {
		log.Printf("server: token generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user": map[string]string{
			"username":  u.Username,
			"firstname": u.Firstname,
			"lastname":  u.Lastname,
		},
	})
}

// rateLimited wraps a handler with the per-IP limiter.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiter.Allow(ip) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}
