// Package server wires the HTTP surface: the analyze endpoint, health check,
// demo run over the sample dataset, the auth/history endpoints, and CORS for
// the configured front-end origins.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"call-sentiment-go/internal/dataset"
	"call-sentiment-go/internal/history"
	"call-sentiment-go/internal/logger"
	"call-sentiment-go/internal/processor"
	"call-sentiment-go/internal/types"
)

// Server holds the request handlers. Store may be nil when no database is
// configured; the auth/history endpoints then answer 503.
type Server struct {
	proc     *processor.Processor
	store    *history.Store
	dataPath string
	origins  map[string]bool
}

func New(proc *processor.Processor, store *history.Store, dataPath string, origins []string) *Server {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &Server{proc: proc, store: store, dataPath: dataPath, origins: allowed}
}

// Handler builds the route table wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/demo", s.handleDemo)
	mux.HandleFunc("/auth/register", s.handleRegister)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/history", s.handleHistory)
	return s.cors(mux)
}

type analyzeRequest struct {
	Transcript []types.Utterance `json:"transcript"`
}

var exampleFormat = map[string]any{
	"transcript": []map[string]string{
		{"speaker": "Agent", "text": "Hello", "timestamp": "[00:00]"},
	},
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "analyze")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	// Failures below the utterance level are absorbed by the annotator;
	// anything that still escapes becomes a 500 and the process stays alive.
	defer func() {
		if rec := recover(); rec != nil {
			reqLog.WithField("panic", rec).Error("analysis failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":  fmt.Sprint(rec),
				"status": "failed",
			})
		}
	}()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transcript == nil {
		reqLog.Warn("missing transcript data")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          "Missing transcript data",
			"example_format": exampleFormat,
		})
		return
	}

	res := s.proc.Analyze(r.Context(), req.Transcript)

	if s.store != nil {
		if raw := r.URL.Query().Get("user_id"); raw != "" {
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				reqLog.WithField("user_id", raw).Warn("ignoring malformed user_id")
			} else if err := s.store.SaveAnalysis(r.Context(), userID, r.URL.Query().Get("filename"), res); err != nil {
				// History is best-effort; the analysis itself still succeeded.
				reqLog.WithError(err).Warn("failed to save analysis history")
			}
		}
	}

	reqLog.WithField("process_time", res.Meta.ProcessTime).Info("transcript processed")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDemo analyzes the transcript workbook configured via DATASET_PATH,
// for quick end-to-end checks without a client.
func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "demo")

	if s.dataPath == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "DATASET_PATH not configured"})
		return
	}
	transcript, err := dataset.Load(s.dataPath)
	if err != nil {
		reqLog.WithError(err).Error("dataset load error")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  fmt.Sprintf("dataset load error: %v", err),
			"status": "failed",
		})
		return
	}
	reqLog.WithField("utterances", len(transcript)).Info("analyzing demo transcript")
	writeJSON(w, http.StatusOK, s.proc.Analyze(r.Context(), transcript))
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "register")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "history store not configured"})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Username == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "username, email and password are required"})
		return
	}

	id, err := s.store.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, history.ErrUserExists) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "username or email already taken"})
		return
	}
	if err != nil {
		reqLog.WithError(err).Error("register failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "registration failed", "status": "failed"})
		return
	}
	reqLog.WithField("user_id", id).Info("user registered")
	writeJSON(w, http.StatusCreated, map[string]any{"user_id": id})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "login")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "history store not configured"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "username and password are required"})
		return
	}

	id, err := s.store.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, history.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	if err != nil {
		reqLog.WithError(err).Error("login failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "login failed", "status": "failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "history")

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "history store not configured"})
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing or malformed user_id"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.store.ListAnalyses(r.Context(), userID, limit)
	if err != nil {
		reqLog.WithError(err).Error("history lookup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "history lookup failed", "status": "failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
}

// cors echoes allowed origins and answers preflight requests. With no
// configured origins every origin is allowed, which keeps local development
// friction-free.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowed(origin string) bool {
	if len(s.origins) == 0 {
		return true
	}
	return s.origins[origin]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}
