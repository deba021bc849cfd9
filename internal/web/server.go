package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/bookings"
	"github.com/example/teetime-scheduler/internal/db"
	"github.com/example/teetime-scheduler/internal/notify"
	"github.com/example/teetime-scheduler/internal/teetime"
)

// Sessions is the slice of the auth store the API needs.
type Sessions interface {
	Authenticate(ctx context.Context, username, password string) (int64, error)
	SetSession(w http.ResponseWriter, r *http.Request, userID int64) error
	ClearSession(w http.ResponseWriter)
	RequireAuth(next http.Handler) http.Handler
}

// BookingStore is the slice of the bookings repo the API needs.
type BookingStore interface {
	List(ctx context.Context) ([]bookings.Record, error)
	Latest(ctx context.Context) (bookings.Record, error)
	Clear(ctx context.Context) error
	Seed(ctx context.Context) (int, error)
}

// RunTrigger executes one booking run.
type RunTrigger interface {
	Run(ctx context.Context) teetime.Outcome
}

// Server is the JSON API in front of the booking core. It renders no UI.
type Server struct {
	Auth     Sessions
	Bookings BookingStore
	Runner   RunTrigger
	Migrate  func(ctx context.Context) error
	Mailer   notify.Mailer

	EmailUser string
	EmailPass string
	NotifyTo  string
	Weekday   time.Weekday
	Scheduled bool

	// Gate serializes runs; the portal is single-session. Shared with the
	// scheduler so API-triggered and scheduled runs never overlap.
	Gate *sync.Mutex

	Log *zap.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)

	mux.Handle("/api/booking", s.Auth.RequireAuth(http.HandlerFunc(s.handleBooking)))
	mux.Handle("/api/database", s.Auth.RequireAuth(http.HandlerFunc(s.handleDatabase)))
	mux.Handle("/api/init-db", s.Auth.RequireAuth(http.HandlerFunc(s.handleInitDB)))
	mux.Handle("/api/test-email", s.Auth.RequireAuth(http.HandlerFunc(s.handleTestEmail)))

	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.Auth.Authenticate(r.Context(), strings.TrimSpace(body.Username), body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username/password")
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeStatus(w, r, true)
	case http.MethodPost:
		var body struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		switch body.Action {
		case "book":
			s.runBooking(w, r)
		case "status":
			s.writeStatus(w, r, false)
		default:
			writeError(w, http.StatusBadRequest, "invalid action")
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// runBooking triggers one run. The portal session is single-user, so a run
// already in flight turns into a 409 instead of a second session.
func (s *Server) runBooking(w http.ResponseWriter, r *http.Request) {
	if !s.Gate.TryLock() {
		writeError(w, http.StatusConflict, "a booking run is already in progress")
		return
	}
	defer s.Gate.Unlock()

	out := s.Runner.Run(r.Context())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, withHistory bool) {
	next := teetime.FormatDate(teetime.NextTargetDate(time.Now(), s.Weekday))

	var last *bookings.Record
	if rec, err := s.Bookings.Latest(r.Context()); err == nil {
		last = &rec
	} else if !db.IsNotFound(err) {
		s.Log.Error("latest booking lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get booking status")
		return
	}

	resp := map[string]any{
		"nextTargetDate": next,
		"lastBooking":    last,
		"isScheduled":    s.Scheduled,
	}
	if withHistory {
		history, err := s.Bookings.List(r.Context())
		if err != nil {
			s.Log.Error("booking history lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to get booking history")
			return
		}
		if history == nil {
			history = []bookings.Record{}
		}
		resp["bookingHistory"] = history
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rows, err := s.Bookings.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "database read error")
			return
		}
		if rows == nil {
			rows = []bookings.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"bookings":     rows,
				"bookingCount": len(rows),
				"lastUpdated":  time.Now().UTC().Format(time.RFC3339),
			},
		})
	case http.MethodDelete:
		if err := s.Bookings.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear bookings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "bookings cleared"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleInitDB(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.Migrate(r.Context()); err != nil {
		s.Log.Error("migrate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to initialize database")
		return
	}
	n, err := s.Bookings.Seed(r.Context())
	if err != nil {
		s.Log.Error("seed failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to seed database")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "database initialized",
		"details": map[string]any{"testDataInserted": n},
	})
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := notify.ValidateGmailCreds(s.EmailUser, s.EmailPass); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	subject := "Tee Time Scheduler - Email Test"
	if err := s.Mailer.Send(s.NotifyTo, subject, "<h2>Email test successful.</h2>"); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("send failed: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "test email sent",
		"details": map[string]any{"to": s.NotifyTo},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// Start serves h until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}
