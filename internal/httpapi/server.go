package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/secretengineer/GreenOS/internal/controller"
	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/internal/safety"
)

// Clock supplies the tick for manual override requests, keeping the
// server free of direct time arithmetic.
type Clock func() int64

// Server exposes the controller's observable state: latest snapshot,
// actuator records, the command log, and sensor health, plus the two
// manual interventions (sensor health reset, actuator override).
type Server struct {
	ctrl   *controller.Controller
	clock  Clock
	logger *slog.Logger
	srv    *http.Server
}

// New builds the HTTP server on the given listen address.
func New(addr string, ctrl *controller.Controller, clock Clock, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:   ctrl,
		clock:  clock,
		logger: logger.With("component", "httpapi"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.HandleFunc("/api/snapshot", s.handleSnapshot).Methods("GET")
	r.HandleFunc("/api/actuators", s.handleActuators).Methods("GET")
	r.HandleFunc("/api/actuators/{id}", s.handleOverride).Methods("POST")
	r.HandleFunc("/api/commands", s.handleCommands).Methods("GET")
	r.HandleFunc("/api/sensors/health", s.handleSensorHealth).Methods("GET")
	r.HandleFunc("/api/sensors/{id}/reset", s.handleSensorReset).Methods("POST")

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(os.Stdout, r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status API listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleActuators(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Actuators())
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Commands())
}

func (s *Server) handleSensorHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Snapshot().Health)
}

type overrideRequest struct {
	State string `json:"state"`
}

type overrideResponse struct {
	Actuator string        `json:"actuator"`
	Result   safety.Result `json:"result"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	id := safety.ActuatorID(mux.Vars(r)["id"])
	known := false
	for _, a := range safety.AllActuators {
		if a == id {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, http.StatusNotFound, "unknown actuator")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	desired := safety.State(req.State)
	if desired != safety.StateOn && desired != safety.StateOff {
		s.writeError(w, http.StatusBadRequest, `state must be "on" or "off"`)
		return
	}

	res := s.ctrl.Override(id, desired, s.clock())
	status := http.StatusOK
	if !res.Applied {
		// The request was understood; the interlock said no.
		status = http.StatusConflict
	}
	s.writeJSON(w, status, overrideResponse{Actuator: string(id), Result: res})
}

func (s *Server) handleSensorReset(w http.ResponseWriter, r *http.Request) {
	id := models.SensorID(mux.Vars(r)["id"])
	if err := s.ctrl.ResetSensor(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sensor": string(id), "status": "reset"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
