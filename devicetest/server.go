// Package devicetest provides an in-process fake eye tracker for
// package tests: the device HTTP API plus status and gaze push
// channels, with counters for asserting channel-open behavior.
package devicetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Server is a fake device reachable over real HTTP and WebSocket.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	mu          sync.Mutex
	status      map[string]any
	settings    map[string]any
	statusConns []*websocket.Conn
	gazeConns   []*websocket.Conn
	recording   bool
	recordingID string
	calibrating bool

	statusOpens atomic.Int32
	gazeOpens   atomic.Int32
	failStatus  atomic.Int32 // non-zero forces GET /api/status to fail
}

// NewServer starts a fake device with a healthy default status.
func NewServer() *Server {
	s := &Server{
		status: map[string]any{
			"id":           "fake-1",
			"name":         "Neon Test Device",
			"model":        "neon",
			"serial":       "N-0001",
			"firmware":     "2.8.1",
			"batteryLevel": 100,
			"isCharging":   false,
			"isWorn":       true,
		},
		settings: map[string]any{
			"gazeSampleRate": float64(200),
			"autoExposure":   true,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/recording", s.handleRecording)
	mux.HandleFunc("/api/calibration", s.handleCalibration)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/gaze", s.handleGaze)
	s.httpServer = httptest.NewServer(mux)
	return s
}

// Addr returns the "host:port" the fake device listens on.
func (s *Server) Addr() string {
	return strings.TrimPrefix(s.httpServer.URL, "http://")
}

// URL returns the base HTTP URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the fake device down, dropping all channels.
func (s *Server) Close() {
	s.CloseStatusChannels()
	s.CloseGazeChannels()
	s.httpServer.Close()
}

// SetStatus merges fields into the JSON object served by GET /api/status.
func (s *Server) SetStatus(fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.status[k] = v
	}
}

// FailStatusWith makes GET /api/status return the given HTTP status.
// Zero restores normal behavior.
func (s *Server) FailStatusWith(httpStatus int) {
	s.failStatus.Store(int32(httpStatus))
}

// StatusOpens reports how many status channels were ever opened.
func (s *Server) StatusOpens() int {
	return int(s.statusOpens.Load())
}

// GazeOpens reports how many gaze channels were ever opened.
func (s *Server) GazeOpens() int {
	return int(s.gazeOpens.Load())
}

// PushStatus sends a raw JSON payload on every open status channel.
func (s *Server) PushStatus(payload string) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.statusConns...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(payload))
	}
}

// PushGaze sends a raw frame on every open gaze channel.
func (s *Server) PushGaze(frame string) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.gazeConns...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

// CloseStatusChannels drops every open status channel, simulating a
// device-side control channel loss.
func (s *Server) CloseStatusChannels() {
	s.mu.Lock()
	conns := s.statusConns
	s.statusConns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// CloseGazeChannels drops every open gaze channel.
func (s *Server) CloseGazeChannels() {
	s.mu.Lock()
	conns := s.gazeConns
	s.gazeConns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Settings returns a copy of the fake device's settings.
func (s *Server) Settings() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// Recording reports the fake device's recording state and current ID.
func (s *Server) Recording() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording, s.recordingID
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.statusOpens.Add(1)
		s.mu.Lock()
		s.statusConns = append(s.statusConns, conn)
		s.mu.Unlock()
		return
	}

	if code := int(s.failStatus.Load()); code != 0 {
		http.Error(w, "forced failure", code)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status)
}

type controlBody struct {
	Action      string `json:"action"`
	RecordingID string `json:"recording_id"`
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"recording":    s.recording,
			"recording_id": s.recordingID,
		})

	case http.MethodPost:
		var body controlBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		switch body.Action {
		case "start":
			if s.recording {
				http.Error(w, `{"error":"already recording"}`, http.StatusConflict)
				return
			}
			s.recording = true
			s.recordingID = body.RecordingID
		case "stop":
			s.recording = false
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"recording":    s.recording,
			"recording_id": s.recordingID,
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"calibrating": s.calibrating,
			"quality":     "good",
		})

	case http.MethodPost:
		var body controlBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		switch body.Action {
		case "start":
			s.calibrating = true
		case "stop":
			s.calibrating = false
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"calibrating": s.calibrating,
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.settings)

	case http.MethodPost:
		var changes map[string]any
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for k, v := range changes {
			s.settings[k] = v
		}
		_ = json.NewEncoder(w).Encode(s.settings)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGaze(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket only", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.gazeOpens.Add(1)
	s.mu.Lock()
	s.gazeConns = append(s.gazeConns, conn)
	s.mu.Unlock()
}
