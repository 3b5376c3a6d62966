package server

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/adr-fetch/config"
	"github.com/adr-fetch/search"
)

const Version = "1.0.0"

// Server exposes the search service over a JSON HTTP API: submission,
// status polling, cancellation and configuration presets.
type Server struct {
	Logger  *log.Logger
	Service *search.Service
	Store   *config.Store

	httpServer *http.Server
}

// New creates a server around the given service and settings store.
func New(service *search.Service, store *config.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		Logger:  logger,
		Service: service,
		Store:   store,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/search/file", s.handleSearchFromFile)
	mux.HandleFunc("/search/text", s.handleSearchFromText)
	mux.HandleFunc("/search/stop", s.handleStopTask)
	mux.HandleFunc("/search/check/driver", s.handleCheckDriver)
	mux.HandleFunc("/search/", s.handleTaskStatus)
	mux.HandleFunc("/search", s.handleListTasks)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/config/save", s.handleConfigSave)
	mux.HandleFunc("/config/load", s.handleConfigLoad)
	mux.HandleFunc("/config/presets", s.handleConfigPresets)
	mux.HandleFunc("/ws", s.handleTaskStream)

	return mux
}

// Run serves the API on the given port until the context is cancelled.
func (s *Server) Run(ctx context.Context, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{Handler: s.Handler()}

	s.Logger.Printf("HTTP server listening on port %s", port)
	s.Logger.Printf("Version: %s", Version)

	go func() {
		<-ctx.Done()
		s.httpServer.Shutdown(context.Background())
	}()

	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type taskResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"healthy": true,
		"version": Version,
	})
}

func (s *Server) handleSearchFromFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	task := s.Service.StartSearchFromFile()
	respondJSON(w, http.StatusAccepted, taskResponse{
		TaskID:  task.ID(),
		Status:  string(task.Status()),
		Message: "Search started from file",
	})
}

func (s *Server) handleSearchFromText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	task := s.Service.StartSearchFromText(req.Query)
	message := "Search started from text box"
	if strings.TrimSpace(req.Query) == "" {
		message = "No drug names provided; falling back to file"
	}
	respondJSON(w, http.StatusAccepted, taskResponse{
		TaskID:  task.ID(),
		Status:  string(task.Status()),
		Message: message,
	})
}

func (s *Server) handleStopTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.Service.StopTask(req.TaskID) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, taskResponse{
		TaskID:  req.TaskID,
		Status:  "cancel_requested",
		Message: "Interrupt requested",
	})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/search/")
	if id == "" {
		s.handleListTasks(w, r)
		return
	}
	snapshot, ok := s.Service.TaskStatus(id)
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, s.Service.Registry().Snapshots())
}

func (s *Server) handleCheckDriver(w http.ResponseWriter, r *http.Request) {
	message, err := s.Service.CheckDriver()
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": message})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, s.Store.Get())
	case http.MethodPost, http.MethodPut:
		settings := s.Store.Get()
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Store.Set(settings)
		respondJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, err := s.Store.Save(req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleConfigLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings, err := s.Store.Load(req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleConfigPresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, s.Store.Available())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
