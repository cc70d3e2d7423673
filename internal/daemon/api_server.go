package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"framefuse/internal/api"
	"framefuse/internal/config"
	"framefuse/internal/jobs"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
	"framefuse/internal/services"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 256 << 20

// uploadFieldName is the multipart field carrying frame files.
const uploadFieldName = "frames"

type apiServer struct {
	bind      string
	logger    *slog.Logger
	manager   *jobs.Manager
	store     *queue.Store
	startedAt time.Time

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, manager *jobs.Manager, store *queue.Store, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api"),
		manager: manager,
		store:   store,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/jobs", srv.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs", srv.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}/process", srv.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs/{id}/artifact", srv.handleArtifact).Methods(http.MethodGet)
	router.HandleFunc("/api/health", srv.handleHealth).Methods(http.MethodGet)
	srv.handler = router

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = listener
	s.startedAt = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// handleUpload accepts a multipart form of PNG frames and registers a job.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File[uploadFieldName]
	blobs := make([]jobs.FrameBlob, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		blobs = append(blobs, jobs.FrameBlob{Name: header.Filename, Data: data})
	}

	job, err := s.manager.RegisterJob(r.Context(), blobs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.UploadResponse{
		Job:   api.FromJob(job),
		Files: api.EchoFiles(job),
	})
}

// handleStart kicks off the encode for an uploaded job. The optional JSON
// body selects codec, quality, and frame rate.
func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.StartRequest
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read request: "+err.Error())
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				s.writeError(w, http.StatusBadRequest, "parse request: "+err.Error())
				return
			}
		}
	}

	job, err := s.manager.StartJob(r.Context(), mux.Vars(r)["id"], jobs.StartOptions{
		Codec:     req.Codec,
		Quality:   req.Quality,
		FrameRate: req.FrameRate,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.GetStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.manager.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(list)})
}

// handleArtifact streams a completed job's output and queues the job for
// cleanup once the download has been served.
func (s *apiServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.manager.GetArtifact(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	http.ServeFile(w, r, artifact.Path)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := api.HealthResponse{
		Status:        "ok",
		Database:      "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	health, err := s.store.Health(r.Context())
	if err != nil {
		payload.Status = "degraded"
		payload.Database = "error"
		s.logger.Warn("health query failed", logging.Error(err))
	} else {
		payload.Jobs = api.FromHealth(health)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrNotReady):
		status = http.StatusConflict
	}
	s.writeError(w, status, services.Message(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
