package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/engine/workbook"
	"github.com/rendis/kectap/internal/model"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxBodySize     = 1 << 20
)

// Options tunes the simulated backend.
type Options struct {
	// QueuedPolls is how many status calls report "queued" first.
	QueuedPolls int
	// StepsPerKecamatan is how many status calls each kecamatan takes.
	StepsPerKecamatan int
	// PlacesPerCell is the number of candidate places per search cell.
	PlacesPerCell int
	// FailMessage makes every job fail halfway with this message.
	FailMessage  string
	FailPreview  bool
	RejectSubmit bool
	Logger       *slog.Logger
}

// Server is an in-process stand-in for the scrape backend.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *mux.Router

	mu   sync.Mutex
	jobs map[string]*job
}

func New(opts Options) *Server {
	if opts.StepsPerKecamatan <= 0 {
		opts.StepsPerKecamatan = 2
	}
	if opts.PlacesPerCell <= 0 {
		opts.PlacesPerCell = 1
	}
	if opts.QueuedPolls < 0 {
		opts.QueuedPolls = 0
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		router: mux.NewRouter(),
		jobs:   map[string]*job{},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.cors)
	s.router.HandleFunc("/api/gmaps/kecamatan/scrape", s.createJob).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/jobs/{jobId}/status", s.jobStatus).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/jobs/{jobId}/preview", s.jobPreview).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/jobs/{jobId}/download", s.jobDownload).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	}).Methods(http.MethodGet)
}

// Handler exposes the routes, for httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("mock.listen", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("mock.shutdown")
	return nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if s.opts.RejectSubmit {
		writeError(w, http.StatusServiceUnavailable, "scraper is not accepting jobs")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	if err := jobs.ValidateRequestJSON(body); err != nil {
		s.logger.Warn("mock.create.invalid", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var req model.JobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	j := newJob(req, s.opts.PlacesPerCell)
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.logger.Info("mock.create.ok", "job_id", j.id, "kecamatan", len(req.Kecamatan), "rows", len(j.rows), "req_id", r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, map[string]string{"jobId": j.id})
}

// statusBody is the status response as the real backend shapes it.
type statusBody struct {
	Status                model.State `json:"status"`
	Phase                 string      `json:"phase,omitempty"`
	OverallProgress       float64     `json:"overallProgress"`
	CurrentKecamatanName  string      `json:"currentKecamatanName,omitempty"`
	CurrentKecamatanIndex *int        `json:"currentKecamatanIndex,omitempty"`
	TotalKecamatan        int         `json:"totalKecamatan"`
	Found                 int         `json:"found"`
	Message               string      `json:"message,omitempty"`
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	j, ok := s.jobs[mux.Vars(r)["jobId"]]
	var body statusBody
	if ok {
		j.polls++
		body = s.statusOf(j)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// statusOf derives the reported status from the number of polls so far.
// Callers hold s.mu.
func (s *Server) statusOf(j *job) statusBody {
	total := len(j.req.Kecamatan)
	body := statusBody{TotalKecamatan: total}

	step := j.polls - s.opts.QueuedPolls
	if step <= 0 {
		body.Status = model.StateQueued
		body.Phase = "queued"
		return body
	}

	steps := total * s.opts.StepsPerKecamatan
	if s.opts.FailMessage != "" && step > steps/2 {
		return statusBody{Status: model.StateError, Message: s.opts.FailMessage, TotalKecamatan: total}
	}
	if step > steps {
		body.Status = model.StateDone
		body.Phase = "done"
		body.OverallProgress = 100
		body.Found = len(j.rows)
		return body
	}

	idx := (step - 1) / s.opts.StepsPerKecamatan
	body.Status = model.StateRunning
	body.Phase = "scraping"
	if step == steps {
		body.Phase = "exporting"
	}
	body.OverallProgress = float64(step-1) / float64(steps) * 100
	body.CurrentKecamatanName = j.req.Kecamatan[idx]
	body.CurrentKecamatanIndex = &idx
	if idx > 0 {
		body.Found = j.found[idx-1]
	}
	return body
}

func (s *Server) finishedJob(w http.ResponseWriter, r *http.Request) (*job, bool) {
	s.mu.Lock()
	j, ok := s.jobs[mux.Vars(r)["jobId"]]
	var done bool
	if ok {
		done = s.statusOf(j).Status == model.StateDone
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	case !done:
		writeError(w, http.StatusConflict, "job is not finished")
		return nil, false
	}
	return j, true
}

func (s *Server) jobPreview(w http.ResponseWriter, r *http.Request) {
	if s.opts.FailPreview {
		writeError(w, http.StatusInternalServerError, "preview unavailable")
		return
	}
	j, ok := s.finishedJob(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rows := make([]map[string]any, 0, min(limit, len(j.rows)))
	for _, row := range j.rows[:min(limit, len(j.rows))] {
		rows = append(rows, project(row, j.req.Columns))
	}
	total := len(j.rows)
	writeJSON(w, http.StatusOK, model.Preview{Rows: rows, Total: &total})
}

func (s *Server) jobDownload(w http.ResponseWriter, r *http.Request) {
	if f := r.URL.Query().Get("format"); f != "" && f != "xlsx" {
		writeError(w, http.StatusBadRequest, "unsupported format "+f)
		return
	}
	j, ok := s.finishedJob(w, r)
	if !ok {
		return
	}

	opts := workbook.OptionsFromRequest(j.req)
	opts.Metadata = metadata(j)
	data, err := workbook.Write(j.rows, opts)
	if err != nil {
		s.logger.Error("mock.download.failed", "job_id", j.id, "error", err)
		writeError(w, http.StatusInternalServerError, "building workbook")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, FileName(j.req.Kabkota, j.id)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// FileName is the attachment name of an export.
func FileName(kabkota, jobID string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(kabkota), "_"))
	if slug == "" {
		slug = "export"
	}
	return fmt.Sprintf("%s_%s.xlsx", slug, jobID)
}

func metadata(j *job) [][2]string {
	query := ""
	if j.req.Query != nil {
		query = *j.req.Query
	}
	return [][2]string{
		{"jobId", j.id},
		{"createdAt", j.created.Format(time.RFC3339)},
		{"kabkota", j.req.Kabkota},
		{"kecamatan", strings.Join(j.req.Kecamatan, ", ")},
		{"query", query},
		{"types", strings.Join(j.req.Types, ", ")},
		{"minRating", strconv.FormatFloat(j.req.Filters.MinRating, 'f', -1, 64)},
		{"strategy", string(j.req.Strategy.Mode)},
		{"gridSizeMeters", strconv.Itoa(j.req.Strategy.GridSizeMeters)},
		{"gridOverlapMeters", strconv.Itoa(j.req.Strategy.GridOverlapMeters)},
		{"dedupeMeters", strconv.Itoa(j.req.Strategy.DedupeMeters)},
		{"rows", strconv.Itoa(len(j.rows))},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
