// Package server exposes the extraction HTTP API: synchronous extraction,
// queued jobs with status and result endpoints, page previews and health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/config"
	"github.com/local/pdfextract/internal/fetch"
	"github.com/local/pdfextract/internal/metrics"
	"github.com/local/pdfextract/internal/probe"
	"github.com/local/pdfextract/internal/reader"
	"github.com/local/pdfextract/internal/render"
	"github.com/local/pdfextract/internal/storage"
	"github.com/local/pdfextract/internal/store"
)

// Extractor runs the reading-order pipeline against one document.
type Extractor interface {
	ExtractTextAndImages(ctx context.Context, source, imagesDir string) ([]reader.ExtractedPage, error)
	ExtractText(ctx context.Context, source string) ([]string, error)
}

// Queue enqueues extraction jobs and supports cancellation.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	CancelJob(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error
}

// StatusStore tracks job lifecycle.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
	SetSourceJobMapping(ctx context.Context, source, jobID string) error
	GetJobBySource(ctx context.Context, source string) (string, error)
}

// ResultStore serves finished extraction output.
type ResultStore interface {
	GetResult(ctx context.Context, jobID string) ([]reader.ExtractedPage, bool, error)
	GetPage(ctx context.Context, jobID string, page int) (reader.ExtractedPage, bool, error)
}

// ResultArchive fetches uploaded result documents after their store entry
// has expired. Optional.
type ResultArchive interface {
	DownloadResult(ctx context.Context, key string) ([]byte, *storage.ObjectMetadata, error)
}

// RenderLimiter caps concurrent page renders. Optional.
type RenderLimiter interface {
	Allow(scope, name string) (func(), bool)
}

type Dependencies struct {
	Extractor Extractor
	Queue     Queue
	Status    StatusStore
	Results   ResultStore
	Archive   ResultArchive
	Renders   RenderLimiter
}

type Server struct {
	deps Dependencies
	cfg  config.Config
}

func New(deps Dependencies, cfg config.Config) *Server {
	return &Server{deps: deps, cfg: cfg}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJob)
	mux.HandleFunc("/webhook/cancel_job", s.handleCancelJob)
	mux.HandleFunc("/preview", s.handlePreview)
	mux.HandleFunc("/probe", s.handleProbe)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Queue.Ping(r.Context()); err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type extractReq struct {
	Source    string `json:"source"`
	ImagesDir string `json:"images_dir"`
	TextOnly  bool   `json:"text_only"`
}

type extractResp struct {
	Source string                 `json:"source"`
	Pages  []reader.ExtractedPage `json:"pages,omitempty"`
	Text   []string               `json:"text,omitempty"`
}

// handleExtract runs the pipeline synchronously within the request.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req extractReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}
	imagesDir := req.ImagesDir
	if imagesDir == "" {
		imagesDir = s.cfg.Extract.ImagesDir
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Extract.RequestTimeout)
	defer cancel()

	resp := extractResp{Source: req.Source}
	if req.TextOnly {
		text, err := s.deps.Extractor.ExtractText(ctx, req.Source)
		if err != nil {
			log.Error().Err(err).Str("source", req.Source).Msg("text extraction failed")
			http.Error(w, "extraction failed", http.StatusUnprocessableEntity)
			return
		}
		resp.Text = text
	} else {
		pages, err := s.deps.Extractor.ExtractTextAndImages(ctx, req.Source, imagesDir)
		if err != nil {
			log.Error().Err(err).Str("source", req.Source).Msg("extraction failed")
			http.Error(w, "extraction failed", http.StatusUnprocessableEntity)
			return
		}
		resp.Pages = pages
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type jobResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// handleJobs serves POST /jobs (create) and GET /jobs?source=... (lookup).
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createJob(w, r)
	case http.MethodGet:
		s.jobBySource(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// jobBySource resolves the most recent job created for a source reference.
func (s *Server) jobBySource(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}
	jobID, err := s.deps.Status.GetJobBySource(r.Context(), source)
	if err != nil {
		http.Error(w, "no job for source", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"job_id": jobID, "source": source})
}

// createJob enqueues an asynchronous extraction job.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req extractReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}
	imagesDir := req.ImagesDir
	if imagesDir == "" {
		imagesDir = s.cfg.Extract.ImagesDir
	}

	jobID := uuid.NewString()
	start := time.Now()
	_ = s.deps.Status.Set(r.Context(), jobID, store.Status{Status: "queued", Progress: 0, Message: "queued", Start: &start,
		Metadata: map[string]any{"source": req.Source, "images_dir": imagesDir, "text_only": req.TextOnly}})
	_ = s.deps.Status.SetSourceJobMapping(r.Context(), req.Source, jobID)

	payload := map[string]any{
		"job_id":          jobID,
		"source":          req.Source,
		"images_dir":      imagesDir,
		"text_only":       req.TextOnly,
		"idempotency_key": fmt.Sprintf("doc:%s", jobID),
		"attempt":         1,
	}
	data, _ := json.Marshal(payload)
	if err := s.deps.Queue.Enqueue(r.Context(), data); err != nil {
		log.Error().Err(err).Msg("enqueue failed")
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}

	log.Info().Str("job_id", jobID).Str("source", req.Source).Msg("job created")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(jobResp{Status: "ok", JobID: jobID, Message: "Extraction job created"})
}

// handleJob serves GET /jobs/{id}, GET /jobs/{id}/result and
// GET /jobs/{id}/pages/{n}.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id, ok := strings.CutSuffix(rest, "/result"); ok {
		s.serveResult(w, r, id)
		return
	}
	if id, pageStr, ok := strings.Cut(rest, "/pages/"); ok {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		s.servePage(w, r, id, page)
		return
	}
	s.serveStatus(w, r, rest)
}

// servePage returns one extracted page of a job, available as soon as the
// worker has persisted it.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, id string, page int) {
	ep, ok, err := s.deps.Results.GetPage(r.Context(), id, page)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "page not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ep)
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request, id string) {
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    st.Status == "success",
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
	})
}

func (s *Server) serveResult(w http.ResponseWriter, r *http.Request, id string) {
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.Status != "success" {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	pages, ok, err := s.deps.Results.GetResult(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		// The store entry expires; an uploaded copy may still exist.
		pages, ok = s.resultFromArchive(r.Context(), id, st)
	}
	if !ok {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(extractResp{Source: sourceFromMeta(st.Metadata), Pages: pages})
}

func (s *Server) resultFromArchive(ctx context.Context, id string, st store.Status) ([]reader.ExtractedPage, bool) {
	if s.deps.Archive == nil || st.Metadata == nil {
		return nil, false
	}
	key, _ := st.Metadata["result_s3_key"].(string)
	if key == "" {
		return nil, false
	}
	data, _, err := s.deps.Archive.DownloadResult(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("job_id", id).Str("key", key).Msg("archived result fetch failed")
		return nil, false
	}
	var pages []reader.ExtractedPage
	if err := json.Unmarshal(data, &pages); err != nil {
		log.Warn().Err(err).Str("job_id", id).Str("key", key).Msg("archived result unreadable")
		return nil, false
	}
	return pages, true
}

func sourceFromMeta(m map[string]any) string {
	if m == nil {
		return ""
	}
	s, _ := m["source"].(string)
	return s
}

type cancelReq struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		http.Error(w, "missing job_id", http.StatusBadRequest)
		return
	}
	if err := s.deps.Queue.CancelJob(r.Context(), req.JobID); err != nil {
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}
	st, ok, _ := s.deps.Status.Get(r.Context(), req.JobID)
	if !ok {
		st = store.Status{}
	}
	st.Status = "cancelled"
	st.Progress = 0
	if req.Reason != "" {
		st.Message = fmt.Sprintf("Cancelled: %s", req.Reason)
	} else {
		st.Message = "Cancelled"
	}
	now := time.Now()
	st.End = &now
	_ = s.deps.Status.Set(r.Context(), req.JobID, st)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "job_id": req.JobID, "status": "cancelled"})
}

// handlePreview renders one page of the referenced document as PNG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	dpi := s.cfg.Extract.PreviewDPI
	if v := r.URL.Query().Get("dpi"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 600 {
			dpi = n
		}
	}
	mode := render.ColorRGB
	if r.URL.Query().Get("color") == "gray" {
		mode = render.ColorGray
	}

	if s.deps.Renders != nil {
		release, ok := s.deps.Renders.Allow("render", "preview")
		if !ok {
			http.Error(w, "too many concurrent renders", http.StatusTooManyRequests)
			return
		}
		defer release()
	}

	local, tmp, err := fetch.EnsureLocal(r.Context(), source)
	if err != nil {
		http.Error(w, "cannot resolve source", http.StatusBadRequest)
		return
	}
	if tmp != "" {
		defer os.Remove(tmp)
	}

	total, err := render.PageCount(local)
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("preview open failed")
		http.Error(w, "cannot open document", http.StatusUnprocessableEntity)
		return
	}
	if page < 1 || page > total {
		http.Error(w, fmt.Sprintf("page %d out of range 1..%d", page, total), http.StatusBadRequest)
		return
	}

	data, width, height, err := render.PagePNG(local, page, dpi, mode)
	if err != nil {
		log.Error().Err(err).Str("source", source).Int("page", page).Msg("preview render failed")
		http.Error(w, "render failed", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Image-Width", strconv.Itoa(width))
	w.Header().Set("X-Image-Height", strconv.Itoa(height))
	_, _ = w.Write(data)
}

// handleProbe samples the document's text layer and reports whether it is
// worth extracting or likely a scan.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}
	threshold := 0
	if v := r.URL.Query().Get("threshold"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			threshold = n
		}
	}

	local, tmp, err := fetch.EnsureLocal(r.Context(), source)
	if err != nil {
		http.Error(w, "cannot resolve source", http.StatusBadRequest)
		return
	}
	if tmp != "" {
		defer os.Remove(tmp)
	}

	_, diag, err := probe.HasExtractableText(local, threshold)
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("probe failed")
		http.Error(w, "probe failed", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(diag)
}
