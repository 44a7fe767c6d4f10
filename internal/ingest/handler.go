package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/pipeline"
	"github.com/andresuchdata/vendormetrics/internal/storage"
	"github.com/gorilla/mux"
)

// Handler exposes the ingestion surface over HTTP: upload a dataset CSV,
// pull datasets from object storage, trigger a metrics run, check status.
type Handler struct {
	ingestor  *Ingestor
	runner    *pipeline.Runner
	runs      *pipeline.Repository
	store     storage.ObjectStorage // nil when object storage is disabled
	uploadDir string
}

func NewHandler(ingestor *Ingestor, runner *pipeline.Runner, runs *pipeline.Repository, store storage.ObjectStorage, uploadDir string) *Handler {
	return &Handler{
		ingestor:  ingestor,
		runner:    runner,
		runs:      runs,
		store:     store,
		uploadDir: uploadDir,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ingest/upload", h.Upload).Methods("POST")
	router.HandleFunc("/api/ingest/pull", h.Pull).Methods("POST")
	router.HandleFunc("/api/ingest/jobs", h.ListJobs).Methods("GET")
	router.HandleFunc("/api/runs", h.TriggerRun).Methods("POST")
	router.HandleFunc("/api/runs/status", h.RunStatus).Methods("GET")
}

// Upload accepts a multipart CSV for one dataset, stores it under the
// upload directory and loads it.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	dataset, ok := ParseDatasetName(r.URL.Query().Get("dataset"))
	if !ok {
		http.Error(w, "dataset parameter must be one of: purchases, sales, begin_inventory, end_inventory, vendor_invoices", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file form field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	destPath := filepath.Join(h.uploadDir, string(dataset)+".csv")
	dest, err := os.Create(destPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		http.Error(w, fmt.Sprintf("failed to store upload: %v", err), http.StatusInternalServerError)
		return
	}
	dest.Close()

	job, err := h.ingestor.IngestFile(r.Context(), dataset, destPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"dataset":      string(dataset),
		"job_id":       job.ID,
		"row_count":    job.RowCount,
		"reject_count": job.RejectCount,
	})
}

// Pull downloads dataset CSVs for a prefix from object storage into the
// upload directory, then ingests them.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "object storage is not configured", http.StatusServiceUnavailable)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	objects, err := h.store.ListObjects(r.Context(), prefix)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list objects: %v", err), http.StatusInternalServerError)
		return
	}

	downloaded := 0
	for _, obj := range objects {
		if !strings.EqualFold(filepath.Ext(obj.Key), ".csv") {
			continue
		}
		destPath := filepath.Join(h.uploadDir, filepath.Base(obj.Key))
		if err := h.store.DownloadObject(r.Context(), obj.Key, destPath); err != nil {
			http.Error(w, fmt.Sprintf("failed to download %s: %v", obj.Key, err), http.StatusInternalServerError)
			return
		}
		downloaded++
	}

	if downloaded == 0 {
		http.Error(w, "no CSV objects found for prefix", http.StatusNotFound)
		return
	}

	summary, err := h.ingestor.IngestDir(r.Context(), h.uploadDir)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ListJobs returns recent ingest jobs, optionally filtered by dataset.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	dataset := ""
	if raw := r.URL.Query().Get("dataset"); raw != "" {
		parsed, ok := ParseDatasetName(raw)
		if !ok {
			http.Error(w, "unknown dataset", http.StatusBadRequest)
			return
		}
		dataset = string(parsed)
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.runs.ListIngestJobs(r.Context(), dataset, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// TriggerRun recomputes brand metrics for the requested period.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	periodStart, err := time.Parse("2006-01-02", r.URL.Query().Get("period_start"))
	if err != nil {
		http.Error(w, "period_start must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	periodEnd, err := time.Parse("2006-01-02", r.URL.Query().Get("period_end"))
	if err != nil {
		http.Error(w, "period_end must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if periodEnd.Before(periodStart) {
		http.Error(w, "period_end must not be before period_start", http.StatusBadRequest)
		return
	}

	report, err := h.runner.Run(r.Context(), periodStart, periodEnd)
	if err != nil {
		http.Error(w, fmt.Sprintf("metrics run failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// RunStatus returns the tracking record for one run.
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("run_id"), 10, 64)
	if err != nil {
		http.Error(w, "run_id parameter is required", http.StatusBadRequest)
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
