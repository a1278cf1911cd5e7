package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/report"
)

const defaultHistoryLimit = 50

var (
	errBusy           = errors.New("too many audits running, retry later")
	errInvalidLimit   = errors.New("limit must be a non-negative integer")
	errMissingPageURL = errors.New("url query parameter is required")
)

// createAuditRequest is the body of POST /api/audits.
type createAuditRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`

	// Wait runs the audit within the request instead of as a job.
	Wait bool `json:"wait"`
}

// failedAuditResponse is returned when a synchronous audit fails.
type failedAuditResponse struct {
	Error string       `json:"error"`
	Audit *model.Audit `json:"audit,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req createAuditRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	target := config.NormalizeTarget(req.URL)
	if err := config.ValidateTarget(target); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MaxPages < 0 || req.MaxPages > s.maxPages {
		writeError(w, http.StatusBadRequest, fmt.Errorf("max_pages must be between 0 and %d", s.maxPages))
		return
	}

	if !s.slots.TryAcquire(1) {
		writeError(w, http.StatusTooManyRequests, errBusy)
		return
	}

	if req.Wait {
		defer s.slots.Release(1)
		ctx, cancel := context.WithTimeout(r.Context(), s.auditTimeout)
		defer cancel()

		audit, err := s.audit(ctx, target, req.MaxPages, nil)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, failedAuditResponse{Error: err.Error(), Audit: audit})
			return
		}
		writeJSON(w, http.StatusOK, audit)
		return
	}

	job := s.jobs.create(target, req.MaxPages)
	go s.runJob(job.ID, target, req.MaxPages)

	w.Header().Set("Location", "/api/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, job)
}

// runJob runs one asynchronous audit and holds an audit slot until it ends.
func (s *Server) runJob(id uuid.UUID, target string, maxPages int) {
	defer s.slots.Release(1)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.auditTimeout)
	defer cancel()

	logger := s.logger.With("job_id", id.String(), "url", target)
	logger.Info("audit job started")

	audit, err := s.audit(ctx, target, maxPages, s.jobs.sink(id))
	auditID := uuid.Nil
	if audit != nil {
		auditID = audit.ID
	}
	s.jobs.finish(id, auditID, err)

	if err != nil {
		logger.Warn("audit job failed", "error", err)
		return
	}
	logger.Info("audit job finished", "audit_id", auditID.String())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return
	}
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	briefs, err := s.store.History(r.Context(), r.URL.Query().Get("host"), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, briefs)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.store.FindAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

// handleAuditReport renders a stored audit with one of the report writers.
func (s *Server) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	audit, err := s.store.FindAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var (
		buf         bytes.Buffer
		writer      report.Writer
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		writer = report.NewMarkdownWriter(&buf)
		contentType = "text/markdown; charset=utf-8"
	case "json":
		writer = report.NewJSONWriter(&buf, report.WithPrettyPrint())
		contentType = "application/json"
	case "text":
		writer = report.NewSimpleWriter(&buf, report.WithVerbose(true))
		contentType = "text/plain; charset=utf-8"
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown report format %q: must be markdown, json or text", format))
		return
	}

	if _, err := writer.Write(audit); err != nil {
		s.logger.Error("failed to render report", "audit_id", audit.ID.String(), "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to render report"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDeleteAudit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("deleting requires a full audit id: %w", err))
		return
	}
	if err := s.store.DeleteAudit(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.store.ListHosts(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) handlePageTrend(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, errMissingPageURL)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snapshots, err := s.store.PageTrend(r.Context(), pageURL, limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// queryLimit reads the limit query parameter. Zero means no limit.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errInvalidLimit
	}
	return limit, nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, database.ErrAmbiguousID):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("history query failed"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // the client may be gone
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
