package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/medassist/claim-processor/internal/config"
	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
	"github.com/medassist/claim-processor/internal/observability/metrics"
)

const maxUploadBytes = 32 << 20

// ClaimProcessor runs the full pipeline synchronously.
type ClaimProcessor interface {
	Process(ctx context.Context, uploads []domain.Upload) domain.ClaimResult
}

// ClaimSubmitter accepts a claim for asynchronous processing.
type ClaimSubmitter interface {
	Submit(ctx context.Context, uploads []domain.Upload) (*domain.Claim, error)
}

type Router struct {
	cfg       config.Config
	service   string
	processor ClaimProcessor
	submitter ClaimSubmitter
	repo      ports.ClaimRepository
	renderer  ports.ReportRenderer
	metrics   *metrics.HTTPServerMetrics
	log       *slog.Logger
}

func NewRouter(
	cfg config.Config,
	service string,
	processor ClaimProcessor,
	submitter ClaimSubmitter,
	repo ports.ClaimRepository,
	renderer ports.ReportRenderer,
	m *metrics.HTTPServerMetrics,
	log *slog.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		service:   service,
		processor: processor,
		submitter: submitter,
		repo:      repo,
		renderer:  renderer,
		metrics:   m,
		log:       log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/claims/process", rt.processClaim)
	mux.HandleFunc("/v1/claims", rt.submitClaim)
	mux.HandleFunc("/v1/claims/", rt.claimByID)

	limiter := rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), rt.cfg.APIRateLimitBurst)
	handler := backpressureMiddleware(mux, rt.cfg.APIMaxInFlight, time.Second)
	handler = rateLimitMiddleware(handler, limiter, func(path string) {
		rt.metrics.RecordRateLimited(rt.service, path)
	})
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	uploads, err := readUploads(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	result := rt.processor.Process(r.Context(), uploads)
	rt.metrics.RecordClaimProcessed(rt.service, string(result.Decision.Status), len(uploads), time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	uploads, err := readUploads(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	claim, err := rt.submitter.Submit(r.Context(), uploads)
	if err != nil {
		rt.log.Error("claim submission failed", "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":         claim.ID,
		"status":     claim.Status,
		"documents":  len(claim.Documents),
		"created_at": claim.CreatedAt,
	})
}

func (rt *Router) claimByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/claims/")
	id, wantReport := strings.CutSuffix(rest, "/report")
	id = strings.Trim(id, "/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "claim id is required"})
		return
	}

	claim, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if !wantReport {
		writeJSON(w, http.StatusOK, claim)
		return
	}
	rt.writeReport(w, claim)
}

func (rt *Router) writeReport(w http.ResponseWriter, claim *domain.Claim) {
	if claim.Status != domain.ClaimProcessed || claim.Result == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("claim %s is not processed yet (status %s)", claim.ID, claim.Status),
		})
		return
	}

	report, err := rt.renderer.Render(*claim.Result)
	if err != nil {
		rt.log.Error("report rendering failed", "claim_id", claim.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report rendering failed"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "claim-"+claim.ID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

// readUploads collects the multipart "documents" parts. The legacy single
// "file" field is accepted as well.
func readUploads(r *http.Request) ([]domain.Upload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("multipart form is required: %w", err)
	}

	headers := r.MultipartForm.File["documents"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("multipart field 'documents' is required")
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file %q: %w", header.Filename, err)
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read uploaded file %q: %w", header.Filename, err)
		}
		uploads = append(uploads, domain.Upload{Filename: header.Filename, Data: data})
	}
	return uploads, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
