package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/ports"
)

// AuditObserver receives domain events of the API for metrics.
type AuditObserver interface {
	RecordAnswerSaved(kind string)
	RecordValidationFailure(reason string)
	RecordCompletion(outcome string, score float64)
}

// MetricsRecorder instruments requests and exposes the scrape endpoint.
type MetricsRecorder interface {
	AuditObserver
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type Router struct {
	cfg     config.Config
	audits  ports.AuditService
	stats   ports.StatisticsService
	metrics MetricsRecorder
}

type RouterOption func(*Router)

func WithMetrics(metrics MetricsRecorder) RouterOption {
	return func(rt *Router) {
		rt.metrics = metrics
	}
}

func NewRouter(
	cfg config.Config,
	audits ports.AuditService,
	stats ports.StatisticsService,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:    cfg,
		audits: audits,
		stats:  stats,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/openapi.yaml", rt.openAPI)
	mux.HandleFunc("/v1/audits", rt.createAudit)
	mux.HandleFunc("/v1/audits/", rt.auditRoutes)
	mux.HandleFunc("/v1/statistics", rt.statistics)
	mux.HandleFunc("/v1/statistics/export", rt.exportStatistics)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = maxBodyMiddleware(handler, rt.cfg.APIMaxRequestBodyBytes)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureMaxWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createAuditRequest struct {
	FacilityID string `json:"facility_id"`
	TemplateID string `json:"template_id"`
	AuditorID  string `json:"auditor_id"`
	AuditDate  string `json:"audit_date"`
}

func (rt *Router) createAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req createAuditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	auditDate, err := parseOptionalDate("audit_date", req.AuditDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := ports.CreateAuditInput{
		FacilityID: req.FacilityID,
		TemplateID: req.TemplateID,
		AuditorID:  req.AuditorID,
	}
	if auditDate != nil {
		input.AuditDate = *auditDate
	}

	audit, err := rt.audits.CreateAudit(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, audit)
}

// auditRoutes dispatches /v1/audits/{audit_id}[/answers|/complete|/scores].
func (rt *Router) auditRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/audits/")
	auditID, action, _ := strings.Cut(rest, "/")
	if strings.TrimSpace(auditID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audit id is required"})
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.getAudit(w, r, auditID)
		case http.MethodPatch:
			rt.rescheduleAudit(w, r, auditID)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
	case "answers":
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		rt.saveAnswer(w, r, auditID)
	case "complete":
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		rt.completeAudit(w, r, auditID)
	case "scores":
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		rt.sectionScores(w, r, auditID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getAudit(w http.ResponseWriter, r *http.Request, auditID string) {
	audit, err := rt.audits.GetAudit(r.Context(), auditID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

func (rt *Router) rescheduleAudit(w http.ResponseWriter, r *http.Request, auditID string) {
	var req struct {
		AuditDate string `json:"audit_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	auditDate, err := parseOptionalDate("audit_date", req.AuditDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if auditDate == nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "reschedule", errors.New("audit_date is required")))
		return
	}

	audit, err := rt.audits.Reschedule(r.Context(), auditID, *auditDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

type saveAnswerRequest struct {
	QuestionID  string               `json:"question_id"`
	Kind        string               `json:"kind"`
	Explanation string               `json:"explanation"`
	Evidence    []domain.EvidenceRef `json:"evidence"`
}

func (rt *Router) saveAnswer(w http.ResponseWriter, r *http.Request, auditID string) {
	var req saveAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "save answer", errors.New("question_id is required")))
		return
	}

	answer, err := rt.audits.SaveAnswer(r.Context(), auditID, ports.SaveAnswerInput{
		QuestionID:  strings.TrimSpace(req.QuestionID),
		Kind:        domain.AnswerKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Explanation: req.Explanation,
		Evidence:    req.Evidence,
	})
	if err != nil {
		rt.recordValidationFailure(err)
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswerSaved(string(answer.Kind))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) completeAudit(w http.ResponseWriter, r *http.Request, auditID string) {
	result, err := rt.audits.Complete(r.Context(), auditID)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordCompletion(errorCode(err), 0)
		}
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCompletion("completed", result.TotalScore)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) sectionScores(w http.ResponseWriter, r *http.Request, auditID string) {
	report, err := rt.audits.SectionScores(r.Context(), auditID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	filter, err := parseStatisticsFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := rt.stats.Compute(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) exportStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.cfg.StatisticsExportEnabled {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "statistics export is disabled"})
		return
	}

	filter, err := parseStatisticsFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	contentType, err := rt.stats.Export(r.Context(), filter, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statistics-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) recordValidationFailure(err error) {
	if rt.metrics == nil {
		return
	}
	switch code := errorCode(err); code {
	case "missing_explanation", "missing_evidence", "invalid_answer_kind", "invalid_input":
		rt.metrics.RecordValidationFailure(code)
	}
}

func parseStatisticsFilter(r *http.Request) (domain.StatisticsFilter, error) {
	query := r.URL.Query()
	filter := domain.StatisticsFilter{
		FacilityID: strings.TrimSpace(query.Get("facility_id")),
	}

	var err error
	if filter.StartDate, err = parseOptionalDay("from", query.Get("from")); err != nil {
		return domain.StatisticsFilter{}, err
	}
	if filter.EndDate, err = parseOptionalDay("to", query.Get("to")); err != nil {
		return domain.StatisticsFilter{}, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return domain.StatisticsFilter{}, domain.WrapError(domain.ErrInvalidInput, "statistics filter", errors.New("from must not be after to"))
	}
	return filter, nil
}

// parseOptionalDate accepts YYYY-MM-DD or RFC 3339. Blank yields nil.
func parseOptionalDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "parse date", fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value))
}

// parseOptionalDay is parseOptionalDate truncated to the UTC day, so
// timestamps bound statistics by whole calendar days.
func parseOptionalDay(field, value string) (*time.Time, error) {
	t, err := parseOptionalDate(field, value)
	if err != nil || t == nil {
		return t, err
	}
	day := domain.DayOf(*t)
	return &day, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("body exceeds %d bytes", maxBytes.Limit))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
