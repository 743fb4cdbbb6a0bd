package httpadapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuditRoute(t *testing.T) {
	tests := []struct {
		path    string
		route   string
		auditID string
	}{
		{path: "/v1/audits/a-1", route: "/v1/audits/{audit_id}", auditID: "a-1"},
		{path: "/v1/audits/a-1/complete", route: "/v1/audits/{audit_id}/complete", auditID: "a-1"},
		{path: "/v1/audits", route: "/v1/audits"},
		{path: "/v1/audits/", route: "/v1/audits/"},
		{path: "/v1/statistics", route: "/v1/statistics"},
	}
	for _, tt := range tests {
		route, auditID := auditRoute(tt.path)
		if route != tt.route || auditID != tt.auditID {
			t.Fatalf("auditRoute(%q) = (%q, %q), want (%q, %q)", tt.path, route, auditID, tt.route, tt.auditID)
		}
	}
}

func TestRequestIDMiddlewareKeepsIncomingID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen != "req-42" {
		t.Fatalf("expected request id in context, got %q", seen)
	}
	if res.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected echoed request id, got %q", res.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDMiddlewareReplacesUnsafeID(t *testing.T) {
	tests := map[string]string{
		"control chars": "abc\tdef",
		"too long":      strings.Repeat("a", maxRequestIDLength+1),
		"spaces":        "drop table",
	}
	for name, incoming := range tests {
		t.Run(name, func(t *testing.T) {
			var seen string
			handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = requestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("X-Request-ID", incoming)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seen == "" || seen == strings.TrimSpace(incoming) {
				t.Fatalf("expected a generated request id, got %q", seen)
			}
		})
	}
}

func TestAccessLogUsesRouteTemplateAndAuditID(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{}`))
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/audits/a-7/complete", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["route"] != "/v1/audits/{audit_id}/complete" {
		t.Fatalf("unexpected route %v", entry["route"])
	}
	if entry["audit_id"] != "a-7" {
		t.Fatalf("unexpected audit_id %v", entry["audit_id"])
	}
	if entry["level"] != "WARN" || entry["status"] != float64(http.StatusConflict) || entry["bytes"] != float64(2) {
		t.Fatalf("unexpected log entry %v", entry)
	}
}
