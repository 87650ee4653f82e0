package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/sellerdash/internal/logging"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no trusted proxies ignores header", nil, "10.0.0.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.5:4000"},
		{"trusted CIDR uses X-Real-IP", []string{"10.0.0.0/8"}, "10.0.0.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single address", []string{"10.0.0.5"}, "10.0.0.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"untrusted peer keeps addr", []string{"10.0.0.0/8"}, "192.168.1.9:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.9:4000"},
		{"first forwarded hop", []string{"10.0.0.0/8"}, "10.0.0.5:4000", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.2"}, "5.6.7.8"},
		{"garbage header ignored", []string{"10.0.0.0/8"}, "10.0.0.5:4000", map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.5:4000"},
		{"invalid trusted entry skipped", []string{"nonsense", "10.0.0.0/8"}, "10.0.0.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWriter(&buf, "debug", "json")
	t.Cleanup(func() { logging.Setup("info", "text") })

	h := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x", nil))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 404", entry["level"])
	}
	if entry["status"] != float64(404) || entry["bytes"] != float64(7) || entry["path"] != "/api/x" {
		t.Errorf("unexpected log fields: %v", entry)
	}
	if entry["request_id"] == nil || entry["request_id"] == "" {
		t.Error("request_id missing from log line")
	}
}
