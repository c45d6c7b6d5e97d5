package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		status   int
		wantType string
	}{
		{http.StatusBadRequest, "https://fillwatch.dev/problems/bad-request"},
		{http.StatusNotFound, "https://fillwatch.dev/problems/not-found"},
		{http.StatusServiceUnavailable, "https://fillwatch.dev/problems/unavailable"},
		{http.StatusTeapot, "about:blank"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.status, "detail", "/api/v1/spc/chart")

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var p Problem
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if p.Type != tt.wantType || p.Status != tt.status || p.Title != http.StatusText(tt.status) {
				t.Errorf("problem = %+v", p)
			}
			if p.Instance != "/api/v1/spc/chart" {
				t.Errorf("instance = %q", p.Instance)
			}
		})
	}
}
