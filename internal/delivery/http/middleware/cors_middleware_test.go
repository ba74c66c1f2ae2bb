package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSAllowList(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	cases := []struct {
		name    string
		allowed []string
		origin  string
		method  string
		want    string
		status  int
	}{
		{"default allows any", nil, "https://desk.example", http.MethodGet, "*", http.StatusTeapot},
		{"listed origin", []string{"https://desk.example", " https://tv.example"}, "https://tv.example", http.MethodGet, "https://tv.example", http.StatusTeapot},
		{"unlisted origin", []string{"https://desk.example"}, "https://evil.example", http.MethodGet, "", http.StatusTeapot},
		{"preflight", []string{"https://desk.example"}, "https://desk.example", http.MethodOptions, "https://desk.example", http.StatusOK},
	}
	for _, tt := range cases {
		req := httptest.NewRequest(tt.method, "/api/v1/queue", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		NewCORSMiddleware(tt.allowed).Handle(next).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Fatalf("%s: allow-origin=%q, want %q", tt.name, got, tt.want)
		}
		if rec.Code != tt.status {
			t.Fatalf("%s: status=%d, want %d", tt.name, rec.Code, tt.status)
		}
	}
}
