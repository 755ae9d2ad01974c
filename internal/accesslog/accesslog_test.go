package accesslog

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWrap(t *testing.T) {
	fixed := time.Date(2026, time.October, 19, 9, 5, 7, 0, time.Local)

	tests := []struct {
		name    string
		target  string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:   "Implicit OK",
			target: "/index.html",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "hello")
			},
			want: `192.0.2.1 - - [19/Oct/2026 09:05:07] "GET /index.html HTTP/1.1" 200 -` + "\n",
		},
		{
			name:    "Not found with query",
			target:  "/missing.txt?v=2",
			handler: http.NotFound,
			want:    `192.0.2.1 - - [19/Oct/2026 09:05:07] "GET /missing.txt?v=2 HTTP/1.1" 404 -` + "\n",
		},
		{
			name:    "Nothing written",
			target:  "/",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    `192.0.2.1 - - [19/Oct/2026 09:05:07] "GET / HTTP/1.1" 200 -` + "\n",
		},
		{
			name:   "First status wins",
			target: "/dir",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusMovedPermanently)
				w.WriteHeader(http.StatusOK)
			},
			want: `192.0.2.1 - - [19/Oct/2026 09:05:07] "GET /dir HTTP/1.1" 301 -` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf)
			l.now = func() time.Time { return fixed }

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			l.Wrap(tt.handler).ServeHTTP(httptest.NewRecorder(), req)

			if got := buf.String(); got != tt.want {
				t.Errorf("log line = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientHost(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"[::1]:8080", "::1"},
		{"pipe", "pipe"},
	}
	for _, tt := range tests {
		if got := clientHost(tt.addr); got != tt.want {
			t.Errorf("clientHost(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
