package isolation

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestInjectServerReply(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		inject bool
	}{
		{
			name:   "Missing Host",
			in:     "HTTP/1.1 400 Bad Request: missing required Host header" + serverErrorHeaders + "400 Bad Request: missing required Host header",
			inject: true,
		},
		{
			name:   "Headers too large",
			in:     "HTTP/1.1 431 Request Header Fields Too Large" + serverErrorHeaders + "431 Request Header Fields Too Large",
			inject: true,
		},
		{
			name:   "Unsupported transfer encoding",
			in:     "HTTP/1.1 501 Not Implemented" + serverErrorHeaders + "Unsupported transfer encoding",
			inject: true,
		},
		{
			name:   "Expectation failed",
			in:     "HTTP/1.1 417 Expectation Failed\r\nConnection: close\r\nContent-Length: 0\r\nDate: Mon, 19 Oct 2026 10:00:00 GMT\r\n\r\n",
			inject: true,
		},
		{
			name:   "Handler reply",
			in:     "HTTP/1.1 404 Not Found\r\nCross-Origin-Opener-Policy: same-origin\r\nContent-Type: text/plain; charset=utf-8\r\nConnection: close\r\n\r\nFile not found\n",
			inject: false,
		},
		{
			name:   "Reply with other headers",
			in:     "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello",
			inject: false,
		},
		{
			name:   "417 with trailing bytes",
			in:     "HTTP/1.1 417 Expectation Failed\r\nContent-Length: 2\r\n\r\nhi",
			inject: false,
		},
		{
			name:   "Body chunk",
			in:     "plain file bytes\r\n\r\n",
			inject: false,
		},
		{
			name:   "Incomplete header block",
			in:     "HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain",
			inject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := injectServerReply([]byte(tt.in))
			if ok != tt.inject {
				t.Fatalf("injectServerReply() ok = %v, want %v", ok, tt.inject)
			}
			if !ok {
				return
			}
			resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(out)), nil)
			if err != nil {
				t.Fatalf("rewritten reply does not parse: %v\n%s", err, out)
			}
			defer resp.Body.Close()
			assertHeaders(t, resp.Header)

			inLine, _, _ := strings.Cut(tt.in, "\r\n")
			outLine, _, _ := strings.Cut(string(out), "\r\n")
			if inLine != outLine {
				t.Errorf("status line changed: %q -> %q", inLine, outLine)
			}
			_, inBody, _ := strings.Cut(tt.in, "\r\n\r\n")
			_, outBody, _ := strings.Cut(string(out), "\r\n\r\n")
			if inBody != outBody {
				t.Errorf("body changed: %q -> %q", inBody, outBody)
			}
		})
	}
}

func TestListenerRawRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen failed: %v", err)
	}
	srv := &http.Server{Handler: Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))}
	go srv.Serve(Listener(ln))
	defer srv.Close()

	tests := []struct {
		name       string
		request    string
		wantStatus int
	}{
		{
			name:       "No Host header",
			request:    "GET / HTTP/1.1\r\n\r\n",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Unsupported Expect",
			request:    "GET / HTTP/1.1\r\nHost: localhost\r\nExpect: bogus\r\n\r\n",
			wantStatus: http.StatusExpectationFailed,
		},
		{
			name:       "Handled request",
			request:    "GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := net.Dial("tcp", ln.Addr().String())
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer c.Close()
			c.SetDeadline(time.Now().Add(5 * time.Second))

			if _, err := c.Write([]byte(tt.request)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			resp, err := http.ReadResponse(bufio.NewReader(c), nil)
			if err != nil {
				t.Fatalf("ReadResponse failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			assertHeaders(t, resp.Header)
		})
	}
}
