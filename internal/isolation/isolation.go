// Package isolation adds the cross-origin isolation headers to HTTP responses.
//
// Browsers only enable SharedArrayBuffer and high resolution timers for
// documents served with a same-origin opener policy and a require-corp
// embedder policy. Every response that passes through Wrap carries both,
// plus a cross-origin resource policy so that subresources can be embedded
// by isolated documents on other ports.
package isolation

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
)

// Header names and their fixed values.
const (
	OpenerPolicyHeader   = "Cross-Origin-Opener-Policy"
	OpenerPolicy         = "same-origin"
	EmbedderPolicyHeader = "Cross-Origin-Embedder-Policy"
	EmbedderPolicy       = "require-corp"
	ResourcePolicyHeader = "Cross-Origin-Resource-Policy"
	ResourcePolicy       = "cross-origin"
)

var fixed = [...][2]string{
	{OpenerPolicyHeader, OpenerPolicy},
	{EmbedderPolicyHeader, EmbedderPolicy},
	{ResourcePolicyHeader, ResourcePolicy},
}

// Headers returns a fresh copy of the headers added to every response.
func Headers() http.Header {
	h := make(http.Header, len(fixed))
	apply(h)
	return h
}

func apply(h http.Header) {
	for _, kv := range fixed {
		h.Set(kv[0], kv[1])
	}
}

// Wrap returns a handler that sets the isolation headers on every response
// produced by h, immediately before the status line is committed.
//
// A handler that returns without writing gets an empty 200. A panic before
// the response is committed becomes a 500; after that point the connection
// is aborted.
func Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iw := &responseWriter{ResponseWriter: w}
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
				if iw.committed {
					panic(http.ErrAbortHandler)
				}
				http.Error(iw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !iw.committed {
				iw.WriteHeader(http.StatusOK)
			}
		}()
		h.ServeHTTP(iw, r)
	})
}

// responseWriter injects the headers on the first final status.
type responseWriter struct {
	http.ResponseWriter
	committed bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.committed {
		// Let net/http report the superfluous call.
		w.ResponseWriter.WriteHeader(code)
		return
	}
	apply(w.ResponseWriter.Header())
	// 1xx responses other than 101 may be followed by the final status.
	if code >= 200 || code == http.StatusSwitchingProtocols {
		w.committed = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// ReadFrom keeps the sendfile path of the underlying writer reachable.
func (w *responseWriter) ReadFrom(src io.Reader) (int64, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return io.Copy(w.ResponseWriter, src)
}

func (w *responseWriter) Flush() {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("isolation: underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
