package isolation

import (
	"bytes"
	"io"
	"net"
)

// net/http answers some malformed requests itself, before any handler runs:
// a missing Host, oversized headers, unsupported transfer codings. Those
// replies are written to the connection in a single call, with a status
// line followed by exactly these headers.
const serverErrorHeaders = "\r\nContent-Type: text/plain; charset=utf-8\r\nConnection: close\r\n\r\n"

// Listener wraps ln so that error replies written by net/http itself carry
// the isolation headers too. Responses produced through Wrap pass through
// untouched.
func Listener(ln net.Listener) net.Listener {
	return &listener{Listener: ln}
}

type listener struct {
	net.Listener
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &conn{Conn: c}, nil
}

type conn struct {
	net.Conn
}

func (c *conn) Write(p []byte) (int, error) {
	out, ok := injectServerReply(p)
	if !ok {
		return c.Conn.Write(p)
	}
	if _, err := c.Conn.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadFrom keeps sendfile available for response bodies.
func (c *conn) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(c.Conn, r)
}

// CloseWrite lets net/http half-close the connection after an error reply.
func (c *conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// injectServerReply returns p with the isolation headers added when p is a
// complete reply generated by net/http rather than by a handler: either one
// of its plain-text error replies, or the bodiless 417 it sends for an
// unsupported Expect header.
func injectServerReply(p []byte) ([]byte, bool) {
	if !bytes.HasPrefix(p, []byte("HTTP/1.1 ")) {
		return nil, false
	}
	end := bytes.Index(p, []byte("\r\n\r\n"))
	if end < 0 {
		return nil, false
	}
	if bytes.Contains(p[:end+2], []byte("\r\n"+OpenerPolicyHeader+":")) {
		return nil, false
	}

	line := bytes.Index(p, []byte("\r\n"))
	switch {
	case bytes.HasPrefix(p[line:], []byte(serverErrorHeaders)):
	case bytes.HasPrefix(p, []byte("HTTP/1.1 417 ")) && end+4 == len(p):
	default:
		return nil, false
	}

	out := make([]byte, 0, len(p)+128)
	out = append(out, p[:line+2]...)
	for _, kv := range fixed {
		out = append(out, kv[0]...)
		out = append(out, ": "...)
		out = append(out, kv[1]...)
		out = append(out, "\r\n"...)
	}
	out = append(out, p[line+2:]...)
	return out, true
}
