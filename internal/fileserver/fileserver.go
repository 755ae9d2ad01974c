// Package fileserver serves a directory tree over HTTP.
//
// It follows the conventions of simple development servers: directories are
// redirected to their slash-terminated form, index.html or index.htm is served
// for a directory when present, and a plain listing is rendered otherwise.
// Files are served byte for byte with a content type taken from their
// extension; content is never sniffed.
package fileserver

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// indexFiles are tried in order when a directory is requested.
var indexFiles = []string{"index.html", "index.htm"}

// Handler serves files below a root directory.
type Handler struct {
	root http.FileSystem
}

// New returns a Handler serving the directory tree rooted at root.
// Request paths are cleaned before use, so ".." segments never climb above
// root.
func New(root string) *Handler {
	return &Handler{root: http.Dir(root)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, fmt.Sprintf("Unsupported method ('%s')", r.Method), http.StatusNotImplemented)
		return
	}

	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	name := path.Clean(upath)

	f, err := h.root.Open(name)
	if err != nil {
		openError(w, err)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		ioError(w, name, err)
		return
	}

	if fi.IsDir() {
		if !strings.HasSuffix(upath, "/") {
			redirectToDir(w, r, name)
			return
		}
		if h.serveIndex(w, r, name) {
			return
		}
		h.serveListing(w, r, f, name, upath)
		return
	}

	// A trailing slash names a directory; a file cannot satisfy it.
	if strings.HasSuffix(upath, "/") {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	serveFile(w, r, f, fi)
}

// serveIndex serves the first index document found in dir and reports
// whether a response was written. An index that exists but cannot be read
// is answered with an error rather than a listing of the directory.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, dir string) bool {
	for _, index := range indexFiles {
		name := path.Join(dir, index)
		f, err := h.root.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			openError(w, err)
			return true
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			ioError(w, name, err)
			return true
		}
		if fi.IsDir() {
			f.Close()
			continue
		}
		serveFile(w, r, f, fi)
		f.Close()
		return true
	}
	return false
}

func serveFile(w http.ResponseWriter, r *http.Request, f http.File, fi fs.FileInfo) {
	w.Header().Set("Content-Type", contentType(fi.Name()))
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

// redirectToDir sends the client to the slash-terminated form of a
// directory path, keeping the query string. The target is built from the
// cleaned path so that it can never become a scheme-relative URL.
func redirectToDir(w http.ResponseWriter, r *http.Request, name string) {
	target := &url.URL{Path: name + "/", RawQuery: r.URL.RawQuery}
	w.Header().Set("Location", target.String())
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusMovedPermanently)
}

// openError reports a failure to open the requested name. Anything other
// than a permission problem means the name does not resolve to a file.
func openError(w http.ResponseWriter, err error) {
	if errors.Is(err, fs.ErrPermission) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	http.Error(w, "File not found", http.StatusNotFound)
}

func ioError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, "File not found", http.StatusNotFound)
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		log.Printf("Error serving %s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
