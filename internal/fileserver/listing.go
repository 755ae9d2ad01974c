package fileserver

import (
	"bytes"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// listingEntry is one line of a directory listing.
type listingEntry struct {
	// Href is the escaped link target, relative to the listed directory.
	Href string
	// Display is the unescaped text shown for the entry.
	Display string
	// key orders entries case-insensitively.
	key string
}

func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, dir http.File, name, upath string) {
	infos, err := dir.Readdir(-1)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			http.Error(w, "No permission to list directory", http.StatusForbidden)
			return
		}
		log.Printf("Error listing %s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entries := h.listingEntries(name, infos)

	var buf bytes.Buffer
	if err := renderListing(&buf, upath, entries); err != nil {
		log.Printf("Error rendering listing for %s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}

// listingEntries converts directory contents into sorted listing entries.
//
// Directories link with a trailing slash. Symlinks are shown with a trailing
// "@"; a symlink to a directory still links with a trailing slash.
func (h *Handler) listingEntries(dir string, infos []fs.FileInfo) []listingEntry {
	fold := cases.Fold()
	entries := make([]listingEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		display, link := name, name

		isDir := fi.IsDir()
		if fi.Mode()&fs.ModeSymlink != 0 {
			isDir = h.isDir(path.Join(dir, name))
		}
		if isDir {
			display = name + "/"
			link = name + "/"
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			display = name + "@"
		}

		entries = append(entries, listingEntry{
			Href:    escapeHref(link),
			Display: display,
			key:     fold.String(name),
		})
	}

	slices.SortFunc(entries, func(a, b listingEntry) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
		return strings.Compare(a.Display, b.Display)
	})
	return entries
}

// isDir reports whether name resolves to a directory, following symlinks.
func (h *Handler) isDir(name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	return err == nil && fi.IsDir()
}

// escapeHref escapes a relative link target. Colons are escaped too so that
// a name like "a:b" is not read as a URL scheme.
func escapeHref(link string) string {
	trailing := strings.HasSuffix(link, "/")
	link = strings.TrimSuffix(link, "/")
	escaped := strings.ReplaceAll(url.PathEscape(link), ":", "%3A")
	if trailing {
		escaped += "/"
	}
	return escaped
}

// renderListing writes an HTML directory listing for displayPath.
func renderListing(buf *bytes.Buffer, displayPath string, entries []listingEntry) error {
	title := "Directory listing for " + displayPath

	list := element(atom.Ul, nil, text("\n"))
	for _, e := range entries {
		a := element(atom.A, []html.Attribute{{Key: "href", Val: e.Href}}, text(e.Display))
		list.AppendChild(element(atom.Li, nil, a))
		list.AppendChild(text("\n"))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(text("\n"))
	doc.AppendChild(element(atom.Html, []html.Attribute{{Key: "lang", Val: "en"}},
		text("\n"),
		element(atom.Head, nil,
			text("\n"),
			element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
			text("\n"),
			element(atom.Title, nil, text(title)),
			text("\n"),
		),
		text("\n"),
		element(atom.Body, nil,
			text("\n"),
			element(atom.H1, nil, text(title)),
			text("\n"),
			element(atom.Hr, nil),
			text("\n"),
			list,
			text("\n"),
			element(atom.Hr, nil),
			text("\n"),
		),
		text("\n"),
	))
	doc.AppendChild(text("\n"))

	return html.Render(buf, doc)
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
