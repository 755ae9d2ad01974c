package server

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var urlColor = color.New(color.FgGreen, color.Bold)

// PrintBanner writes the single startup line announcing the server URL.
// Colour is only emitted when the process output is a terminal.
func (s *Server) PrintBanner(w io.Writer) {
	fmt.Fprintf(w, "Serving on %s\n", urlColor.Sprint(s.URL()))
}
