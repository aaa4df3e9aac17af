package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/archive"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func printSuccess(w io.Writer, res *archive.Result) {
	_, _ = green.Fprintf(w, "ZIP file '%s' was created in %s\n", filepath.Base(res.Path), filepath.Dir(res.Path))
	_, _ = fmt.Fprintf(w, "  %d entries, %d bytes\n", len(res.Entries), res.Bytes)
	for _, s := range res.Skipped {
		_, _ = yellow.Fprintf(w, "  skipped %s (%s)\n", s.Path, s.Reason)
	}
}

func printFailure(w io.Writer, err error) {
	switch {
	case apperr.IsValidation(err):
		_, _ = red.Fprintf(w, "invalid input: %v\n", err)
	case apperr.IsDirectoryCreation(err):
		_, _ = red.Fprintf(w, "could not create the output folder: %v\n", err)
	case apperr.IsBusy(err):
		_, _ = red.Fprintf(w, "a build is already running: %v\n", err)
	default:
		_, _ = red.Fprintf(w, "error: %v\n", err)
	}
}
