package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bitrise-io/go-fileupload/upload/network"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Listing texts.
const (
	ListingErrorMessage = "Failed to load files"
	ListingEmptyMessage = "👋 Oh, seems like you haven't got any files yet. Let's change that!"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// ListedFile is a remote file prepared for display.
type ListedFile struct {
	Name string
	Size int64
}

// DisplaySize is the human readable size of the file.
func (f ListedFile) DisplaySize() string {
	return FormatBytes(f.Size)
}

// Listing loads and renders the files already stored by the receiving side.
type Listing struct {
	lister network.Lister
	logger log.Logger
}

// NewListing ...
func NewListing(lister network.Lister, logger log.Logger) *Listing {
	return &Listing{lister: lister, logger: logger}
}

// Load fetches the current listing.
func (l *Listing) Load(ctx context.Context) ([]ListedFile, error) {
	remoteFiles, err := l.lister.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	files := make([]ListedFile, 0, len(remoteFiles))
	for _, f := range remoteFiles {
		files = append(files, ListedFile{Name: f.Name, Size: f.Size})
	}
	return files, nil
}

// Render writes one line per file, the empty text when there are none, or the failure
// text when the listing could not be loaded. Only a write failure is returned.
func (l *Listing) Render(ctx context.Context, w io.Writer) error {
	files, err := l.Load(ctx)
	if err != nil {
		l.logger.Debugf("Loading file list failed: %s", err)
		_, werr := fmt.Fprintln(w, ListingFailureMessage(err))
		return werr
	}

	if len(files) == 0 {
		_, err := fmt.Fprintln(w, ListingEmptyMessage)
		return err
	}

	for _, f := range files {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", f.Name, f.DisplaySize()); err != nil {
			return err
		}
	}
	return nil
}

// ListingFailureMessage returns the server supplied message of a failed listing, or
// ListingErrorMessage when there is none.
func ListingFailureMessage(err error) string {
	var serverErr *network.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return ListingErrorMessage
}

// FormatBytes renders n with binary units and at most two decimals, e.g. "1.5 KB".
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 Bytes"
	}

	formatted := units.CustomSize("%.2f %s", float64(n), 1024.0, sizeUnits)
	number, unit, _ := strings.Cut(formatted, " ")
	number = strings.TrimRight(strings.TrimRight(number, "0"), ".")

	return number + " " + unit
}
