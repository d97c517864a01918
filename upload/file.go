package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AllowedExtensions are the file types accepted when type restriction is enabled.
var AllowedExtensions = []string{".pdf", ".png", ".jpeg", ".jpg", ".docx"}

// SelectedFile is a local file chosen for upload. It does not change once selected.
type SelectedFile struct {
	Name        string
	Size        int64
	ContentType string

	reader io.ReaderAt
	closer io.Closer
}

// NewSelectedFile wraps an already open reader.
func NewSelectedFile(name string, size int64, contentType string, reader io.ReaderAt) *SelectedFile {
	return &SelectedFile{
		Name:        name,
		Size:        size,
		ContentType: contentType,
		reader:      reader,
	}
}

// OpenFile opens the file at pth for upload and detects its content type.
func OpenFile(pth string) (*SelectedFile, error) {
	info, err := os.Stat(pth)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", pth)
	}

	file, err := os.Open(pth)
	if err != nil {
		return nil, err
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		if cerr := file.Close(); cerr != nil {
			return nil, fmt.Errorf("detect content type: %w (close: %s)", err, cerr)
		}
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	return &SelectedFile{
		Name:        filepath.Base(pth),
		Size:        info.Size(),
		ContentType: mtype.String(),
		reader:      file,
		closer:      file,
	}, nil
}

// Section returns a reader over the whole file.
func (f *SelectedFile) Section() *io.SectionReader {
	return io.NewSectionReader(f.reader, 0, f.Size)
}

// Close releases the underlying file, if the SelectedFile owns one.
func (f *SelectedFile) Close() error {
	if f == nil || f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// CheckExtension returns an error unless name ends with one of the allowed extensions.
func CheckExtension(name string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return fmt.Errorf("file type %q is not allowed, accepted types: %s", ext, strings.Join(allowed, ", "))
}
