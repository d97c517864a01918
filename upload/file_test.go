package upload

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name            string
		fileName        string
		content         string
		wantContentType string
	}{
		{name: "pdf", fileName: "doc.pdf", content: "%PDF-1.4\n%âãÏÓ\n", wantContentType: "application/pdf"},
		{name: "plain text", fileName: "notes.txt", content: "small file content!", wantContentType: "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pth := filepath.Join(dir, tt.fileName)
			require.NoError(t, os.WriteFile(pth, []byte(tt.content), 0600))

			file, err := OpenFile(pth)
			require.NoError(t, err)
			defer func() { require.NoError(t, file.Close()) }()

			assert.Equal(t, tt.fileName, file.Name)
			assert.Equal(t, int64(len(tt.content)), file.Size)
			assert.Equal(t, tt.wantContentType, file.ContentType)

			data, err := io.ReadAll(file.Section())
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "content detection must not consume the file")
		})
	}
}

func TestOpenFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenFile(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = OpenFile(dir)
	assert.EqualError(t, err, dir+" is not a regular file")
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "report.pdf"},
		{name: "photo.JPG"},
		{name: "scan.jpeg"},
		{name: "image.png"},
		{name: "letter.docx"},
		{name: "archive.zip", wantErr: true},
		{name: "noextension", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExtension(tt.name, AllowedExtensions)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckExtension() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSelectedFile_CloseWithoutOwnedFile(t *testing.T) {
	var nilFile *SelectedFile
	assert.NoError(t, nilFile.Close())
	assert.NoError(t, NewSelectedFile("a", 0, "", nil).Close())
}
