package chat

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the per-file ceiling the input layer enforces.
const MaxFileSize = 10 << 20

var (
	ErrEmptyTurn    = errors.New("message text is empty and no files are attached")
	ErrFileTooLarge = errors.New("file exceeds the 10 MiB limit")
)

// File is an attachment as submitted with a turn.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (f File) attachment() Attachment {
	return Attachment{Name: f.Name, MIMEType: f.MIMEType, SizeBytes: int64(len(f.Data))}
}

// ValidateTurn checks what SubmitTurn expects its caller to have checked:
// text may only be empty when at least one file is attached, and no file
// may exceed MaxFileSize.
func ValidateTurn(text string, files []File) error {
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return ErrEmptyTurn
	}
	for _, f := range files {
		if len(f.Data) > MaxFileSize {
			return fmt.Errorf("%s: %w", f.Name, ErrFileTooLarge)
		}
	}
	return nil
}

// LoadFile reads path into a File. The MIME type comes from the extension,
// falling back to content sniffing.
func LoadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return File{}, fmt.Errorf("%s: %w", info.Name(), ErrFileTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return File{Name: filepath.Base(path), MIMEType: mimeType, Data: data}, nil
}
