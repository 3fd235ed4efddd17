package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

const sniffLen = 512

// StagedFile is an upload written to the temp directory.
type StagedFile struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// Open opens the staged file for reading.
func (f *StagedFile) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Remove deletes the staged file. A file that is already gone is not an error.
func (f *StagedFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

// Stager writes uploads to a temp directory with a size limit.
type Stager struct {
	dir      string
	maxBytes int64
}

// NewStager creates dir if needed and returns a stager writing into it.
func NewStager(dir string, maxBytes int64) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media temp dir: %w", err)
	}
	return &Stager{dir: dir, maxBytes: maxBytes}, nil
}

// Stage copies src into a new temp file. Files over the size limit and files
// whose sniffed content type is not an allowed image are rejected with
// InvalidInput. On any error nothing is left on disk.
func (s *Stager) Stage(src io.Reader, name string) (_ *StagedFile, err error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*"+filepath.Ext(filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	staged := &StagedFile{Path: tmp.Name(), Name: filepath.Base(name)}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(staged.Path)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if n > s.maxBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}
	if n == 0 {
		return nil, apperrors.InvalidInput("file is empty")
	}
	staged.Size = n

	head := make([]byte, sniffLen)
	m, err := tmp.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	staged.ContentType = http.DetectContentType(head[:m])
	if !IsAllowedContentType(staged.ContentType) {
		return nil, apperrors.InvalidInput("unsupported file type " + staged.ContentType)
	}

	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return staged, nil
}
