package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/utafrali/SocialGo/internal/service"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

const (
	// multipartMemory is how much of a form is held in memory before parts spill to disk.
	multipartMemory = 1 << 20
	// formOverhead allows for text fields and part headers on top of the file bytes.
	formOverhead = 1 << 20
)

// parseMultipart caps the body at files*maxFileBytes plus form overhead and
// parses it. The caller must call r.MultipartForm.RemoveAll when done.
func parseMultipart(w http.ResponseWriter, r *http.Request, files int, maxFileBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(files)*maxFileBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return apperrors.InvalidInput("invalid multipart form: " + err.Error())
	}
	return nil
}

// formFile opens the named file part. It returns nil when the part is absent.
func formFile(r *http.Request, field string) (*service.FileInput, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.InvalidInput("invalid " + field + " file: " + err.Error())
	}
	return &service.FileInput{Name: header.Filename, Body: file}, file, nil
}
