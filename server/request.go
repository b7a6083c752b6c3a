package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/media"
)

var (
	invalidBodyErr  = apperrors.Validation("invalid request body")
	fileTooLargeErr = apperrors.Validation("uploaded file is too large")
)

// fields holds the string fields of a JSON, urlencoded or multipart body.
type fields map[string]string

func (f fields) get(name string) string {
	return f[name]
}

// parseFields reads the request body according to its content type. An
// empty body yields no fields rather than an error.
func (s *Server) parseFields(r *http.Request) (fields, error) {
	values := fields{}
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch contentType {
	case "application/json":
		raw := map[string]interface{}{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, invalidBodyErr
		}
		for k, v := range raw {
			if str, ok := v.(string); ok {
				values[k] = str
			}
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			return nil, invalidBodyErr
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, invalidBodyErr
		}
		for k := range r.PostForm {
			values[k] = r.PostForm.Get(k)
		}
	}
	return values, nil
}

// formFile returns the named multipart file, or nil when the request has none.
// Callers must close the returned file.
func (s *Server) formFile(r *http.Request, name string) (*media.Upload, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, invalidBodyErr
	}
	if s.maxUploadBytes > 0 && header.Size > s.maxUploadBytes {
		_ = file.Close()
		return nil, nil, fileTooLargeErr
	}
	return uploadFromHeader(file, header), file, nil
}

func uploadFromHeader(file multipart.File, header *multipart.FileHeader) *media.Upload {
	return &media.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// closeAll closes the files opened by formFile and drops multipart temp files.
func closeAll(r *http.Request, closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
