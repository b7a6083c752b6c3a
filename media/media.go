package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AvatarPrefix     = "avatars"
	CoverImagePrefix = "covers"
)

var ErrEmptyUpload = errors.New("upload is empty")

// Upload is one file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store puts media objects somewhere publicly addressable.
type Store interface {
	// Put stores the upload under key and returns its public URL.
	Put(ctx context.Context, key string, upload Upload) (string, error)
	// Delete removes the object behind a url returned by Put. Urls from
	// elsewhere are rejected.
	Delete(ctx context.Context, url string) error
}

// NewKey builds an object key like avatars/2025/03/01/<uuid>.png.
func NewKey(prefix, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))))
	return path.Join(prefix, now.UTC().Format("2006/01/02"), uuid.New().String()+ext)
}
