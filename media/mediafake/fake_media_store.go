package mediafake

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/jrsteele09/go-video-server/media"
)

var _ media.Store = (*FakeMediaStore)(nil)

const baseURL = "memory://media/"

// FakeMediaStore keeps uploads in memory.
type FakeMediaStore struct {
	objects map[string][]byte
	lock    sync.RWMutex

	// PutErr, when set, is returned by every Put.
	PutErr error
	// DeleteErr, when set, is returned by every Delete and nothing is removed.
	DeleteErr error
}

func NewFakeMediaStore() *FakeMediaStore {
	return &FakeMediaStore{objects: make(map[string][]byte)}
}

func (s *FakeMediaStore) Put(_ context.Context, key string, upload media.Upload) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	if upload.Body == nil {
		return "", media.ErrEmptyUpload
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", media.ErrEmptyUpload
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.objects[key] = data
	return baseURL + key, nil
}

func (s *FakeMediaStore) Delete(_ context.Context, url string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	key, ok := strings.CutPrefix(url, baseURL)
	if !ok {
		return errors.New("not a memory media url")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns the bytes stored behind url.
func (s *FakeMediaStore) Get(url string) ([]byte, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	data, ok := s.objects[strings.TrimPrefix(url, baseURL)]
	return data, ok
}

func (s *FakeMediaStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.objects)
}
