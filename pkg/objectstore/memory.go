package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore keeps uploads in process. URLs it returns are not fetchable;
// they only identify the object.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStore{objects: make(map[string]memoryObject), baseURL: baseURL}
}

func (m *MemoryStore) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	data, err := ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[path] = memoryObject{contentType: contentType, data: data}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ResolveDownloadURL(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	u, err := url.JoinPath(m.baseURL, path)
	if err != nil {
		return "", err
	}
	return u, nil
}

// Get returns the stored bytes and content type.
func (m *MemoryStore) Get(path string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj.data, obj.contentType, ok
}
