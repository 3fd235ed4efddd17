package media

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// MemoryUploader keeps uploaded bytes in a map. It backs MEDIA_BACKEND=memory
// for local runs and tests.
type MemoryUploader struct {
	mu      sync.RWMutex
	files   map[string][]byte
	baseURL string
}

// NewMemoryUploader creates an in-memory uploader serving URLs under baseURL.
func NewMemoryUploader(baseURL string) *MemoryUploader {
	return &MemoryUploader{files: make(map[string][]byte), baseURL: baseURL}
}

// Upload reads the staged file into memory.
func (u *MemoryUploader) Upload(_ context.Context, file *StagedFile, folder string) (*Asset, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}

	key := objectKey(folder, file)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[key] = data

	return &Asset{Key: key, URL: fmt.Sprintf("%s/media/%s", u.baseURL, key)}, nil
}

// Get returns the stored bytes for key.
func (u *MemoryUploader) Get(key string) ([]byte, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	data, ok := u.files[key]
	return data, ok
}

// Len returns the number of stored files.
func (u *MemoryUploader) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.files)
}
