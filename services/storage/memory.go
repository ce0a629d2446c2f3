package storagesvc

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
)

// MemoryService keeps files in memory; it backs tests.
type MemoryService struct {
	mu    sync.Mutex
	files map[string][]byte

	// FailDeletes makes every Delete call fail.
	FailDeletes bool
}

var _ core.FileStorage = (*MemoryService)(nil)

func NewMemoryService() *MemoryService {
	return &MemoryService{files: make(map[string][]byte)}
}

func (svc *MemoryService) Save(key string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return errors.Wrap(err, "reading file content")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.files[key] = data
	return nil
}

func (svc *MemoryService) Delete(key string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.FailDeletes {
		return errors.New("file storage unavailable")
	}
	delete(svc.files, key)
	return nil
}

func (svc *MemoryService) Has(key string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	_, ok := svc.files[key]
	return ok
}
