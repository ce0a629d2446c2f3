package storagesvc

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
)

// localService stores uploaded files under a root directory on disk. Keys are
// slash-separated relative paths.
type localService struct {
	root string
}

var _ core.FileStorage = (*localService)(nil)

func NewLocalService(root string) (*localService, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &localService{root: root}, nil
}

func (svc *localService) path(key string) (string, error) {
	key = filepath.FromSlash(strings.TrimLeft(key, "/"))
	path := filepath.Join(svc.root, key)
	// keys must resolve inside the root
	if !strings.HasPrefix(path, svc.root+string(filepath.Separator)) {
		return "", errors.Errorf("invalid file key %q", key)
	}
	return path, nil
}

func (svc *localService) Save(key string, content io.Reader) error {
	path, err := svc.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating file dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, content); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

func (svc *localService) Delete(key string) error {
	path, err := svc.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
