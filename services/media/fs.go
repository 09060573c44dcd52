package mediasvc

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type FSStorage struct {
	root    string
	baseURL string
}

var _ core.FileStorage = (*FSStorage)(nil)

func NewFSStorage(root, baseURL string) *FSStorage {
	return &FSStorage{root: root, baseURL: baseURL}
}

func (s *FSStorage) path(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

func (s *FSStorage) Save(_ context.Context, name string, content io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	fp := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	var f *os.File
	for {
		f, err = os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", errors.Wrapf(err, "creating %s", name)
		}
		name = alternativeName(name)
		fp = filepath.Join(s.root, filepath.FromSlash(name))
	}

	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrapf(err, "writing %s", name)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (s *FSStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	fp, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if os.IsNotExist(err) {
		return nil, core.NewNotFoundError("file")
	}
	return f, err
}

func (s *FSStorage) Delete(_ context.Context, name string) error {
	fp, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FSStorage) Exists(_ context.Context, name string) (bool, error) {
	fp, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fp)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *FSStorage) URL(name string) string {
	return joinURL(s.baseURL, name)
}
