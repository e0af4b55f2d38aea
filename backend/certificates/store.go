package certificates

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var ErrFileNotFound = errors.New("certificate file not found")

// Store хранилище файлов сертификатов по имени файла
type Store interface {
	Save(ctx context.Context, filename string, content []byte) (url string, err error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, filename string) error
}

// URLPrefix публичный путь к файлам сертификатов. Его обслуживает
// маршрут, читающий из текущего Store, поэтому путь одинаков для диска и GridFS.
const URLPrefix = "/uploads/certificates/"

func FileURL(filename string) string {
	return URLPrefix + filename
}

// DiskStore кладет файлы в <upload dir>/certificates
type DiskStore struct {
	dir string
}

func NewDiskStore(uploadDir string) (*DiskStore, error) {
	dir := filepath.Join(uploadDir, "certificates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating certificate directory")
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(_ context.Context, filename string, content []byte) (string, error) {
	path, err := s.path(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrap(err, "writing certificate file")
	}
	return FileURL(filename), nil
}

func (s *DiskStore) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	path, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening certificate file")
	}
	return f, nil
}

func (s *DiskStore) Delete(_ context.Context, filename string) error {
	path, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing certificate file")
	}
	return nil
}

// ValidFilename имя без каталогов, которое можно отдавать наружу
func ValidFilename(filename string) bool {
	return filename != "" && filename == filepath.Base(filename) && filename != "." && filename != ".."
}

func (s *DiskStore) path(filename string) (string, error) {
	if !ValidFilename(filename) {
		return "", errors.Errorf("invalid certificate filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}
