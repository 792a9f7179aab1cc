package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultExtension is used when the uploaded file name carries none; browser
// capture blobs are webm containers.
const DefaultExtension = ".webm"

var (
	ErrCantCreateFile = errors.New("can't create recording file")
	ErrCantWriteFile  = errors.New("can't write recording file")

	ErrCantFindFile   = errors.New("can't find the recording file")
	ErrCantOpenFile   = errors.New("can't open the recording file")
	ErrCantRemoveFile = errors.New("can't remove the recording file")
)

type Storage struct {
	path string
	l    *log.Entry
}

func NewStorage(basePath string, l *log.Entry) (*Storage, error) {
	if err := os.MkdirAll(basePath, fs.ModePerm); err != nil {
		return nil, fmt.Errorf("can't create content dir: %w", err)
	}
	return &Storage{path: basePath, l: l.WithField("content_dir", basePath)}, nil
}

// GenerateName builds a unique on-disk name for an upload. The uuid fragment
// keeps two uploads landing in the same millisecond from colliding.
func GenerateName(original string) string {
	ext := path.Ext(original)
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("recording-%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}

func (s *Storage) Save(name string, file io.Reader) (int64, error) {
	blobPath := path.Join(s.path, name)

	blob, err := os.OpenFile(blobPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fs.ModePerm)
	if err != nil {
		s.l.WithField("blob_path", blobPath).WithError(err).Error(ErrCantCreateFile)
		return 0, ErrCantCreateFile
	}
	defer func(blob *os.File) {
		if err := blob.Close(); err != nil {
			s.l.WithError(err).Error("can't close recording file")
		}
	}(blob)

	written, err := io.Copy(blob, file)
	if err != nil {
		s.l.WithField("blob_path", blobPath).WithError(err).Error(ErrCantWriteFile)
		return written, ErrCantWriteFile
	}
	return written, nil
}

// Open hands back the blob and its stat so the caller can stream a byte
// span; the caller owns closing the file.
func (s *Storage) Open(name string) (*os.File, os.FileInfo, error) {
	blobPath := path.Join(s.path, name)

	info, err := os.Stat(blobPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrCantFindFile
		}
		s.l.WithField("blob_path", blobPath).WithError(err).Error(ErrCantOpenFile)
		return nil, nil, ErrCantOpenFile
	}

	blob, err := os.Open(blobPath)
	if err != nil {
		s.l.WithField("blob_path", blobPath).WithError(err).Error(ErrCantOpenFile)
		return nil, nil, ErrCantOpenFile
	}
	return blob, info, nil
}

func (s *Storage) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(path.Join(s.path, name))
	if err != nil {
		return nil, ErrCantFindFile
	}
	return info, nil
}

func (s *Storage) Remove(name string) error {
	blobPath := path.Join(s.path, name)
	if err := os.Remove(blobPath); err != nil {
		s.l.WithField("blob_path", blobPath).WithError(err).Error(ErrCantRemoveFile)
		return ErrCantRemoveFile
	}
	return nil
}

// List names every blob in the content directory, subdirectories excluded.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("can't read content dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
