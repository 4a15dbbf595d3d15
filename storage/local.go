package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Local stores blobs on disk below root. Files are served by the HTTP
// layer under baseURL.
type Local struct {
	root    string
	baseURL string
	logger  *logrus.Logger
}

func NewLocal(root, baseURL string, log *logrus.Logger) (*Local, error) {
	if root == "" {
		return nil, errors.New("local storage path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Local{root: abs, baseURL: strings.TrimRight(baseURL, "/"), logger: log}, nil
}

func (l *Local) Provider() string { return "local" }

// Root is the directory the HTTP layer serves files from.
func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	p := filepath.Join(l.root, clean)
	if !strings.HasPrefix(p, l.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	dst, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(p)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(p)
		return err
	}

	l.logger.WithFields(logrus.Fields{"key": key, "size": size}).Debug("Stored blob on disk")
	return nil
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (l *Local) URL(ctx context.Context, key string) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return l.baseURL + "/" + strings.TrimLeft(key, "/"), nil
}
