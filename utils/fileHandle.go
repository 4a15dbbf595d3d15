package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"govdocs/apperror"
	"govdocs/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize is inclusive: a file of exactly 500 KiB is accepted.
const MaxUploadSize int64 = 500 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// UploadedFile is a file received from a client, not yet stored.
type UploadedFile struct {
	Label string
	Name  string
	Size  int64
	Open  func() (io.ReadCloser, error)
}

// FromMultipart wraps a multipart file header.
func FromMultipart(label string, fh *multipart.FileHeader) UploadedFile {
	return UploadedFile{
		Label: label,
		Name:  fh.Filename,
		Size:  fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes builds an UploadedFile from memory.
func FromBytes(label, name string, data []byte) UploadedFile {
	return UploadedFile{
		Label: label,
		Name:  name,
		Size:  int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Ext is the lower-cased extension including the dot.
func (f UploadedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// CheckFile enforces the type allowlist and the size limit.
func CheckFile(f UploadedFile) error {
	if !allowedExtensions[f.Ext()] {
		return apperror.UnsupportedType(f.Name)
	}
	if f.Size > MaxUploadSize {
		return apperror.FileTooLarge(f.Name, f.Size, MaxUploadSize)
	}
	return nil
}

// StoredFile describes a blob written by SaveUploadedFile.
type StoredFile struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeName reduces a label or file name to characters safe for object keys
// and archive entries.
func SafeName(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "file"
	}
	return s
}

// SaveUploadedFile checks f and writes it under prefix with a unique key.
// The stored size is what was actually read, and must still be within limit.
func SaveUploadedFile(ctx context.Context, store storage.Store, prefix string, f UploadedFile) (StoredFile, error) {
	if err := CheckFile(f); err != nil {
		return StoredFile{}, err
	}

	src, err := f.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload %s: %w", f.Name, err)
	}
	defer src.Close()

	// Read one byte past the limit so a lying size header is caught.
	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return StoredFile{}, fmt.Errorf("read upload %s: %w", f.Name, err)
	}
	if int64(len(data)) > MaxUploadSize {
		return StoredFile{}, apperror.FileTooLarge(f.Name, int64(len(data)), MaxUploadSize)
	}

	contentType := mimetype.Detect(data).String()
	base := SafeName(strings.TrimSuffix(f.Name, filepath.Ext(f.Name)))
	key := fmt.Sprintf("%s/%s-%s%s", strings.Trim(prefix, "/"), uuid.NewString(), base, f.Ext())

	if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return StoredFile{}, fmt.Errorf("store upload %s: %w", f.Name, err)
	}

	return StoredFile{Key: key, Name: f.Name, ContentType: contentType, Size: int64(len(data))}, nil
}
