package utils

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"govdocs/apperror"
	"govdocs/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFile(t *testing.T) {
	tests := []struct {
		name string
		file UploadedFile
		kind apperror.Kind
	}{
		{"pdf at limit", UploadedFile{Name: "id.pdf", Size: MaxUploadSize}, ""},
		{"upper case extension", UploadedFile{Name: "SCAN.JPG", Size: 10}, ""},
		{"one byte over", UploadedFile{Name: "id.pdf", Size: MaxUploadSize + 1}, apperror.KindFileTooLarge},
		{"executable", UploadedFile{Name: "setup.exe", Size: 10}, apperror.KindUnsupportedType},
		{"no extension", UploadedFile{Name: "README", Size: 10}, apperror.KindUnsupportedType},
		{"type wins over size", UploadedFile{Name: "big.exe", Size: MaxUploadSize * 2}, apperror.KindUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFile(tt.file)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestSaveUploadedFile(t *testing.T) {
	store := storage.NewMemory("/files")
	data := []byte("%PDF-1.4 test document")

	saved, err := SaveUploadedFile(context.Background(), store, "/applications/4/", FromBytes("Aadhaar", "my scan (1).pdf", data))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.Key, "applications/4/"))
	assert.True(t, strings.HasSuffix(saved.Key, "-my_scan_1.pdf"))
	assert.Equal(t, "my scan (1).pdf", saved.Name)
	assert.Equal(t, int64(len(data)), saved.Size)
	assert.Equal(t, "application/pdf", saved.ContentType)
	assert.Equal(t, []string{saved.Key}, store.Keys())
}

func TestSaveUploadedFileCatchesUnderstatedSize(t *testing.T) {
	store := storage.NewMemory("/files")
	f := FromBytes("Photo", "photo.png", bytes.Repeat([]byte{1}, int(MaxUploadSize)+10))
	f.Size = 100

	_, err := SaveUploadedFile(context.Background(), store, "applications/1", f)
	assert.Equal(t, apperror.KindFileTooLarge, apperror.KindOf(err))
	assert.Empty(t, store.Keys())
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Birth_Certificate", SafeName("  Birth Certificate "))
	assert.Equal(t, "Voter_ID_Card", SafeName("Voter ID/Card"))
	assert.Equal(t, "file", SafeName("***"))
}

func TestPaginated(t *testing.T) {
	out := Paginated("applications", []int{1}, 31, 0, 500)
	assert.Equal(t, map[string]interface{}{"total": int64(31), "page": 1, "limit": MaxLimit}, out["pagination"])
	assert.Equal(t, []int{1}, out["applications"])
}
