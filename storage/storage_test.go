package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, s Store, key string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocalRoundTrip(t *testing.T) {
	log, _ := test.NewNullLogger()
	s, err := NewLocal(t.TempDir(), "http://localhost:8080/files/", log)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "applications/3/a.pdf", strings.NewReader("%PDF"), 4, "application/pdf"))
	assert.Equal(t, "%PDF", readAll(t, s, "applications/3/a.pdf"))

	url, err := s.URL(ctx, "applications/3/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/applications/3/a.pdf", url)

	require.NoError(t, s.Delete(ctx, "applications/3/a.pdf"))
	_, err = s.Open(ctx, "applications/3/a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "applications/3/a.pdf"), ErrNotFound)
}

func TestLocalKeysStayUnderRoot(t *testing.T) {
	log, _ := test.NewNullLogger()
	root := t.TempDir()
	s, err := NewLocal(root, "/files", log)
	require.NoError(t, err)

	p, err := s.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.Root()))
}

func TestMemoryDeleteAll(t *testing.T) {
	log, hook := test.NewNullLogger()
	m := NewMemory("/files")
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "a", strings.NewReader("1"), 1, ""))
	require.NoError(t, m.Put(ctx, "b", strings.NewReader("2"), 1, ""))

	DeleteAll(ctx, m, log, "a", "", "missing", "b")
	assert.Empty(t, m.Keys())
	// Missing keys are not worth a warning.
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level)
	}
}
