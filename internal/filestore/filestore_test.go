package filestore_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwanyu/marketplace/internal/filestore"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newStore(t *testing.T, maxBytes int64) (*filestore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := filestore.New(logger.NewDiscard(), dir, maxBytes)
	require.NoError(t, err)
	return s, dir
}

func TestStore_SaveAndList(t *testing.T) {
	s, dir := newStore(t, 1024)
	ctx := context.Background()

	f, err := s.Save(ctx, "products", 7, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)
	assert.True(t, strings.HasPrefix(f.Key, "7/"))
	assert.True(t, strings.HasSuffix(f.Key, ".png"))
	assert.Equal(t, "/files/products/"+f.Key, f.URL)

	_, err = os.Stat(filepath.Join(dir, "products", filepath.FromSlash(f.Key)))
	require.NoError(t, err)

	list, err := s.List(ctx, "products", 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.Key, list[0].Key)
	assert.Equal(t, "image/png", list[0].ContentType)
	assert.Equal(t, int64(len(pngHeader)), list[0].Size)

	other, err := s.List(ctx, "products", 8)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_SaveRejects(t *testing.T) {
	s, _ := newStore(t, 16)
	ctx := context.Background()

	_, err := s.Save(ctx, "secrets", 1, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, filestore.ErrUnknownBucket)

	_, err = s.Save(ctx, "products", 1, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, filestore.ErrTooLarge)

	_, err = s.Save(ctx, "products", 1, strings.NewReader("just some text"))
	assert.ErrorIs(t, err, filestore.ErrUnsupportedType)

	_, err = s.Save(ctx, "products", 1, strings.NewReader(""))
	assert.ErrorIs(t, err, filestore.ErrEmptyFile)
}

func TestStore_DocumentsAcceptPDF(t *testing.T) {
	s, _ := newStore(t, 1024)

	f, err := s.Save(context.Background(), "vendor-documents", 3, strings.NewReader("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType)
}

func TestStore_Open(t *testing.T) {
	s, _ := newStore(t, 1024)
	ctx := context.Background()

	saved, err := s.Save(ctx, "vendor-documents", 3, strings.NewReader("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)

	f, _, err := s.Open(ctx, "vendor-documents", saved.Key)
	require.NoError(t, err)
	defer f.Close()
	head := make([]byte, 8)
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(head))

	_, _, err = s.Open(ctx, "vendor-documents", "3/missing.pdf")
	assert.ErrorIs(t, err, filestore.ErrFileNotFound)

	_, _, err = s.Open(ctx, "vendor-documents", "../products/3/a.png")
	assert.ErrorIs(t, err, filestore.ErrFileNotFound)

	_, _, err = s.Open(ctx, "vendor-documents", "3")
	assert.ErrorIs(t, err, filestore.ErrFileNotFound)

	_, _, err = s.Open(ctx, "secrets", saved.Key)
	assert.ErrorIs(t, err, filestore.ErrUnknownBucket)
}

func TestOwnerOf(t *testing.T) {
	id, err := filestore.OwnerOf("42/0b1c.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, key := range []string{"", "42", "42/", "x/a.pdf", "0/a.pdf", "42/../a.pdf", "42/a/b.pdf"} {
		_, err := filestore.OwnerOf(key)
		assert.ErrorIs(t, err, filestore.ErrFileNotFound, key)
	}
	assert.True(t, filestore.Private("vendor-documents"))
	assert.False(t, filestore.Private("products"))
}
