package zipfs

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mackron/gofs/internal/stream"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openBackend(t *testing.T, raw []byte) *Backend {
	t.Helper()
	b := New().(*Backend)
	require.NoError(t, b.Init(context.Background(), nil, stream.ReadSeekerStream{ReadSeeker: bytes.NewReader(raw)}))
	return b
}

func TestReadFlatFile(t *testing.T) {
	raw := buildZip(t, map[string]string{"readme.txt": "hello zip"})
	b := openBackend(t, raw)

	f, err := b.Open(context.Background(), "readme.txt", 0)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello zip", string(data))
}

func TestDirectoriesAreDerivedFromEntryNames(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"assets/sprites/hero.png": "pngdata",
		"assets/sounds/jump.wav":  "wavdata",
	})
	b := openBackend(t, raw)

	info, err := b.Info(context.Background(), "assets", 0)
	require.NoError(t, err)
	assert.True(t, info.IsDirectory)

	it, err := b.OpenIterator(context.Background(), "assets", 0)
	require.NoError(t, err)
	var names []string
	for {
		e, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"sprites", "sounds"}, names)
}

func TestOpeningDirectoryNameFails(t *testing.T) {
	raw := buildZip(t, map[string]string{"assets/hero.png": "data"})
	b := openBackend(t, raw)

	_, err := b.Open(context.Background(), "assets", 0)
	assert.Error(t, err)
}

func TestBadArchiveRejected(t *testing.T) {
	b := New().(*Backend)
	err := b.Init(context.Background(), nil, stream.ReadSeekerStream{ReadSeeker: bytes.NewReader([]byte("not a zip at all"))})
	assert.Error(t, err)
}

func TestDuplicateIndependentCursor(t *testing.T) {
	raw := buildZip(t, map[string]string{"a.txt": "0123456789"})
	b := openBackend(t, raw)

	f, err := b.Open(context.Background(), "a.txt", 0)
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf))

	dup, err := f.Duplicate()
	require.NoError(t, err)
	rest, err := io.ReadAll(dup)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(rest))

	restOrig, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(restOrig))
}
