package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/littleskin"
	"skinfetch/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "imgs"), logger.NewTestLogger())
	require.NoError(t, err)
	return m
}

func TestSubdirForType(t *testing.T) {
	assert.Equal(t, SubdirSkins, SubdirForType(littleskin.TypeSteve))
	assert.Equal(t, SubdirSkins, SubdirForType(littleskin.TypeAlex))
	assert.Equal(t, SubdirCapes, SubdirForType(littleskin.TypeCape))
	assert.Equal(t, SubdirOthers, SubdirForType("unknown"))
	assert.Equal(t, SubdirOthers, SubdirForType(""))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cool_skin.png", "cool_skin.png"},
		{"my skin!.png", "myskin.png"},
		{"../../etc/passwd", "....etcpasswd"},
		{"naïve∆.png", "nave.png"},
		{"a-b_c.1.png", "a-b_c.1.png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestBuildTextureFilename(t *testing.T) {
	t.Run("named texture", func(t *testing.T) {
		got := BuildTextureFilename("cool skin", "steve", "abcdef0123456789", 42)
		assert.Equal(t, "coolskin_steve.png", got)
	})

	t.Run("unnamed texture falls back to id and hash prefix", func(t *testing.T) {
		got := BuildTextureFilename("", "steve", "abcdef0123456789", 42)
		assert.Equal(t, "42_abcdef01.png", got)
	})

	t.Run("whitespace-only name counts as unnamed", func(t *testing.T) {
		got := BuildTextureFilename("   ", "cape", "abcdef0123456789", 7)
		assert.Equal(t, "7_abcdef01.png", got)
	})

	t.Run("short hash is kept whole", func(t *testing.T) {
		got := BuildTextureFilename("", "alex", "abc", 1)
		assert.Equal(t, "1_abc.png", got)
	})
}

func TestSaveAndExists(t *testing.T) {
	m := newTestManager(t)

	assert.False(t, m.Exists(SubdirSkins, "a.png"))

	written, err := m.Save(strings.NewReader("png-bytes"), SubdirSkins, "a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(9), written)

	assert.True(t, m.Exists(SubdirSkins, "a.png"))

	data, err := os.ReadFile(m.PathFor(SubdirSkins, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	// No temp file left behind.
	_, err = os.Stat(m.PathFor(SubdirSkins, "a.png") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsEmptyDownload(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Save(strings.NewReader(""), SubdirSkins, "empty.png")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeValidation, apiErr.Type)

	// Neither the file nor its temp twin may survive.
	assert.False(t, m.Exists(SubdirSkins, "empty.png"))
	_, statErr := os.Stat(m.PathFor(SubdirSkins, "empty.png") + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestScanImages(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Save(strings.NewReader("x"), SubdirSkins, "one.png")
	require.NoError(t, err)
	_, err = m.Save(strings.NewReader("x"), SubdirCapes, "two.png")
	require.NoError(t, err)
	_, err = m.Save(strings.NewReader("x"), SubdirOthers, "three.PNG")
	require.NoError(t, err)

	// Non-png files and nested directories are ignored.
	require.NoError(t, os.WriteFile(m.PathFor(SubdirSkins, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(m.Root(), SubdirSkins, "nested"), 0755))

	files, err := m.ScanImages()
	require.NoError(t, err)
	require.Len(t, files, 3)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"one.png", "two.png", "three.PNG"}, names)
}

func TestScanImagesMissingRoot(t *testing.T) {
	log := logger.NewTestLogger()
	m := &Manager{root: filepath.Join(t.TempDir(), "does-not-exist"), logger: log}

	files, err := m.ScanImages()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotEmpty(t, log.EntriesAtLevel("warn"))
}
