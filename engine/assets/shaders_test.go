package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/vkutility/engine/assets/loaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, loaders.SPIRVMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func writeShader(t *testing.T, dir, name string, words ...uint32) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".spv"), spirv(words...), 0o644))
}

func TestShaderLibraryBytecode(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "builtin.object.vert", 1, 2, 3)

	sl := NewShaderLibrary(dir)
	code, err := sl.Bytecode("builtin.object.vert")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 1, 2, 3}, code)
}

func TestShaderLibraryCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "a.frag", 1)

	sl := NewShaderLibrary(dir)
	var changed []string
	sl.OnChange(func(name string) { changed = append(changed, name) })

	first, err := sl.Bytecode("a.frag")
	require.NoError(t, err)

	writeShader(t, dir, "a.frag", 2)
	cached, err := sl.Bytecode("a.frag")
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	sl.Invalidate("a.frag")
	fresh, err := sl.Bytecode("a.frag")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 2}, fresh)
	assert.Equal(t, []string{"a.frag"}, changed)
}

func TestShaderLibraryMissingShader(t *testing.T) {
	sl := NewShaderLibrary(t.TempDir())
	_, err := sl.Bytecode("nope.vert")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShaderLibraryWatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "w.vert", 1)

	sl := NewShaderLibrary(dir)
	require.NoError(t, sl.Watch())
	defer sl.Close()

	var notified atomic.Int32
	sl.OnChange(func(name string) {
		if name == "w.vert" {
			notified.Add(1)
		}
	})

	_, err := sl.Bytecode("w.vert")
	require.NoError(t, err)

	writeShader(t, dir, "w.vert", 7)
	require.Eventually(t, func() bool { return notified.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	code, err := sl.Bytecode("w.vert")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 7}, code)
}

func TestShaderLibraryWatchTwice(t *testing.T) {
	sl := NewShaderLibrary(t.TempDir())
	require.NoError(t, sl.Watch())
	defer sl.Close()
	assert.Error(t, sl.Watch())
}
