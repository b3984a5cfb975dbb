// FILE: lixenwraith/profile/source_test.go
package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a file under dir and returns its path.
func writeFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewSource(t *testing.T) {
	src := NewSource("", nil)
	assert.Equal(t, rootName, src.Name())
	assert.Empty(t, src.Path())
	assert.Equal(t, uint64(1), src.Generation())
	require.NotNil(t, src.Root())
	assert.True(t, src.Root().IsSection())
	assert.Nil(t, src.Next())
}

func TestLink(t *testing.T) {
	a, b, c := NewSource("a", nil), NewSource("b", nil), NewSource("c", nil)
	first := Link(a, b, c)
	assert.Same(t, a, first)
	assert.Same(t, b, a.Next())
	assert.Same(t, c, b.Next())
	assert.Nil(t, c.Next())

	// Relinking drops the old tail
	Link(c, a)
	assert.Same(t, a, c.Next())
	assert.Nil(t, a.Next())

	assert.Nil(t, Link())
}

func TestSourceReplace(t *testing.T) {
	src := sourceFrom(t, "s", `k = "1"`)
	old := src.Root()
	oldChild := old.FirstChild()

	fresh := mustParse(t, `k = "2"`)
	require.NoError(t, src.Replace(fresh))

	assert.Equal(t, uint64(2), src.Generation())
	assert.Same(t, fresh, src.Root())
	assert.False(t, old.Alive())
	assert.False(t, oldChild.Alive())

	t.Run("Dead tree rejected", func(t *testing.T) {
		err := src.Replace(old)
		assert.ErrorIs(t, err, ErrInvalidHandle)
		assert.Equal(t, uint64(2), src.Generation())
	})
}

func TestFileSource(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "absent.toml"), "")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("Load by extension", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "krb5.yaml", "libdefaults:\n  default_realm: EXAMPLE.COM\n")

		src, err := NewFileSource(path, "")
		require.NoError(t, err)
		assert.Equal(t, path, src.Path())
		assert.Equal(t, path, src.Name())

		sec, err := src.Root().Lookup("libdefaults")
		require.NoError(t, err)
		_, value, err := sec.FindRelation("default_realm", &Cursor{})
		require.NoError(t, err)
		assert.Equal(t, "EXAMPLE.COM", value)
	})

	t.Run("Parse error", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "bad.toml", "[unterminated\n")
		_, err := NewFileSource(path, "")
		assert.Error(t, err)
	})
}

func TestSourceRefresh(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.toml", `k = "1"`)
	src, err := NewFileSource(path, "")
	require.NoError(t, err)
	gen := src.Generation()

	reloaded, err := src.Refresh()
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Equal(t, gen, src.Generation())

	writeFile(t, dir, "p.toml", `k = "changed"`)
	reloaded, err = src.Refresh()
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Greater(t, src.Generation(), gen)

	_, value, err := src.Root().FindRelation("k", &Cursor{})
	require.NoError(t, err)
	assert.Equal(t, "changed", value)

	t.Run("Forced reload", func(t *testing.T) {
		gen := src.Generation()
		require.NoError(t, src.Reload())
		assert.Equal(t, gen+1, src.Generation())
	})

	t.Run("Removed file", func(t *testing.T) {
		require.NoError(t, os.Remove(path))
		_, err := src.Refresh()
		assert.ErrorIs(t, err, ErrProfileNotFound)
		// The last good tree survives
		assert.True(t, src.Root().Alive())
	})

	t.Run("In-memory source", func(t *testing.T) {
		mem := NewSource("mem", nil)
		reloaded, err := mem.Refresh()
		require.NoError(t, err)
		assert.False(t, reloaded)
		assert.ErrorIs(t, mem.Reload(), ErrReadOnly)
	})
}

func TestSourceFlush(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.json", `{"a": {"k": "1"}}`)
	src, err := NewFileSource(path, "")
	require.NoError(t, err)

	// Clean sources are not written
	require.NoError(t, src.Flush())
	assert.False(t, src.Dirty())

	sec, err := src.Root().Lookup("a")
	require.NoError(t, err)
	_, err = sec.AddRelation("k", "2")
	require.NoError(t, err)
	gen := src.Generation()
	src.touch()
	assert.True(t, src.Dirty())
	assert.Equal(t, gen+1, src.Generation())

	require.NoError(t, src.Flush())
	assert.False(t, src.Dirty())

	reread, err := NewFileSource(path, "")
	require.NoError(t, err)
	sec, err = reread.Root().Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"k=1", "k=2"}, childNames(sec))

	// Flush updated the recorded stat, so nothing looks changed
	reloaded, err := src.Refresh()
	require.NoError(t, err)
	assert.False(t, reloaded)

	t.Run("In-memory source", func(t *testing.T) {
		mem := NewSource("mem", nil)
		assert.ErrorIs(t, mem.Flush(), ErrReadOnly)
	})
}

func TestSourceClose(t *testing.T) {
	src := sourceFrom(t, "s", `k = "1"`)
	root := src.Root()
	gen := src.Generation()

	src.close()
	assert.Nil(t, src.Root())
	assert.False(t, root.Alive())
	assert.Greater(t, src.Generation(), gen)

	t.Run("Replace refused", func(t *testing.T) {
		gen := src.Generation()
		fresh, _ := NewSection(rootName)
		assert.ErrorIs(t, src.Replace(fresh), ErrInvalidHandle)
		assert.True(t, fresh.Alive())
		assert.Nil(t, src.Root())
		assert.Equal(t, gen, src.Generation())
	})

	t.Run("Reload refused", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "site.toml", `k = "1"`)
		file, err := NewFileSource(path, "")
		require.NoError(t, err)
		file.close()

		assert.ErrorIs(t, file.Reload(), ErrInvalidHandle)
		assert.Nil(t, file.Root())
		assert.ErrorIs(t, file.Flush(), ErrInvalidHandle)
	})

	t.Run("Twice is safe", func(t *testing.T) {
		gen := src.Generation()
		assert.NotPanics(t, src.close)
		assert.Equal(t, gen, src.Generation())
	})
}
