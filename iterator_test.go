// FILE: lixenwraith/profile/iterator_test.go
package profile

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sourceFrom builds an in-memory source from a TOML document.
func sourceFrom(t testing.TB, name, doc string) *Source {
	t.Helper()
	return NewSource(name, mustParse(t, doc))
}

func entryString(e Entry) string {
	if e.HasValue {
		return e.Name + "=" + e.Value
	}
	return e.Name + "/"
}

// drain reads the iterator to exhaustion.
func drain(t testing.TB, it *Iterator) []string {
	t.Helper()
	var out []string
	for {
		e, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, entryString(e))
	}
}

func TestIteratorMerge(t *testing.T) {
	t.Run("Sources in priority order", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
[libdefaults]
kdc = ["k1", "k2"]
other = "x"
`)
		s2 := sourceFrom(t, "s2", `
[libdefaults]
kdc = "k3"
`)
		it, err := NewIterator(Link(s1, s2), []string{"libdefaults", "kdc"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"kdc=k1", "kdc=k2", "kdc=k3"}, drain(t, it))
	})

	t.Run("Final section stops later sources", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
["a*"]
k = "1"
`)
		s2 := sourceFrom(t, "s2", `
[a]
k = "2"
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"k=1"}, drain(t, it))
	})

	t.Run("Final on a partially resolved path", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
["realms*".A]
kdc = "a"
`)
		s2 := sourceFrom(t, "s2", `
[realms.B]
kdc = "b"
`)
		it, err := NewIterator(Link(s1, s2), []string{"realms", "B", "kdc"}, 0)
		require.NoError(t, err)
		assert.Empty(t, drain(t, it))
	})

	t.Run("Unresolved path moves to next source", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
[other]
k = "x"
`)
		s2 := sourceFrom(t, "s2", `
[a]
k = "2"
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"k=2"}, drain(t, it))
	})

	t.Run("Relation on the path does not resolve", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `a = "rel"`)
		s2 := sourceFrom(t, "s2", `
[a]
k = "2"
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"k=2"}, drain(t, it))
	})

	t.Run("Empty last component matches every name", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
[a]
x = "1"
[a.sub]
y = "2"
`)
		it, err := NewIterator(s1, []string{"a", ""}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"sub/", "x=1"}, drain(t, it))
	})
}

func TestIteratorFlags(t *testing.T) {
	build := func() ConfigSource {
		s1 := sourceFrom(t, "s1", `
[a]
r = "1"
[a.s]
inner = "x"
`)
		s2 := sourceFrom(t, "s2", `
[a]
r = "2"
[a.t]
inner = "y"
`)
		return Link(s1, s2)
	}

	tests := []struct {
		name  string
		flags IterFlags
		want  []string
	}{
		{"List section", ListSection, []string{"r=1", "s/", "r=2", "t/"}},
		{"Sections only", ListSection | SectionsOnly, []string{"s/", "t/"}},
		{"Relations only", ListSection | RelationsOnly, []string{"r=1", "r=2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := NewIterator(build(), []string{"a"}, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, drain(t, it))
		})
	}

	t.Run("List root", func(t *testing.T) {
		it, err := NewIterator(build(), nil, ListSection)
		require.NoError(t, err)
		assert.Equal(t, []string{"a/", "a/"}, drain(t, it))
	})
}

func TestIteratorErrors(t *testing.T) {
	src := sourceFrom(t, "s1", `k = "v"`)

	t.Run("No profile", func(t *testing.T) {
		_, err := NewIterator(nil, []string{"k"}, 0)
		assert.ErrorIs(t, err, ErrNoProfile)
	})

	t.Run("Empty path outside list mode", func(t *testing.T) {
		_, err := NewIterator(src, nil, 0)
		assert.ErrorIs(t, err, ErrBadPathSpec)
	})

	t.Run("Closed after exhaustion", func(t *testing.T) {
		it, err := NewIterator(src, []string{"k"}, 0)
		require.NoError(t, err)

		e, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v", e.Value)

		_, ok, err = it.Next()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, stateExhausted, it.state)

		_, _, err = it.Next()
		assert.ErrorIs(t, err, ErrInvalidHandle)
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		it, err := NewIterator(src, []string{"k"}, 0)
		require.NoError(t, err)
		it.Close()
		assert.NotPanics(t, it.Close)

		_, _, err = it.Next()
		assert.ErrorIs(t, err, ErrInvalidHandle)

		var nilIt *Iterator
		assert.NotPanics(t, nilIt.Close)
		_, _, err = nilIt.Next()
		assert.ErrorIs(t, err, ErrInvalidHandle)
	})
}

func TestIteratorStates(t *testing.T) {
	src := sourceFrom(t, "s1", `k = ["1", "2"]`)
	it, err := NewIterator(src, []string{"k"}, 0)
	require.NoError(t, err)
	assert.Equal(t, stateResolving, it.state)

	_, _, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, stateScanning, it.state)
	assert.Equal(t, 1, it.num)

	// Yielding the last sibling moves on immediately
	_, _, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, stateResolving, it.state)
	assert.Nil(t, it.src)

	_, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, it.closed)
	assert.Equal(t, "exhausted", it.state.String())
}

func TestIteratorStaleRecovery(t *testing.T) {
	const three = `
[a]
k = ["1", "2", "3"]
`

	t.Run("Unchanged content resumes in place", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", three)
		it, err := NewIterator(s1, []string{"a", "k"}, 0)
		require.NoError(t, err)

		e, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1", e.Value)
		held := e.Node

		require.NoError(t, s1.Replace(mustParse(t, three)))
		assert.False(t, held.Alive())

		assert.Equal(t, []string{"k=2", "k=3"}, drain(t, it))
	})

	t.Run("Shrunk tree continues with next source", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", three)
		s2 := sourceFrom(t, "s2", `
[a]
k = "9"
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, _, err := it.Next()
			require.NoError(t, err)
		}

		require.NoError(t, s1.Replace(mustParse(t, `
[a]
k = "1"
`)))
		assert.Equal(t, []string{"k=9"}, drain(t, it))
	})

	t.Run("Section removed by reload", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", three)
		s2 := sourceFrom(t, "s2", `
[a]
k = "9"
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		_, _, err = it.Next()
		require.NoError(t, err)

		require.NoError(t, s1.Replace(mustParse(t, `other = "x"`)))
		assert.Equal(t, []string{"k=9"}, drain(t, it))
	})

	t.Run("Count is per source", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `
[a]
k = ["1", "2"]
`)
		s2 := sourceFrom(t, "s2", `
[a]
k = ["3", "4", "5"]
`)
		it, err := NewIterator(Link(s1, s2), []string{"a", "k"}, 0)
		require.NoError(t, err)
		for _, want := range []string{"1", "2", "3"} {
			e, ok, err := it.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, e.Value)
		}
		assert.Equal(t, 1, it.num)

		require.NoError(t, s2.Replace(mustParse(t, `
[a]
k = ["3", "4", "5"]
`)))
		assert.Equal(t, []string{"k=4", "k=5"}, drain(t, it))
	})

	t.Run("Reload after source finished", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", `k = "1"`)
		s2 := sourceFrom(t, "s2", `k = "2"`)
		it, err := NewIterator(Link(s1, s2), []string{"k"}, 0)
		require.NoError(t, err)
		_, _, err = it.Next()
		require.NoError(t, err)

		require.NoError(t, s1.Replace(mustParse(t, `k = ["1", "5"]`)))
		assert.Equal(t, []string{"k=2"}, drain(t, it))
	})

	t.Run("Removed cursor node without generation change", func(t *testing.T) {
		s1 := sourceFrom(t, "s1", three)
		it, err := NewIterator(s1, []string{"a", "k"}, 0)
		require.NoError(t, err)
		_, _, err = it.Next()
		require.NoError(t, err)

		section, err := s1.Root().Lookup("a")
		require.NoError(t, err)
		require.NoError(t, section.Remove("k", false))

		assert.Empty(t, drain(t, it))
	})

	t.Run("Resync is logged", func(t *testing.T) {
		var buf bytes.Buffer
		s1 := sourceFrom(t, "s1", three)
		it, err := NewIterator(s1, []string{"a", "k"}, 0)
		require.NoError(t, err)
		it.logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

		_, _, err = it.Next()
		require.NoError(t, err)
		require.NoError(t, s1.Replace(mustParse(t, three)))
		_, _, err = it.Next()
		require.NoError(t, err)

		assert.Contains(t, buf.String(), `"event":"profile.iterator_resync"`)
		assert.Contains(t, buf.String(), `"skip":1`)
	})
}
