package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadVersions(t *testing.T) {
	s := New()

	_, ok, err := s.LoadSlice("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), s.Version("k"))

	require.NoError(t, s.SaveSlice("k", []byte("one")))
	require.NoError(t, s.SaveSlice("k", []byte("two")))

	got, ok, err := s.LoadSlice("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(got))
	assert.Equal(t, int64(2), s.Version("k"))
}

func TestLoadReturnsCopy(t *testing.T) {
	s := New()
	buf := []byte("abc")
	require.NoError(t, s.SaveSlice("k", buf))
	buf[0] = 'x'

	got, _, _ := s.LoadSlice("k")
	assert.Equal(t, "abc", string(got), "store must not alias caller buffers")
	got[1] = 'y'

	again, _, _ := s.LoadSlice("k")
	assert.Equal(t, "abc", string(again))
}

func TestHydrateKeysClear(t *testing.T) {
	s := New()
	n := s.Hydrate(map[string][]byte{"b": []byte("2"), "a": []byte("1")})
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Count())

	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.NoError(t, s.Close())
}

func TestExportImport(t *testing.T) {
	src := New()
	require.NoError(t, src.SaveSlice("chats", []byte(`[{"id":"a"}]`)))
	require.NoError(t, src.SaveSlice("current", []byte("a")))

	data, err := src.Export()
	require.NoError(t, err)

	dst := New()
	require.NoError(t, dst.SaveSlice("stale", []byte("x")))
	n, err := dst.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"chats", "current"}, dst.Keys(), "import replaces previous contents")

	got, ok, err := dst.LoadSlice("chats")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveSlice("keep", []byte("1")))

	_, err := s.Import([]byte("{not json"))
	assert.Error(t, err)
	assert.Equal(t, []string{"keep"}, s.Keys(), "failed import must not clear the store")

	n, err := s.Import(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, s.Count())
}
