package blob

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns one open instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := Open(t.TempDir() + "/blob.db")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemory(),
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("items", "a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put("items", "a", []byte("one")))
			require.NoError(t, s.Put("items", "a", []byte("two")))

			got, ok, err := s.Get("items", "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("two"), got)

			// Same key in another namespace is independent.
			_, ok, err = s.Get("other", "a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Delete("items", "a"))
			_, ok, err = s.Get("items", "a")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting an absent key is a no-op.
			require.NoError(t, s.Delete("items", "a"))
		})
	}
}

func TestStore_ScanOrderAndStop(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("ns", "b", []byte("2")))
			require.NoError(t, s.Put("ns", "a", []byte("1")))
			require.NoError(t, s.Put("ns", "c", []byte("3")))

			var keys []string
			err := s.Scan("ns", func(key string, value []byte) error {
				keys = append(keys, key)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, keys)

			stop := errors.New("stop")
			count := 0
			err = s.Scan("ns", func(string, []byte) error {
				count++
				return stop
			})
			assert.ErrorIs(t, err, stop)
			assert.Equal(t, 1, count)
		})
	}
}

func TestStore_AppendRead(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.Len("log")
			require.NoError(t, err)
			assert.Equal(t, uint64(0), n)

			for i := 0; i < 5; i++ {
				idx, err := s.Append("log", []byte(fmt.Sprintf("rec-%d", i)))
				require.NoError(t, err)
				assert.Equal(t, uint64(i), idx)
			}

			n, err = s.Len("log")
			require.NoError(t, err)
			assert.Equal(t, uint64(5), n)

			got, ok, err := s.Read("log", 3)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("rec-3"), got)

			_, ok, err = s.Read("log", 5)
			require.NoError(t, err)
			assert.False(t, ok)

			// Logs are per-namespace.
			idx, err := s.Append("log2", []byte("first"))
			require.NoError(t, err)
			assert.Equal(t, uint64(0), idx)
		})
	}
}

func TestStore_Reset(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Append("log", []byte("a"))
			require.NoError(t, err)
			_, err = s.Append("log", []byte("b"))
			require.NoError(t, err)

			require.NoError(t, s.Reset("log"))

			n, err := s.Len("log")
			require.NoError(t, err)
			assert.Equal(t, uint64(0), n)

			idx, err := s.Append("log", []byte("c"))
			require.NoError(t, err)
			assert.Equal(t, uint64(0), idx)
		})
	}
}

func TestSQLite_Reopen(t *testing.T) {
	path := t.TempDir() + "/blob.db"

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("items", "k", []byte("v")))
	_, err = s.Append("log", []byte("e0"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Open is idempotent and state survives reopen.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.Get("items", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	n, err := s.Len("log")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
