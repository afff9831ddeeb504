package badger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
)

// testEngine 在临时目录上打开落盘引擎
func testEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := engine.OnDisk(filepath.Join(t.TempDir(), "test.db"))
	cfg.GCInterval = 0

	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})
	return e
}

func TestEngine_PutGet(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Put([]byte("0:heapx:0:base"), []byte{0, 0, 0, 0, 0, 0, 0x10, 0}))

	got, err := e.Get([]byte("0:heapx:0:base"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x10, 0}, got)

	_, err = e.Get([]byte("missing"))
	assert.True(t, engine.IsNotFound(err))

	_, err = e.Get(nil)
	assert.ErrorIs(t, err, engine.ErrEmptyKey)
}

func TestEngine_Insert(t *testing.T) {
	e := testEngine(t)

	_, inserted, err := e.Insert([]byte("k"), []byte("first"))
	require.NoError(t, err)
	assert.True(t, inserted)

	existing, inserted, err := e.Insert([]byte("k"), []byte("second"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, []byte("first"), existing)

	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestEngine_InsertConcurrent(t *testing.T) {
	e := testEngine(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, inserted, err := e.Insert([]byte("k"), []byte{byte(i)})
			assert.NoError(t, err)
			if inserted {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestEngine_Scan(t *testing.T) {
	e := testEngine(t)

	for _, k := range []string{"job/b", "job/a", "other/c"} {
		require.NoError(t, e.Put([]byte(k), []byte(k)))
	}

	var keys []string
	require.NoError(t, e.Scan([]byte("job/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	assert.Equal(t, []string{"job/a", "job/b"}, keys)
}

func TestEngine_Persistence(t *testing.T) {
	cfg := engine.OnDisk(filepath.Join(t.TempDir(), "persist.db"))
	cfg.GCInterval = 0

	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	require.NoError(t, e.Close())

	e, err = New(cfg)
	require.NoError(t, err)
	defer e.Close()

	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestEngine_InMemory(t *testing.T) {
	e, err := New(engine.InMemory())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestEngine_Closed(t *testing.T) {
	e, err := New(engine.InMemory())
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrClosed)
	_, _, err = e.Insert([]byte("k"), nil)
	assert.ErrorIs(t, err, engine.ErrClosed)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(&engine.Config{GCDiscardRatio: 0.5})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(&engine.Config{InMemory: true, GCDiscardRatio: 1})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
