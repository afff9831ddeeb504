package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
	"github.com/dep2p/go-pgas/internal/core/storage/engine/badger"
	"github.com/dep2p/go-pgas/internal/core/storage/engine/memory"
)

func TestOpen(t *testing.T) {
	t.Run("default is memory", func(t *testing.T) {
		eng, err := Open(Options{})
		require.NoError(t, err)
		defer eng.Close()
		assert.IsType(t, &memory.Engine{}, eng)
	})

	t.Run("data dir selects badger", func(t *testing.T) {
		eng, err := Open(Options{DataDir: t.TempDir()})
		require.NoError(t, err)
		defer eng.Close()
		assert.IsType(t, &badger.Engine{}, eng)
	})

	t.Run("badger in memory", func(t *testing.T) {
		eng, err := Open(Options{Backend: BackendBadger})
		require.NoError(t, err)
		defer eng.Close()
		require.NoError(t, eng.Put([]byte("k"), []byte("v")))
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(Options{Backend: "rocks"})
		assert.ErrorIs(t, err, engine.ErrInvalidConfig)
	})
}
