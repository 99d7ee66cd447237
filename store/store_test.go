package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "txts"), ".txt")
	require.NoError(t, err)
	return s
}

// backends returns every Store implementation that does not need cgo.
func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   newFileStore(t),
	}
}

// ---------------------------------------------------------------------------
// Store contract
// ---------------------------------------------------------------------------

func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "informe")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "informe", "3.2 VISITA TÉCNICA"))
	v, ok, err := s.Get(ctx, "informe")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3.2 VISITA TÉCNICA", v)

	require.NoError(t, s.Put(ctx, "informe", "nuevo"))
	v, _, err = s.Get(ctx, "informe")
	require.NoError(t, err)
	assert.Equal(t, "nuevo", v)

	require.NoError(t, s.Put(ctx, "acta", ""))
	v, ok, err = s.Get(ctx, "acta")
	require.NoError(t, err)
	assert.True(t, ok, "empty values still exist")
	assert.Equal(t, "", v)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acta", "informe"}, keys)

	for _, bad := range []string{"", " ", ".", "..", "../etc/passwd", `a\b`} {
		err := s.Put(ctx, bad, "x")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", bad)
		_, _, err = s.Get(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", bad)
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { testStoreContract(t, s) })
	}
}

func TestFileStoreLayout(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "CT-599 informe", "texto"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "CT-599 informe.txt"))
	require.NoError(t, err)
	assert.Equal(t, "texto", string(data))

	// No temp files are left behind.
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notas.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".a.123.tmp"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.txt"), 0755))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStoreConcurrentPut(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	values := []string{strings.Repeat("a", 4096), strings.Repeat("b", 4096)}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, "doc", v))
		}(values[i%2])
	}
	wg.Wait()

	got, ok, err := s.Get(ctx, "doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, values, got, "value must be one complete write")
}

func TestFileStoreCancelledContext(t *testing.T) {
	s := newFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "doc", "x")
	assert.True(t, errors.Is(err, context.Canceled))
}

// ---------------------------------------------------------------------------
// ArtifactCache
// ---------------------------------------------------------------------------

type countingCompute struct {
	calls  int
	result string
	err    error
}

func (c *countingCompute) fn(context.Context) (string, error) {
	c.calls++
	return c.result, c.err
}

func TestArtifactCacheComputesOnce(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewArtifactCache(s)
			ctx := context.Background()
			c := &countingCompute{result: "3.2 VISITA"}

			text, fresh, err := cache.GetOrCompute(ctx, "doc", c.fn)
			require.NoError(t, err)
			assert.True(t, fresh)
			assert.Equal(t, "3.2 VISITA", text)

			text, fresh, err = cache.GetOrCompute(ctx, "doc", c.fn)
			require.NoError(t, err)
			assert.False(t, fresh)
			assert.Equal(t, "3.2 VISITA", text)
			assert.Equal(t, 1, c.calls)
		})
	}
}

func TestArtifactCacheDoesNotStoreEmpty(t *testing.T) {
	s := NewMemoryStore()
	cache := NewArtifactCache(s)
	ctx := context.Background()
	c := &countingCompute{}

	text, fresh, err := cache.GetOrCompute(ctx, "doc", c.fn)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Empty(t, text)

	_, ok, _ := s.Get(ctx, "doc")
	assert.False(t, ok)

	c.result = "4.1.3 antecedentes"
	text, fresh, err = cache.GetOrCompute(ctx, "doc", c.fn)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "4.1.3 antecedentes", text)
	assert.Equal(t, 2, c.calls)
}

func TestArtifactCacheHitIgnoresNewContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "doc", "cached"))

	c := &countingCompute{result: ""}
	text, fresh, err := NewArtifactCache(s).GetOrCompute(ctx, "doc", c.fn)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "cached", text)
	assert.Zero(t, c.calls)
}

func TestArtifactCacheComputeError(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")
	c := &countingCompute{result: "ignored", err: boom}

	_, _, err := NewArtifactCache(s).GetOrCompute(context.Background(), "doc", c.fn)
	assert.ErrorIs(t, err, boom)

	keys, _ := s.Keys(context.Background())
	assert.Empty(t, keys)
}

// ---------------------------------------------------------------------------
// ResultCache
// ---------------------------------------------------------------------------

type record struct {
	Fecha string `json:"visita_tecnica_fecha"`
	Pozos string `json:"pozos_afectados"`
}

func TestResultCachePersist(t *testing.T) {
	s := newFileStore(t)
	cache := NewResultCache(s)
	ctx := context.Background()

	require.NoError(t, cache.Persist(ctx, "doc", record{Fecha: "2023-05-01", Pozos: "PZ1 & PO-1, Ñ"}))

	raw, err := os.ReadFile(s.Path("doc"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"visita_tecnica_fecha\": \"2023-05-01\",\n  \"pozos_afectados\": \"PZ1 & PO-1, Ñ\"\n}", string(raw))

	require.NoError(t, cache.Persist(ctx, "doc", record{Fecha: "2024-01-02"}))
	var got record
	ok, err := cache.Load(ctx, "doc", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{Fecha: "2024-01-02"}, got)

	names, err := cache.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, names)
}

func TestResultCacheLoadMissing(t *testing.T) {
	var got record
	ok, err := NewResultCache(NewMemoryStore()).Load(context.Background(), "nada", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
