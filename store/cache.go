package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ComputeFunc derives an artifact on a cache miss.
type ComputeFunc func(ctx context.Context) (string, error)

// ArtifactCache maps a document name to its section text. The first
// non-empty result for a name is authoritative: later calls return it
// without looking at the document again, even if its content changed.
type ArtifactCache struct {
	store Store
}

func NewArtifactCache(s Store) *ArtifactCache {
	return &ArtifactCache{store: s}
}

// GetOrCompute returns the stored artifact for name, or runs compute and
// stores its result. fresh reports whether compute ran. An empty result
// is returned but never stored, so the next call computes again.
func (c *ArtifactCache) GetOrCompute(ctx context.Context, name string, compute ComputeFunc) (text string, fresh bool, err error) {
	text, ok, err := c.store.Get(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("artifact lookup: %w", err)
	}
	if ok {
		slog.Debug("artifact.hit", "name", name, "bytes", len(text))
		return text, false, nil
	}

	text, err = compute(ctx)
	if err != nil {
		return "", true, err
	}
	if text == "" {
		slog.Debug("artifact.empty", "name", name)
		return "", true, nil
	}
	if err := c.store.Put(ctx, name, text); err != nil {
		return "", true, fmt.Errorf("artifact store: %w", err)
	}
	slog.Debug("artifact.stored", "name", name, "bytes", len(text))
	return text, true, nil
}

// ResultCache records extraction results per document name as indented
// JSON. It is an output log: nothing reads it to skip work.
type ResultCache struct {
	store Store
}

func NewResultCache(s Store) *ResultCache {
	return &ResultCache{store: s}
}

// Persist overwrites the record for name.
func (c *ResultCache) Persist(ctx context.Context, name string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", name, err)
	}
	if err := c.store.Put(ctx, name, string(data)); err != nil {
		return fmt.Errorf("result store: %w", err)
	}
	return nil
}

// Load decodes the record for name into v.
func (c *ResultCache) Load(ctx context.Context, name string, v any) (bool, error) {
	raw, ok, err := c.store.Get(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding result %s: %w", name, err)
	}
	return true, nil
}

// Names lists the documents with a stored result.
func (c *ResultCache) Names(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx)
}

// Marshal renders v as two-space indented JSON with non-ASCII text and
// HTML characters kept literal.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
