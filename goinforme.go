// Package goinforme extracts visit dates, affected wells and background
// references from technical inspection reports in PDF form.
package goinforme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/brunobiangulo/goinforme/extraction"
	"github.com/brunobiangulo/goinforme/llm"
	"github.com/brunobiangulo/goinforme/parser"
	"github.com/brunobiangulo/goinforme/sections"
	"github.com/brunobiangulo/goinforme/store"
)

// Engine is the main entry point for report extraction.
type Engine interface {
	// Process runs the full pipeline for one upload: section text (cached
	// per document name), model call, validation, result persistence.
	Process(ctx context.Context, filename string, data []byte) (*Result, error)

	// Sections returns the section text for an upload without calling the
	// model. fresh reports whether it was computed by this call.
	Sections(ctx context.Context, filename string, data []byte) (text string, fresh bool, err error)

	// Result returns the stored result for a document name.
	Result(ctx context.Context, name string) (*Result, error)

	// Results returns every stored result, ordered by name.
	Results(ctx context.Context) ([]NamedResult, error)

	// Close releases the stores.
	Close() error
}

// Result is the record extracted from one report.
type Result = extraction.Result

// NamedResult pairs a stored result with its document name.
type NamedResult struct {
	Name string `json:"name"`
	Result
}

// Option customises an engine built by New.
type Option func(*engine)

// WithProvider replaces the model client built from Config.Chat.
func WithProvider(p llm.Provider) Option {
	return func(e *engine) { e.provider = p }
}

// WithExtractor replaces the PDF text extractor.
func WithExtractor(x parser.Extractor) Option {
	return func(e *engine) { e.extractor = x }
}

// WithStores replaces the backends selected by Config.Store.
func WithStores(texts, results store.Store) Option {
	return func(e *engine) { e.texts, e.results = texts, results }
}

type engine struct {
	cfg       Config
	provider  llm.Provider
	extractor parser.Extractor
	locator   *sections.Locator
	texts     store.Store
	results   store.Store
	artifacts *store.ArtifactCache
	records   *store.ResultCache
	closer    func() error
}

// New creates an engine. Stores are opened according to cfg.Store unless
// WithStores is given.
func New(cfg Config, opts ...Option) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &engine{
		cfg:       cfg,
		extractor: parser.PDF{},
		closer:    func() error { return nil },
	}
	for _, opt := range opts {
		opt(e)
	}

	e.locator = sections.DefaultLocator()
	if len(cfg.Sections) > 0 {
		l, err := sections.NewLocator(cfg.Sections)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		e.locator = l
	}

	if e.provider == nil {
		p, err := llm.NewProvider(cfg.llmConfig())
		if err != nil {
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
		e.provider = p
	}

	if e.texts == nil || e.results == nil {
		if err := e.openStores(); err != nil {
			return nil, err
		}
	}
	e.artifacts = store.NewArtifactCache(e.texts)
	e.records = store.NewResultCache(e.results)

	slog.Info("engine ready",
		"store", cfg.Store,
		"data_dir", cfg.dataDir(),
		"provider", cfg.Chat.Provider,
		"model", cfg.Chat.Model,
	)
	return e, nil
}

func (e *engine) openStores() error {
	switch e.cfg.Store {
	case "memory":
		e.texts, e.results = store.NewMemoryStore(), store.NewMemoryStore()
	case "sqlite":
		db, err := store.OpenSQLite(context.Background(), e.cfg.resolveDBPath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		e.texts, e.results = db.Bucket("texts"), db.Bucket("results")
		e.closer = db.Close
	default:
		texts, err := store.NewFileStore(filepath.Join(e.cfg.dataDir(), e.cfg.TextDir), ".txt")
		if err != nil {
			return err
		}
		results, err := store.NewFileStore(filepath.Join(e.cfg.dataDir(), e.cfg.ResultDir), ".json")
		if err != nil {
			return err
		}
		e.texts, e.results = texts, results
	}
	return nil
}

// DocumentName derives the cache key from an uploaded file name: the
// base name without its final extension, which must be .pdf.
func DocumentName(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", ErrNoFile
	}
	// Some browsers send the client-side path.
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".pdf") {
		return "", ErrNotPDF
	}
	name := strings.TrimSuffix(base, ext)
	if store.ValidateKey(name) != nil {
		return "", ErrNotPDF
	}
	return name, nil
}

func (e *engine) Sections(ctx context.Context, filename string, data []byte) (string, bool, error) {
	name, err := DocumentName(filename)
	if err != nil {
		return "", false, err
	}
	return e.sectionText(ctx, name, data)
}

// sectionText consults the artifact cache first. A hit is returned even
// if data has changed or would no longer yield any section.
func (e *engine) sectionText(ctx context.Context, name string, data []byte) (string, bool, error) {
	text, fresh, err := e.artifacts.GetOrCompute(ctx, name, func(ctx context.Context) (string, error) {
		if !parser.IsPDF(data) {
			return "", ErrNotPDF
		}
		raw, err := e.extractor.Extract(ctx, data)
		if errors.Is(err, parser.ErrInvalidPDF) {
			return "", fmt.Errorf("%w: %v", ErrNotPDF, err)
		}
		if err != nil {
			return "", fmt.Errorf("extracting text: %w", err)
		}
		if raw == "" {
			return "", ErrNoText
		}
		return e.locator.Locate(raw), nil
	})
	if err != nil {
		return "", fresh, err
	}
	if text == "" {
		return "", fresh, ErrNoSections
	}

	if fresh {
		slog.Info("engine.artifact.computed", "name", name, "bytes", len(text))
	} else {
		slog.Info("engine.artifact.hit", "name", name, "bytes", len(text))
	}
	return text, fresh, nil
}

func (e *engine) Process(ctx context.Context, filename string, data []byte) (*Result, error) {
	name, err := DocumentName(filename)
	if err != nil {
		return nil, err
	}

	text, _, err := e.sectionText(ctx, name, data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model:          e.cfg.Chat.Model,
		Messages:       llm.UserMessage(extraction.BuildPrompt(text)),
		MaxTokens:      e.cfg.Chat.MaxTokens,
		Temperature:    e.cfg.Chat.Temperature,
		ResponseFormat: e.cfg.Chat.ResponseFormat,
	})
	if err != nil {
		ue := &UpstreamError{Op: "model call", Err: err}
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			ue.Raw = apiErr.Body
		}
		return nil, ue
	}

	result, err := extraction.Parse(resp.Content)
	if err != nil {
		return nil, &UpstreamError{Op: "model reply", Raw: resp.Raw, Err: err}
	}

	if err := e.records.Persist(ctx, name, result); err != nil {
		return nil, err
	}

	slog.Info("engine.result.stored",
		"name", name,
		"model", resp.Model,
		"total_tokens", resp.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

func (e *engine) Result(ctx context.Context, name string) (*Result, error) {
	if err := store.ValidateKey(name); err != nil {
		return nil, ErrResultNotFound
	}
	var r Result
	ok, err := e.records.Load(ctx, name, &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrResultNotFound
	}
	return &r, nil
}

func (e *engine) Results(ctx context.Context) ([]NamedResult, error) {
	names, err := e.records.Names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]NamedResult, 0, len(names))
	for _, name := range names {
		var r Result
		ok, err := e.records.Load(ctx, name, &r)
		if err != nil {
			slog.Warn("skipping unreadable result", "name", name, "error", err)
			continue
		}
		if ok {
			out = append(out, NamedResult{Name: name, Result: r})
		}
	}
	return out, nil
}

func (e *engine) Close() error {
	return e.closer()
}
