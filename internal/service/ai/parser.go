package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/prompt"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

// Generator is the part of ModelManager the parser needs.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, preset ModelPreset, dest any, opts *GenerateOptions) (*GenerateMetadata, error)
}

// QueryParser turns a free-text racing question into a bot command.
type QueryParser struct {
	generator Generator
	builder   *prompt.PromptBuilder
	cache     *ParseCache
	now       func() time.Time
	logger    *zap.Logger
}

func NewQueryParser(generator Generator, logger *zap.Logger) *QueryParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryParser{
		generator: generator,
		builder:   prompt.NewPromptBuilder(),
		cache:     NewParseCache(5 * time.Minute),
		now:       util.NowJST,
		logger:    logger,
	}
}

func (p *QueryParser) Parse(ctx context.Context, query string) (*domain.ParseResult, *GenerateMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, errors.NewValidationError("empty question", "query", query)
	}
	query = util.TruncateString(query, constants.AIInputLimits.MaxQueryLength)

	now := p.now()
	cacheKey := now.Format("2006-01-02") + "|" + query
	if entry, ok := p.cache.Get(cacheKey); ok {
		return entry.Result, entry.Metadata, nil
	}

	text, err := p.builder.BuildParserPrompt(now, query)
	if err != nil {
		return nil, nil, err
	}

	var result domain.ParseResult
	meta, err := p.generator.GenerateJSON(ctx, text, PresetPrecise, &result, nil)
	if err != nil {
		return nil, nil, err
	}
	if !result.Command.IsValid() || result.Command == domain.CommandAsk {
		result.Command = domain.CommandUnknown
	}
	if result.Params == nil {
		result.Params = map[string]any{}
	}

	p.logger.Info("Parsed question",
		zap.String("command", result.Command.String()),
		zap.Float64("confidence", result.Confidence),
		zap.String("provider", meta.Provider),
	)
	p.cache.Set(cacheKey, &result, meta)
	return &result, meta, nil
}

type ParseCacheEntry struct {
	Result    *domain.ParseResult
	Metadata  *GenerateMetadata
	Timestamp time.Time
}

// ParseCache keeps parse results for identical questions for a short while.
type ParseCache struct {
	mu      sync.RWMutex
	entries map[string]*ParseCacheEntry
	ttl     time.Duration
}

func NewParseCache(ttl time.Duration) *ParseCache {
	return &ParseCache{
		entries: make(map[string]*ParseCacheEntry),
		ttl:     ttl,
	}
}

func (c *ParseCache) Get(key string) (*ParseCacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Since(entry.Timestamp) >= c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry, true
}

func (c *ParseCache) Set(key string, result *domain.ParseResult, metadata *GenerateMetadata) {
	c.mu.Lock()
	c.entries[key] = &ParseCacheEntry{
		Result:    result,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	c.mu.Unlock()
}
