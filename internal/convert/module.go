package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/archanaanairr/vb6/internal/segment"
)

// ConvertModule translates one .bas unit. Units at or below the size
// threshold go through a single request; larger units are segmented,
// converted chunk by chunk, and recombined by a model-assisted combine
// request. Modules run sequentially unless concurrent mode is configured.
func (c *Converter) ConvertModule(ctx context.Context, unit Unit, namespace string) (Result, error) {
	if strings.TrimSpace(unit.Text) == "" {
		return nil, &EmptyInputError{Unit: unit.Name}
	}

	if cached, ok := c.lookupCache(unit, namespace); ok {
		return cached, nil
	}

	if len(unit.Text) <= moduleChunkThreshold {
		prompt := fmt.Sprintf(modulePrompt, namespace, unit.Text)
		result, err := c.driver.Request(ctx, prompt, maxTokensUnit, moduleKeys)
		if err != nil {
			return nil, fmt.Errorf("convert module %s: %w", unit.Name, err)
		}
		result = finalize(result)
		c.storeCache(unit, namespace, result)
		return result, nil
	}

	chunks := segment.Split(unit.Text, segment.ModuleVocabulary, moduleChunkSize)
	c.logger.Info("converting module in chunks",
		"unit", unit.Name,
		"size", len(unit.Text),
		"chunks", len(chunks),
		"concurrent", c.concurrentModules,
	)

	build := func(chunk segment.Chunk, prevContext string) string {
		return fmt.Sprintf(moduleChunkPrompt, chunk.Ordinal, chunk.Total, namespace, prevContext, chunk.Text)
	}

	var outcomes []ChunkOutcome
	if c.concurrentModules {
		outcomes = c.convertConcurrent(ctx, chunks, build, maxTokensChunk, moduleChunkKeys)
	} else {
		outcomes = c.convertSequential(ctx, chunks, build, maxTokensChunk, moduleChunkKeys)
	}

	parts := successes(outcomes)
	if len(parts) == 0 {
		return nil, &UnitError{
			Unit:   unit.Name,
			Reason: fmt.Sprintf("all %d chunks failed: %v", len(chunks), firstError(outcomes)),
		}
	}

	combined, err := c.combineModuleParts(ctx, parts, unit.Name, namespace)
	if err != nil {
		return nil, fmt.Errorf("combine module %s: %w", unit.Name, err)
	}

	final, err := c.ensureUsable(ctx, combined, unit, namespace)
	if err != nil {
		return nil, err
	}

	final = finalize(final)
	c.storeCache(unit, namespace, final)
	return final, nil
}
