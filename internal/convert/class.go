package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/archanaanairr/vb6/internal/classify"
	"github.com/archanaanairr/vb6/internal/segment"
)

// ConvertClass translates one .cls unit. Large classes are segmented with
// the class vocabulary and always converted sequentially, because chunk
// coherence matters more for a single class than throughput. Partial
// translations are recombined locally, without another model call.
func (c *Converter) ConvertClass(ctx context.Context, unit Unit, namespace string) (Result, error) {
	if strings.TrimSpace(unit.Text) == "" {
		return nil, &EmptyInputError{Unit: unit.Name}
	}

	if cached, ok := c.lookupCache(unit, namespace); ok {
		return cached, nil
	}

	className := classify.ClassName(unit.Text)

	if len(unit.Text) <= classChunkThreshold {
		prompt := fmt.Sprintf(classPrompt, namespace, unit.Text)
		result, err := c.driver.Request(ctx, prompt, maxTokensUnit, classKeys)
		if err != nil {
			return nil, fmt.Errorf("convert class %s: %w", unit.Name, err)
		}
		result = finalize(result)
		c.storeCache(unit, namespace, result)
		return result, nil
	}

	chunks := segment.Split(unit.Text, segment.ClassVocabulary, classChunkSize)
	c.logger.Info("converting class in chunks",
		"unit", unit.Name,
		"class", className,
		"size", len(unit.Text),
		"chunks", len(chunks),
	)

	build := func(chunk segment.Chunk, prevContext string) string {
		return fmt.Sprintf(classChunkPrompt, chunk.Ordinal, chunk.Total, namespace, className, prevContext, chunk.Text)
	}

	outcomes := c.convertSequential(ctx, chunks, build, maxTokensChunk, classChunkKeys)

	parts := successes(outcomes)
	if len(parts) == 0 {
		return nil, &UnitError{
			Unit:   unit.Name,
			Reason: fmt.Sprintf("all %d chunks failed: %v", len(chunks), firstError(outcomes)),
		}
	}

	combined := combineClassParts(parts, className, namespace)

	final, err := c.ensureUsable(ctx, combined, unit, namespace)
	if err != nil {
		return nil, err
	}

	final = finalize(final)
	c.storeCache(unit, namespace, final)
	return final, nil
}
