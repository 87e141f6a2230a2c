package convert

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/archanaanairr/vb6/internal/segment"
)

// promptBuilder renders one chunk's prompt. prevContext is the truncated
// context summary of the preceding successful chunk, empty in concurrent
// mode and after a failed chunk.
type promptBuilder func(chunk segment.Chunk, prevContext string) string

// convertSequential processes chunks strictly in order, threading each
// success's context summary into the next prompt. A failed chunk records its
// error in its slot and propagates an empty context; it never aborts the
// siblings. The returned slice always has one slot per chunk.
func (c *Converter) convertSequential(ctx context.Context, chunks []segment.Chunk, build promptBuilder, maxTokens int, expectKeys []string) []ChunkOutcome {
	outcomes := make([]ChunkOutcome, len(chunks))
	prevContext := ""

	for i, chunk := range chunks {
		result, err := c.driver.Request(ctx, build(chunk, prevContext), maxTokens, expectKeys)
		if err != nil {
			c.logger.Warn("chunk conversion failed", "chunk", chunk.Ordinal, "total", chunk.Total, "error", err)
			outcomes[i] = ChunkOutcome{Err: err}
			prevContext = ""
			continue
		}
		outcomes[i] = ChunkOutcome{Result: result}
		prevContext = truncate(result[contextSummaryKey], contextSummaryLimit)
	}

	return outcomes
}

// convertConcurrent dispatches chunks to a bounded worker pool with no
// cross-chunk context. Slot order follows chunk ordinals regardless of
// completion order; each worker writes exactly one slot. Cancellation marks
// the remaining slots with the context error.
func (c *Converter) convertConcurrent(ctx context.Context, chunks []segment.Chunk, build promptBuilder, maxTokens int, expectKeys []string) []ChunkOutcome {
	outcomes := make([]ChunkOutcome, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.workers)

	for i, chunk := range chunks {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = ChunkOutcome{Err: ctx.Err()}
				return ctx.Err()
			}
			defer func() { <-sem }()

			result, err := c.driver.Request(ctx, build(chunk, ""), maxTokens, expectKeys)
			if err != nil {
				c.logger.Warn("chunk conversion failed", "chunk", chunk.Ordinal, "total", chunk.Total, "error", err)
				outcomes[i] = ChunkOutcome{Err: err}
				return nil
			}
			outcomes[i] = ChunkOutcome{Result: result}
			return nil
		})
	}

	// Workers only surface context cancellation; per-chunk failures stay in
	// their slots.
	_ = g.Wait()
	return outcomes
}
