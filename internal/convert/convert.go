// Package convert implements the batch conversion pipeline: segmenting
// oversized VB6 units, driving per-chunk model requests with retries and
// validation, and recombining partial translations into final C# files.
package convert

import (
	"log/slog"

	"github.com/archanaanairr/vb6/internal/cache"
)

// Kind distinguishes plain procedural modules (.bas) from classes (.cls).
// The two kinds segment with different vocabularies, use different prompt
// templates, and recombine differently.
type Kind int

const (
	KindModule Kind = iota
	KindClass
)

func (k Kind) String() string {
	if k == KindClass {
		return "class"
	}
	return "module"
}

// Unit is one source file to translate. Immutable once built; the pipeline
// never touches the filesystem, callers produce Units and persist results.
type Unit struct {
	Name string
	Text string
	Kind Kind
}

// Result maps logical output file names (Class.cs, ModuleService.cs, ...) to
// translated C# source. A "ContextSummary" entry only chains context between
// chunks and is stripped from final results.
type Result map[string]string

// ChunkOutcome is one slot of an orchestrated chunk conversion. Exactly one
// of Result and Err is set.
type ChunkOutcome struct {
	Result Result
	Err    error
}

const (
	moduleChunkThreshold = 15000
	moduleChunkSize      = 5000
	classChunkThreshold  = 12000
	classChunkSize       = 4000

	maxTokensUnit    = 12000
	maxTokensChunk   = 8000
	maxTokensCombine = 16000

	contextSummaryKey   = "ContextSummary"
	contextSummaryLimit = 500

	// DefaultRetries is the retry budget after the first attempt, so the
	// default is 4 attempts total.
	DefaultRetries = 3

	// DefaultChunkWorkers bounds the pool in concurrent chunk mode.
	DefaultChunkWorkers = 4
)

var (
	moduleKeys      = []string{"Constants.cs", "ModuleService.cs", "IModuleService.cs"}
	classKeys       = []string{"Class.cs"}
	moduleChunkKeys = []string{"Chunk.cs"}
	classChunkKeys  = []string{"ClassChunk.cs"}
)

// Converter applies the per-unit conversion policy: whether to segment,
// which templates and schema keys to use, and how to recombine.
type Converter struct {
	driver            *Driver
	results           *cache.Cache[Result]
	workers           int
	concurrentModules bool
	logger            *slog.Logger
}

// NewConverter builds a Converter. results may be nil to disable caching;
// workers <= 0 falls back to DefaultChunkWorkers.
func NewConverter(driver *Driver, results *cache.Cache[Result], workers int, concurrentModules bool, logger *slog.Logger) *Converter {
	if workers <= 0 {
		workers = DefaultChunkWorkers
	}
	return &Converter{
		driver:            driver,
		results:           results,
		workers:           workers,
		concurrentModules: concurrentModules,
		logger:            logger,
	}
}

func (c *Converter) lookupCache(unit Unit, namespace string) (Result, bool) {
	if c.results == nil {
		return nil, false
	}
	result, ok := c.results.Get(cache.Key(unit.Kind.String(), namespace, unit.Text))
	if ok {
		c.logger.Debug("translation cache hit", "unit", unit.Name)
	}
	return result, ok
}

func (c *Converter) storeCache(unit Unit, namespace string, result Result) {
	if c.results == nil {
		return
	}
	c.results.Add(cache.Key(unit.Kind.String(), namespace, unit.Text), result)
}

// finalize strips the chaining-only context entry before a result is handed
// to the caller.
func finalize(result Result) Result {
	delete(result, contextSummaryKey)
	return result
}

// successes collects the results of succeeded slots in chunk order.
func successes(outcomes []ChunkOutcome) []Result {
	parts := make([]Result, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			parts = append(parts, o.Result)
		}
	}
	return parts
}

func firstError(outcomes []ChunkOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
