package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"nuvex/core"

	"go.uber.org/zap"
)

// DefaultTopK is the number of similar cases retrieved when the caller does
// not specify a limit.
const DefaultTopK = 3

// CaseMemory holds the historical offense corpus with precomputed
// embeddings. It is constructed once at startup and never written to at
// runtime, so Retrieve is safe for concurrent use without locking.
type CaseMemory struct {
	cases    []Case
	vectors  [][]float64
	embedder Embedder
	logger   *zap.SugaredLogger
}

// NewCaseMemory embeds every corpus entry and returns the ready memory. An
// embedding failure during construction is fatal, since a partially embedded
// corpus would silently skew retrieval.
func NewCaseMemory(ctx context.Context, cases []Case, embedder Embedder, logger *zap.SugaredLogger) (*CaseMemory, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	vectors := make([][]float64, len(cases))
	for i := range cases {
		vec, err := embedder.Embed(ctx, canonicalCaseText(&cases[i]))
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus entry %d: %w", i, err)
		}
		vectors[i] = vec
	}

	logger.Infow("Case memory initialized", "corpus_size", len(cases), "dimensions", embedder.Dimensions())
	return &CaseMemory{
		cases:    cases,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Size returns the number of corpus entries.
func (m *CaseMemory) Size() int {
	return len(m.cases)
}

// Retrieve returns up to topK cases most similar to the offense, ordered by
// descending cosine similarity with ties broken by corpus insertion order.
// topK <= 0 uses DefaultTopK. The returned cases are deep copies; mutating
// them never affects the corpus. An empty corpus or a failed query embedding
// yields an empty result, never an error.
func (m *CaseMemory) Retrieve(ctx context.Context, offense *core.Offense, topK int) []core.SimilarCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(m.cases) == 0 {
		return nil
	}

	query := canonicalQueryText(offense.Description, offense.SourceIPs, offense.DestinationIPs, offense.LogSources)
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warnw("Failed to embed query offense, skipping retrieval",
			"offense_id", offense.ID, "error", err)
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.vectors))
	for i, vec := range m.vectors {
		scores[i] = scored{idx: i, score: cosineSimilarity(queryVec, vec)}
	}

	// Stable sort keeps corpus insertion order for equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]core.SimilarCase, 0, topK)
	for _, s := range scores[:topK] {
		out = append(out, m.copyCase(s.idx, s.score))
	}
	return out
}

// copyCase snapshots a corpus entry so pipeline code cannot mutate the
// corpus through the returned value. The similarity score is rounded to
// three decimals for stable presentation.
func (m *CaseMemory) copyCase(idx int, score float64) core.SimilarCase {
	c := m.cases[idx]
	return core.SimilarCase{
		Description:    c.Description,
		SourceIPs:      append([]string(nil), c.SourceIPs...),
		DestinationIPs: append([]string(nil), c.DestinationIPs...),
		LogSource:      c.LogSource,
		Tags:           append([]string(nil), c.Tags...),
		Similarity:     math.Round(score*1000) / 1000,
	}
}
