// Package scoring ranks raw offers against the candidate profile by fusing
// BM25 keyword relevance with embedding similarity, then reranking the
// candidates that clear the threshold with a cross-encoder.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/francetravail"
	"github.com/iandry357/jobpulse/internal/voyage"
)

const (
	// DefaultThreshold is the minimum fused score an offer needs to reach
	// the rerank stage.
	DefaultThreshold = 0.6
	// DefaultTopK caps the rerank output.
	DefaultTopK = 20
)

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Reranker orders documents by relevance to a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]voyage.Reranking, error)
}

// ScoredOffer pairs a raw offer with its final relevance score in [0,1].
type ScoredOffer struct {
	Offer francetravail.RawOffer
	Score float64
}

type Engine struct {
	embedder  Embedder
	reranker  Reranker
	threshold float64
	topK      int
	logger    *zap.Logger
}

// NewEngine creates a scoring engine. Non-positive threshold or topK fall
// back to the defaults.
func NewEngine(embedder Embedder, reranker Reranker, threshold float64, topK int, logger *zap.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		embedder:  embedder,
		reranker:  reranker,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Score filters and ranks offers against the profile text. An empty input or
// an empty set of candidates above the threshold yields an empty result and
// no error; no external service is called for an empty input.
func (e *Engine) Score(ctx context.Context, offers []francetravail.RawOffer, profileText string) ([]ScoredOffer, error) {
	if len(offers) == 0 {
		return nil, nil
	}

	e.logger.Info("scoring offers", zap.Int("count", len(offers)))

	texts := make([]string, len(offers))
	corpus := make([][]string, len(offers))
	for i, offer := range offers {
		texts[i] = OfferText(offer.Payload)
		corpus[i] = tokenize(texts[i])
	}

	keyword := normalize(newBM25(corpus).scores(tokenize(profileText)))

	// One batched call covers the profile and every offer text.
	embeddings, err := e.embedder.Embed(ctx, append([]string{profileText}, texts...))
	if err != nil {
		return nil, fmt.Errorf("embed offers: %w", err)
	}
	if len(embeddings) != len(offers)+1 {
		return nil, fmt.Errorf("embed offers: got %d vectors for %d texts", len(embeddings), len(offers)+1)
	}
	profileEmb := embeddings[0]

	type candidate struct {
		index int
		fused float64
	}
	var candidates []candidate
	for i := range offers {
		fused := 0.5*keyword[i] + 0.5*cosine(profileEmb, embeddings[i+1])
		if fused >= e.threshold {
			candidates = append(candidates, candidate{index: i, fused: fused})
		}
	}

	if len(candidates) == 0 {
		e.logger.Info("no offers above scoring threshold", zap.Float64("threshold", e.threshold))
		return nil, nil
	}

	candidateTexts := make([]string, len(candidates))
	for i, c := range candidates {
		candidateTexts[i] = texts[c.index]
	}

	reranked, err := e.reranker.Rerank(ctx, profileText, candidateTexts, e.topK)
	if err != nil {
		return nil, fmt.Errorf("rerank offers: %w", err)
	}

	results := make([]ScoredOffer, 0, len(reranked))
	for _, item := range reranked {
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		results = append(results, ScoredOffer{
			Offer: offers[candidates[item.Index].index],
			Score: item.RelevanceScore,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	e.logger.Info("scoring complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("retained", len(results)),
	)
	return results, nil
}

// OfferText flattens an offer payload into the text representation used for
// keyword and embedding scoring.
func OfferText(payload map[string]any) string {
	parts := []string{
		str(payload["intitule"]),
		str(payload["description"]),
		str(payload["romeLibelle"]),
		str(payload["secteurActiviteLibelle"]),
	}

	if competences, ok := payload["competences"].([]any); ok {
		for _, c := range competences {
			if m, ok := c.(map[string]any); ok {
				parts = append(parts, str(m["libelle"]))
			}
		}
	}

	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// normalize divides scores by the corpus maximum and floors negatives at
// zero, keeping the keyword component of the fused score inside [0,1]. A
// degenerate corpus can yield negative raw scores through the IDF floor.
func normalize(scores []float64) []float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	out := make([]float64, len(scores))
	if max <= 0 {
		return out
	}
	for i, s := range scores {
		if s > 0 {
			out[i] = s / max
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
