package scoring

import (
	"math"
	"strings"
)

// BM25 Okapi parameters.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// bm25 ranks documents against a query with the Okapi BM25 function.
// Negative IDF values are floored at epsilon times the mean IDF so very
// common terms still contribute a small positive weight.
type bm25 struct {
	corpus    [][]string
	docLens   []float64
	avgDocLen float64
	idf       map[string]float64
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func newBM25(corpus [][]string) *bm25 {
	b := &bm25{
		corpus:  corpus,
		docLens: make([]float64, len(corpus)),
		idf:     make(map[string]float64),
	}

	docFreq := make(map[string]int)
	var totalLen float64
	for i, doc := range corpus {
		b.docLens[i] = float64(len(doc))
		totalLen += b.docLens[i]

		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}
	if len(corpus) > 0 {
		b.avgDocLen = totalLen / float64(len(corpus))
	}

	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, freq := range docFreq {
		idf := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		b.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}

	if len(docFreq) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(docFreq))
		for _, term := range negative {
			b.idf[term] = floor
		}
	}

	return b
}

func (b *bm25) scores(query []string) []float64 {
	scores := make([]float64, len(b.corpus))
	for i, doc := range b.corpus {
		freq := make(map[string]int, len(doc))
		for _, term := range doc {
			freq[term]++
		}

		var score float64
		for _, term := range query {
			f := float64(freq[term])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*b.docLens[i]/b.avgDocLen
			score += b.idf[term] * f * (bm25K1 + 1) / (f + bm25K1*norm)
		}
		scores[i] = score
	}
	return scores
}

// cosine returns the cosine similarity of two vectors, 0 when either has a
// zero norm.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
