package scoring

import (
	"math"
	"testing"
)

func TestBM25RanksMatchingDocumentHigher(t *testing.T) {
	corpus := [][]string{
		tokenize("go developer backend microservices kubernetes"),
		tokenize("pastry chef bakery croissants"),
		tokenize("java developer backend spring"),
	}

	scores := newBM25(corpus).scores(tokenize("go backend developer"))

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0] <= scores[1] {
		t.Errorf("expected go doc above pastry doc: %v vs %v", scores[0], scores[1])
	}
	if scores[0] <= scores[2] {
		t.Errorf("expected go doc above java doc: %v vs %v", scores[0], scores[2])
	}
	if scores[1] != 0 {
		t.Errorf("expected zero score for unrelated doc, got %v", scores[1])
	}
}

func TestBM25CommonTermFloor(t *testing.T) {
	// "developer" appears in every document: its raw IDF is negative and must
	// be floored at a small positive weight.
	corpus := [][]string{
		tokenize("developer go"),
		tokenize("developer java"),
		tokenize("developer rust"),
	}

	b := newBM25(corpus)
	if idf := b.idf["developer"]; idf <= 0 {
		t.Fatalf("expected positive floored idf for common term, got %v", idf)
	}

	scores := b.scores(tokenize("developer"))
	for i, s := range scores {
		if s <= 0 {
			t.Errorf("doc %d: expected positive score for common query term, got %v", i, s)
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-12 {
		t.Errorf("identical vectors: expected 1, got %v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal vectors: expected 0, got %v", got)
	}
	if got := cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Errorf("zero-norm vector: expected 0, got %v", got)
	}
	if got := cosine(nil, []float64{1}); got != 0 {
		t.Errorf("empty vector: expected 0, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	out := normalize([]float64{2, 4, 1})
	want := []float64{0.5, 1, 0.25}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], out[i])
		}
	}

	zeros := normalize([]float64{0, 0})
	if zeros[0] != 0 || zeros[1] != 0 {
		t.Fatalf("all-zero input must stay zero, got %v", zeros)
	}
}

func TestNormalizeFloorsNegativeScores(t *testing.T) {
	// Degenerate corpora can push raw scores negative through the IDF floor;
	// the normalized component must stay in [0,1].
	out := normalize([]float64{-0.4, -0.1})
	for i, s := range out {
		if s != 0 {
			t.Fatalf("index %d: expected 0, got %v", i, s)
		}
	}

	mixed := normalize([]float64{-0.5, 2})
	if mixed[0] != 0 || math.Abs(mixed[1]-1) > 1e-12 {
		t.Fatalf("expected [0 1], got %v", mixed)
	}
}
