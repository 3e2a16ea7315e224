package ticket

import "math"

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-magnitude inputs score 0 rather than erroring; a knowledge base with a
// malformed row should lose the ranking, not fail the query.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
