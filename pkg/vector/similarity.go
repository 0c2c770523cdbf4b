package vector

import "math"

// Cosine returns the cosine similarity dot(a,b)/(‖a‖·‖b‖) of two vectors.
//
// The result is clamped to [-1, 1] to absorb floating-point drift. When
// either vector has zero norm the similarity is defined as 0 rather than
// NaN, so rankings over mixed data stay total. Accumulation runs in
// float64 for stability.
//
// Vectors of unequal length are scored over the shared prefix. That keeps
// the function total but the score is meaningless across dimensionalities;
// dimensional hygiene is the caller's job.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
