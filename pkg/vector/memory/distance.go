package memory

import (
	"math"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

// Distance computes the distance between a and b under metric. Vectors must
// have equal length.
func Distance(metric vector.Metric, a, b []float32) float32 {
	switch metric {
	case vector.MetricL2:
		return squaredL2(a, b)
	case vector.MetricIP:
		return -dot(a, b)
	default:
		return cosineDistance(a, b)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// cosineDistance is 1 - cos(a, b). Zero vectors are treated as orthogonal to
// everything.
func cosineDistance(a, b []float32) float32 {
	var dp, normA, normB float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return float32(1 - dp/(math.Sqrt(normA)*math.Sqrt(normB)))
}
