package vector

import (
	"fmt"
	"strings"
)

// Metric is the distance function a collection is created with.
type Metric string

const (
	// MetricCosine is the angle between vectors (1 - cosine similarity).
	MetricCosine Metric = "cosine"

	// MetricL2 is the squared euclidean distance.
	MetricL2 Metric = "l2"

	// MetricIP is the negated inner product.
	MetricIP Metric = "ip"
)

// DefaultMetric is used when none is configured. Cosine tends to perform best
// for high-dimensional text embeddings.
const DefaultMetric = MetricCosine

// ParseMetric parses a metric name, case-insensitively. An empty string yields
// DefaultMetric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMetric, nil
	case MetricCosine:
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	case MetricIP:
		return MetricIP, nil
	default:
		return "", fmt.Errorf("unsupported distance metric %q (supported: cosine, l2, ip)", s)
	}
}
