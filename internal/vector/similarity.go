package vector

import (
	"fmt"
	"math"
)

// CosineDistance returns 1 - cos(a, b). A zero-magnitude vector is treated as orthogonal
// to everything (distance 1).
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cosine distance on empty vectors")
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("l2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

func distanceFunc(m Metric) (func(a, b []float32) (float64, error), error) {
	switch m {
	case MetricCosine:
		return CosineDistance, nil
	case MetricL2:
		return L2Distance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

// blobDistance decodes two vector blobs and applies fn. Used by the SQL scalar functions.
func blobDistance(fn func(a, b []float32) (float64, error), a, b []byte) (float64, error) {
	va, err := DecodeVector(a)
	if err != nil {
		return 0, err
	}
	vb, err := DecodeVector(b)
	if err != nil {
		return 0, err
	}
	return fn(va, vb)
}
