package analysis

import (
	"math"
)

// Standardize rescales each column of X to zero mean and unit variance
// using statistics fit on X itself. Columns with zero variance map to
// zero. The input is not modified.
func Standardize(X [][]float64) ([][]float64, error) {
	n := len(X)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	d := len(X[0])

	means := make([]float64, d)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	stds := make([]float64, d)
	for _, row := range X {
		for j, v := range row {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
	}

	out := make([][]float64, n)
	for i, row := range X {
		out[i] = make([]float64, d)
		for j, v := range row {
			if stds[j] > 0 {
				out[i][j] = (v - means[j]) / stds[j]
			}
		}
	}
	return out, nil
}

// euclidean returns the Euclidean distance between two equal-length
// vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// distanceMatrix computes the symmetric pairwise distance matrix of X.
func distanceMatrix(X [][]float64) [][]float64 {
	n := len(X)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(X[i], X[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// nearestNeighbors returns, for each sample, the indices of its k
// nearest neighbors by the supplied distance matrix, excluding itself.
func nearestNeighbors(dist [][]float64, k int) [][]int {
	n := len(dist)
	if k > n-1 {
		k = n - 1
	}
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		idx := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				idx = append(idx, j)
			}
		}
		// Selection by repeated minimum keeps ties deterministic by index.
		for s := 0; s < k; s++ {
			min := s
			for t := s + 1; t < len(idx); t++ {
				if dist[i][idx[t]] < dist[i][idx[min]] {
					min = t
				}
			}
			idx[s], idx[min] = idx[min], idx[s]
		}
		neighbors[i] = idx[:k]
	}
	return neighbors
}
