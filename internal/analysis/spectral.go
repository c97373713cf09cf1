package analysis

import (
	"math"
	"math/rand"
	"sort"
)

const (
	powerIterations = 300
	kmeansRounds    = 50
)

// SpectralCluster partitions X into k clusters: an RBF affinity graph is
// symmetrically normalized, its top-k eigenvectors are extracted by
// power iteration with deflation, and the resulting spectral embedding
// is grouped with seeded k-means. Labels are in [0, k).
func SpectralCluster(X [][]float64, k int, seed int64) ([]int, error) {
	n := len(X)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	if k > n {
		return nil, &InsufficientSamplesError{Stage: "spectral clustering", Need: k, Got: n}
	}
	if k == 1 {
		return make([]int, n), nil
	}

	dist := distanceMatrix(X)
	sigma := medianDistance(dist)
	if sigma <= 0 {
		sigma = 1
	}

	// RBF affinity with symmetric degree normalization.
	affinity := make([][]float64, n)
	degree := make([]float64, n)
	for i := range affinity {
		affinity[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i != j {
				affinity[i][j] = math.Exp(-dist[i][j] * dist[i][j] / (2 * sigma * sigma))
			}
			degree[i] += affinity[i][j]
		}
	}
	norm := make([][]float64, n)
	for i := range norm {
		norm[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if degree[i] > 0 && degree[j] > 0 {
				norm[i][j] = affinity[i][j] / math.Sqrt(degree[i]*degree[j])
			}
		}
	}
	// Shift by the identity so every eigenvalue is non-negative and
	// power iteration converges on the leading spectral directions.
	for i := 0; i < n; i++ {
		norm[i][i] += 1
	}

	rng := rand.New(rand.NewSource(seed))
	basis := topEigenvectors(norm, k, rng)

	// Row-normalize the spectral embedding before k-means.
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, k)
		var sum float64
		for j := 0; j < k; j++ {
			rows[i][j] = basis[j][i]
			sum += rows[i][j] * rows[i][j]
		}
		if sum > 0 {
			sum = math.Sqrt(sum)
			for j := 0; j < k; j++ {
				rows[i][j] /= sum
			}
		}
	}

	return kmeans(rows, k, rng), nil
}

// topEigenvectors extracts the k leading eigenvectors of the symmetric
// matrix M by power iteration with deflation.
func topEigenvectors(M [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(M)
	work := make([][]float64, n)
	for i := range work {
		work[i] = make([]float64, n)
		copy(work[i], M[i])
	}

	vectors := make([][]float64, k)
	for e := 0; e < k; e++ {
		v := make([]float64, n)
		for i := range v {
			v[i] = rng.Float64() - 0.5
		}
		normalizeVec(v)

		var lambda float64
		for it := 0; it < powerIterations; it++ {
			next := matVec(work, v)
			lambda = normalizeVec(next)
			v = next
		}
		vectors[e] = v

		// Deflate: work -= lambda * v v^T.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				work[i][j] -= lambda * v[i] * v[j]
			}
		}
	}
	return vectors
}

// kmeans clusters the rows into k groups. Initialization is
// farthest-first: a seeded random row starts, then each next centroid
// is the row farthest from every centroid chosen so far.
func kmeans(rows [][]float64, k int, rng *rand.Rand) []int {
	n := len(rows)
	d := len(rows[0])

	centroids := make([][]float64, k)
	centroids[0] = make([]float64, d)
	copy(centroids[0], rows[rng.Intn(n)])
	for c := 1; c < k; c++ {
		best, bestDist := 0, -1.0
		for i, row := range rows {
			near := math.Inf(1)
			for _, cent := range centroids[:c] {
				if dd := euclidean(row, cent); dd < near {
					near = dd
				}
			}
			if near > bestDist {
				best, bestDist = i, near
			}
		}
		centroids[c] = make([]float64, d)
		copy(centroids[c], rows[best])
	}

	labels := make([]int, n)
	for round := 0; round < kmeansRounds; round++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, math.Inf(1)
			for c, cent := range centroids {
				if dd := euclidean(row, cent); dd < bestDist {
					best, bestDist = c, dd
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && round > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, row := range rows {
			counts[labels[i]]++
			for j, v := range row {
				sums[labels[i]][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster: reseed from a random row.
				copy(centroids[c], rows[rng.Intn(n)])
				continue
			}
			for j := 0; j < d; j++ {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return labels
}

func matVec(M [][]float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for i, row := range M {
		var sum float64
		for j, m := range row {
			sum += m * v[j]
		}
		out[i] = sum
	}
	return out
}

func normalizeVec(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
	return norm
}

// medianDistance returns the median of the off-diagonal pairwise
// distances, the RBF bandwidth heuristic.
func medianDistance(dist [][]float64) float64 {
	n := len(dist)
	if n < 2 {
		return 0
	}
	vals := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			vals = append(vals, dist[i][j])
		}
	}
	return quantile(vals, 0.5)
}

// quantile returns the q-th quantile of vals with linear interpolation.
// vals is copied and sorted internally.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	idx := q * float64(len(sorted)-1)
	lo := int(idx)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
