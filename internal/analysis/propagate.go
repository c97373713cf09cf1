package analysis

import (
	"math"
	"sort"
)

// UnknownLabel is the sentinel for an unlabeled entry in a seed vector.
const UnknownLabel = -1

const (
	propagateMaxIter = 200
	propagateTol     = 1e-6
)

// Propagate spreads a sparse seed-label vector across all samples over
// a k-nearest-neighbor similarity graph. alpha in [0,1) controls how
// much neighbors are trusted over the original seeds: F is iterated to
// the fixed point of F = alpha*S*F + (1-alpha)*Y and each sample takes
// the argmax label of its row (the transduction). With alpha = 0 every
// seeded sample reproduces its seed exactly.
//
// Returns ErrNoSeedLabels when every entry is UnknownLabel.
func Propagate(X [][]float64, seeds []int, k int, alpha float64) ([]int, error) {
	n := len(X)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	if len(seeds) != n {
		return nil, &InsufficientSamplesError{Stage: "label propagation", Need: n, Got: len(seeds)}
	}

	classes := seedClasses(seeds)
	if len(classes) == 0 {
		return nil, ErrNoSeedLabels
	}
	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	dist := distanceMatrix(X)
	S := similarityGraph(dist, k)

	// Y is the one-hot seed matrix; F starts from it.
	Y := make([][]float64, n)
	F := make([][]float64, n)
	for i := 0; i < n; i++ {
		Y[i] = make([]float64, len(classes))
		F[i] = make([]float64, len(classes))
		if seeds[i] != UnknownLabel {
			Y[i][classIdx[seeds[i]]] = 1
			F[i][classIdx[seeds[i]]] = 1
		}
	}

	for it := 0; it < propagateMaxIter; it++ {
		var delta float64
		next := make([][]float64, n)
		for i := 0; i < n; i++ {
			next[i] = make([]float64, len(classes))
			for c := range classes {
				var spread float64
				for j := 0; j < n; j++ {
					if S[i][j] > 0 {
						spread += S[i][j] * F[j][c]
					}
				}
				next[i][c] = alpha*spread + (1-alpha)*Y[i][c]
				delta += math.Abs(next[i][c] - F[i][c])
			}
		}
		F = next
		if delta < propagateTol {
			break
		}
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		best, bestScore := -1, 0.0
		for c := range classes {
			if F[i][c] > bestScore {
				best, bestScore = c, F[i][c]
			}
		}
		if best < 0 {
			// No mass reached this sample (disconnected or alpha = 0):
			// fall back to the nearest seeded sample's label.
			out[i] = nearestSeedLabel(dist, seeds, i)
			continue
		}
		out[i] = classes[best]
	}
	return out, nil
}

// seedClasses returns the sorted distinct non-sentinel seed labels.
func seedClasses(seeds []int) []int {
	seen := make(map[int]struct{})
	for _, s := range seeds {
		if s != UnknownLabel {
			seen[s] = struct{}{}
		}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// similarityGraph builds a row-normalized RBF similarity matrix over
// the union of each sample's k nearest neighbors.
func similarityGraph(dist [][]float64, k int) [][]float64 {
	n := len(dist)
	sigma := medianDistance(dist)
	if sigma <= 0 {
		sigma = 1
	}

	S := make([][]float64, n)
	for i := range S {
		S[i] = make([]float64, n)
	}
	if n > 1 {
		knn := nearestNeighbors(dist, k)
		for i := 0; i < n; i++ {
			for _, j := range knn[i] {
				w := math.Exp(-dist[i][j] * dist[i][j] / (2 * sigma * sigma))
				S[i][j] = w
				S[j][i] = w
			}
		}
	}
	for i := 0; i < n; i++ {
		var row float64
		for j := 0; j < n; j++ {
			row += S[i][j]
		}
		if row > 0 {
			for j := 0; j < n; j++ {
				S[i][j] /= row
			}
		}
	}
	return S
}

func nearestSeedLabel(dist [][]float64, seeds []int, i int) int {
	best, bestDist := UnknownLabel, math.Inf(1)
	for j, s := range seeds {
		if s == UnknownLabel || j == i {
			continue
		}
		if dist[i][j] < bestDist {
			best, bestDist = s, dist[i][j]
		}
	}
	if best == UnknownLabel && seeds[i] != UnknownLabel {
		return seeds[i]
	}
	return best
}
