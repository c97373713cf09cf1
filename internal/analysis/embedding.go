package analysis

import (
	"math"
	"math/rand"
)

// Embedding holds the low-dimensional projection of a sample matrix.
// Available is false when the input was too small to embed; the rest of
// the pipeline proceeds without coordinates in that case.
type Embedding struct {
	Coords    [][2]float64
	Available bool
}

const (
	embedEpochs       = 200
	embedLearningRate = 0.1
	embedRepulsions   = 3
)

// Embed projects the normalized matrix X to 2-D with a kNN-graph
// attract/repel layout: neighbors in feature space pull their embedded
// points together, sampled non-neighbors push apart, and minDist floors
// how close distinct points may settle. neighbors is clamped to n-1.
// The layout is deterministic for a fixed seed.
func Embed(X [][]float64, neighbors int, minDist float64, seed int64) Embedding {
	n := len(X)
	if n < 2 {
		return Embedding{Available: false}
	}
	if neighbors > n-1 {
		neighbors = n - 1
	}
	if neighbors < 1 {
		neighbors = 1
	}
	if minDist <= 0 {
		minDist = 0.1
	}

	dist := distanceMatrix(X)
	knn := nearestNeighbors(dist, neighbors)

	rng := rand.New(rand.NewSource(seed))
	coords := make([][2]float64, n)
	for i := range coords {
		coords[i][0] = rng.Float64()*2 - 1
		coords[i][1] = rng.Float64()*2 - 1
	}

	for epoch := 0; epoch < embedEpochs; epoch++ {
		// Learning rate decays linearly to zero.
		lr := embedLearningRate * (1 - float64(epoch)/float64(embedEpochs))

		for i := 0; i < n; i++ {
			// Attraction along kNN edges.
			for _, j := range knn[i] {
				dx := coords[j][0] - coords[i][0]
				dy := coords[j][1] - coords[i][1]
				d := math.Hypot(dx, dy)
				if d <= minDist {
					continue
				}
				pull := lr * (d - minDist) / d
				coords[i][0] += pull * dx
				coords[i][1] += pull * dy
			}

			// Repulsion from sampled non-neighbors.
			for s := 0; s < embedRepulsions; s++ {
				j := rng.Intn(n)
				if j == i || isNeighbor(knn[i], j) {
					continue
				}
				dx := coords[j][0] - coords[i][0]
				dy := coords[j][1] - coords[i][1]
				d := math.Hypot(dx, dy)
				if d < 1e-9 {
					// Coincident points: nudge apart on a seeded direction.
					angle := rng.Float64() * 2 * math.Pi
					coords[i][0] += minDist * math.Cos(angle)
					coords[i][1] += minDist * math.Sin(angle)
					continue
				}
				push := lr / (1 + d*d) / d
				coords[i][0] -= push * dx
				coords[i][1] -= push * dy
			}
		}
	}

	return Embedding{Coords: coords, Available: true}
}

func isNeighbor(knn []int, j int) bool {
	for _, v := range knn {
		if v == j {
			return true
		}
	}
	return false
}
