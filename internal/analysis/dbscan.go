package analysis

// NoiseLabel is the sentinel emitted by DBSCAN for points it considers
// noise. The spectral partitioner never emits it.
const NoiseLabel = -1

// DBSCAN runs density-based clustering over X with neighborhood radius
// eps and minimum cluster size minSamples. It returns one label per
// sample, NoiseLabel for noise points.
func DBSCAN(X [][]float64, eps float64, minSamples int) ([]int, error) {
	n := len(X)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}

	dist := distanceMatrix(X)

	labels := make([]int, n)
	visited := make([]bool, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	regionQuery := func(p int) []int {
		var region []int
		for q := 0; q < n; q++ {
			if dist[p][q] <= eps {
				region = append(region, q)
			}
		}
		return region
	}

	cluster := 0
	for p := 0; p < n; p++ {
		if visited[p] {
			continue
		}
		visited[p] = true

		region := regionQuery(p)
		if len(region) < minSamples {
			continue
		}

		labels[p] = cluster
		// Expand the cluster breadth-first from the seed region.
		for idx := 0; idx < len(region); idx++ {
			q := region[idx]
			if !visited[q] {
				visited[q] = true
				qRegion := regionQuery(q)
				if len(qRegion) >= minSamples {
					region = append(region, qRegion...)
				}
			}
			if labels[q] == NoiseLabel {
				labels[q] = cluster
			}
		}
		cluster++
	}

	return labels, nil
}
