package graphidx

// Config tunes the PageRank iteration per spec's redesign guidance: a
// compact adjacency representation plus configurable damping, tolerance,
// and iteration cap.
type Config struct {
	Damping       float64 // default 0.85
	Tolerance     float64 // default 1e-6, L1 convergence threshold
	MaxIterations int     // default 100
}

// DefaultConfig returns the standard PageRank tuning.
func DefaultConfig() Config {
	return Config{Damping: 0.85, Tolerance: 1e-6, MaxIterations: 100}
}

func (c Config) withDefaults() Config {
	if c.Damping == 0 {
		c.Damping = 0.85
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-6
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 100
	}
	return c
}

// PageRank runs power-iteration PageRank over g's adjacency, returning a
// rank per node that sums to 1. Dangling nodes (no out-edges) redistribute
// their mass uniformly across all nodes, the standard random-surfer fix.
func PageRank(g *Graph, cfg Config) map[string]float64 {
	cfg = cfg.withDefaults()
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, id := range nodes {
		rank[id] = initial
	}

	outDegree := make(map[string]int, n)
	for _, id := range nodes {
		outDegree[id] = len(g.Successors(id))
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		next := make(map[string]float64, n)
		var danglingMass float64
		for _, id := range nodes {
			if outDegree[id] == 0 {
				danglingMass += rank[id]
			}
		}

		base := (1 - cfg.Damping) / float64(n)
		redistributed := cfg.Damping * danglingMass / float64(n)
		for _, id := range nodes {
			next[id] = base + redistributed
		}

		for _, id := range nodes {
			if outDegree[id] == 0 {
				continue
			}
			share := cfg.Damping * rank[id] / float64(outDegree[id])
			for _, succ := range g.Successors(id) {
				next[succ] += share
			}
		}

		delta := 0.0
		for _, id := range nodes {
			delta += abs(next[id] - rank[id])
		}
		rank = next
		if delta < cfg.Tolerance {
			break
		}
	}

	return rank
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
