package export

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
)

// RankReport describes one level of the tree.
type RankReport struct {
	Rank  string `json:"rank"`
	Nodes int    `json:"nodes"`
	// Branching is the mean number of children per node at this level.
	Branching float64 `json:"branching"`
	// BranchingStdDev is the standard deviation of the child counts.
	BranchingStdDev float64 `json:"branching_stddev"`
	// MedianRecords is the median record count of the level's nodes.
	MedianRecords float64 `json:"median_records"`
	// Largest names the node with the most records.
	Largest      string `json:"largest,omitempty"`
	LargestCount int    `json:"largest_count,omitempty"`
}

// Report summarizes a taxonomy.
type Report struct {
	TotalRecords int          `json:"total_records"`
	TotalNodes   int          `json:"total_nodes"`
	Ranks        []RankReport `json:"ranks"`
}

// BuildReport computes per-rank statistics for t.
func BuildReport(t *hierarchy.Tree) Report {
	r := Report{TotalRecords: t.Total(), TotalNodes: t.Len()}
	byLevel := make(map[int][]*hierarchy.Node)
	maxLevel := -1
	t.Walk(func(n *hierarchy.Node) bool {
		byLevel[n.Level] = append(byLevel[n.Level], n)
		maxLevel = max(maxLevel, n.Level)
		return true
	})

	for level := 0; level <= maxLevel; level++ {
		nodes := byLevel[level]
		rank := ""
		if level < len(t.Levels) {
			rank = t.Levels[level]
		}
		rr := RankReport{Rank: rank, Nodes: len(nodes)}
		if len(nodes) == 0 {
			r.Ranks = append(r.Ranks, rr)
			continue
		}
		children := make([]float64, len(nodes))
		counts := make([]float64, len(nodes))
		for i, n := range nodes {
			children[i] = float64(len(n.Children))
			counts[i] = float64(n.Count)
			if n.Count > rr.LargestCount {
				rr.Largest, rr.LargestCount = n.Name, n.Count
			}
		}
		rr.Branching, rr.BranchingStdDev = stat.MeanStdDev(children, nil)
		if len(nodes) == 1 {
			rr.BranchingStdDev = 0
		}
		slices.Sort(counts)
		rr.MedianRecords = stat.Quantile(0.5, stat.Empirical, counts, nil)
		r.Ranks = append(r.Ranks, rr)
	}
	return r
}
