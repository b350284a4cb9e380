// Package readgraph materializes the undirected, weighted read-overlap
// graph over the dense index space of a readindex.Index.
package readgraph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gilchrisn/classgraph/pkg/overlap"
)

// Graph is a simple weighted undirected graph. Adjacency lists are sorted
// by neighbor index; weight lookups go through a gonum graph.
type Graph struct {
	NumNodes    int         `json:"num_nodes"`
	Adjacency   [][]int     `json:"-"`            // adjacency[i] = neighbors of node i, ascending
	Weights     [][]float64 `json:"-"`            // weights[i][j] = weight of edge i -- adjacency[i][j]
	Degrees     []float64   `json:"degrees"`      // weighted degree of each node
	TotalWeight float64     `json:"total_weight"` // sum of edge weights, each edge once
	NumEdges    int         `json:"num_edges"`

	lookup *simple.WeightedUndirectedGraph
}

// BuildStats reports what Build did with its input
type BuildStats struct {
	InputEdges       int
	SelfPairsDropped int
	Edges            int
}

// Summary describes the connectivity of a built graph
type Summary struct {
	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	Isolated         int `json:"isolated"`
	Components       int `json:"components"`
	LargestComponent int `json:"largest_component"`
}

// Build creates a graph with exactly numNodes vertices from deduplicated
// edges. Self pairs are dropped; endpoints outside 0..numNodes-1 and
// repeated pairs are errors.
func Build(edges []overlap.Edge, numNodes int) (*Graph, BuildStats, error) {
	stats := BuildStats{InputEdges: len(edges)}

	if numNodes < 0 {
		return nil, stats, fmt.Errorf("negative node count %d", numNodes)
	}

	g := &Graph{
		NumNodes:  numNodes,
		Adjacency: make([][]int, numNodes),
		Weights:   make([][]float64, numNodes),
		Degrees:   make([]float64, numNodes),
		lookup:    simple.NewWeightedUndirectedGraph(0, 0),
	}
	for i := 0; i < numNodes; i++ {
		g.lookup.AddNode(simple.Node(i))
	}

	for _, e := range edges {
		if e.SelfPair() {
			stats.SelfPairsDropped++
			continue
		}
		if err := g.addEdge(e.U, e.V, e.Weight); err != nil {
			return nil, stats, err
		}
	}

	for i := 0; i < numNodes; i++ {
		sortAdjacency(g.Adjacency[i], g.Weights[i])
	}

	stats.Edges = g.NumEdges
	return g, stats, nil
}

func (g *Graph) addEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("invalid weight %f for edge %d-%d", weight, u, v)
	}
	if g.lookup.HasEdgeBetween(int64(u), int64(v)) {
		return fmt.Errorf("parallel edge %d-%d", u, v)
	}

	g.lookup.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: weight})

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], weight)
	g.Degrees[u] += weight

	g.Adjacency[v] = append(g.Adjacency[v], u)
	g.Weights[v] = append(g.Weights[v], weight)
	g.Degrees[v] += weight

	g.TotalWeight += weight
	g.NumEdges++
	return nil
}

type adjacencySorter struct {
	neighbors []int
	weights   []float64
}

func (s adjacencySorter) Len() int           { return len(s.neighbors) }
func (s adjacencySorter) Less(i, j int) bool { return s.neighbors[i] < s.neighbors[j] }
func (s adjacencySorter) Swap(i, j int) {
	s.neighbors[i], s.neighbors[j] = s.neighbors[j], s.neighbors[i]
	s.weights[i], s.weights[j] = s.weights[j], s.weights[i]
}

func sortAdjacency(neighbors []int, weights []float64) {
	sort.Sort(adjacencySorter{neighbors: neighbors, weights: weights})
}

// GetNeighbors returns neighbors and their edge weights for a node
func (g *Graph) GetNeighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}
	return g.Adjacency[node], g.Weights[node]
}

// GetEdgeWeight returns the weight of edge u -- v
func (g *Graph) GetEdgeWeight(u, v int) (float64, bool) {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes || u == v {
		return 0, false
	}
	e := g.lookup.WeightedEdgeBetween(int64(u), int64(v))
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// HasEdge reports whether u and v overlap
func (g *Graph) HasEdge(u, v int) bool {
	_, ok := g.GetEdgeWeight(u, v)
	return ok
}

// Degree returns the number of neighbors of a node
func (g *Graph) Degree(node int) int {
	if node < 0 || node >= g.NumNodes {
		return 0
	}
	return len(g.Adjacency[node])
}

// Summarize counts isolated reads and connected components
func (g *Graph) Summarize() Summary {
	summary := Summary{Nodes: g.NumNodes, Edges: g.NumEdges}

	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) == 0 {
			summary.Isolated++
		}
	}

	components := topo.ConnectedComponents(g.lookup)
	summary.Components = len(components)
	for _, c := range components {
		if len(c) > summary.LargestComponent {
			summary.LargestComponent = len(c)
		}
	}

	return summary
}

// Validate checks graph consistency
func (g *Graph) Validate() error {
	if len(g.Adjacency) != g.NumNodes || len(g.Weights) != g.NumNodes {
		return fmt.Errorf("adjacency sized for %d nodes, graph has %d", len(g.Adjacency), g.NumNodes)
	}

	halfEdges := 0
	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) != len(g.Weights[i]) {
			return fmt.Errorf("adjacency and weights arrays inconsistent for node %d", i)
		}

		for j, neighbor := range g.Adjacency[i] {
			if neighbor < 0 || neighbor >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", neighbor, i)
			}
			if neighbor == i {
				return fmt.Errorf("self loop on node %d", i)
			}
			if j > 0 && g.Adjacency[i][j-1] >= neighbor {
				return fmt.Errorf("adjacency of node %d not strictly ascending", i)
			}
			w, ok := g.GetEdgeWeight(neighbor, i)
			if !ok || w != g.Weights[i][j] {
				return fmt.Errorf("edge %d-%d is not symmetric", i, neighbor)
			}
		}
		halfEdges += len(g.Adjacency[i])
	}

	if halfEdges != 2*g.NumEdges {
		return fmt.Errorf("adjacency holds %d half edges for %d edges", halfEdges, g.NumEdges)
	}

	return nil
}
