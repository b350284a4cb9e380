package overlap

// EdgeKey is an unordered pair of read indices stored with U <= V
type EdgeKey struct {
	U int
	V int
}

// NewEdgeKey orders the endpoints so both directions share one key
func NewEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{U: a, V: b}
}

// SelfPair reports whether both endpoints are the same read
func (k EdgeKey) SelfPair() bool {
	return k.U == k.V
}

// Edge is a deduplicated overlap with its normalized length
type Edge struct {
	EdgeKey
	Weight float64
}

// EdgeSet holds one weight per endpoint pair and remembers the order in
// which pairs were first seen
type EdgeSet struct {
	order   []EdgeKey
	weights map[EdgeKey]float64
}

// NewEdgeSet creates an empty edge set
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{
		order:   make([]EdgeKey, 0),
		weights: make(map[EdgeKey]float64),
	}
}

// Add records a weight for the pair. When the pair already exists the
// merge function decides the stored weight; Add reports whether the pair
// was new.
func (s *EdgeSet) Add(a, b int, weight float64, merge func(existing, incoming float64) float64) bool {
	key := NewEdgeKey(a, b)
	if existing, exists := s.weights[key]; exists {
		s.weights[key] = merge(existing, weight)
		return false
	}
	s.order = append(s.order, key)
	s.weights[key] = weight
	return true
}

// Weight returns the stored weight of a pair
func (s *EdgeSet) Weight(a, b int) (float64, bool) {
	w, exists := s.weights[NewEdgeKey(a, b)]
	return w, exists
}

// Len returns the number of distinct pairs, self pairs included
func (s *EdgeSet) Len() int {
	return len(s.order)
}

// Edges returns the pairs in first-seen order
func (s *EdgeSet) Edges() []Edge {
	edges := make([]Edge, 0, len(s.order))
	for _, key := range s.order {
		edges = append(edges, Edge{EdgeKey: key, Weight: s.weights[key]})
	}
	return edges
}
