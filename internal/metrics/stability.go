package metrics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

// Stability is the fraction of observed states that are finite and keep
// every edge within a factor ratio of its rest length. Collapsing or torn
// cells pull it below one.
type Stability struct {
	name     string
	edges    [][2]int
	rest     []float64
	ratio    float64
	n        int
	unstable int
	samples  int
}

func NewStability(edges [][2]int, restPositions []mgl64.Vec3, ratio float64) *Stability {
	rest := make([]float64, len(edges))
	for e, edge := range edges {
		rest[e] = restPositions[edge[0]].Sub(restPositions[edge[1]]).Len()
	}
	return &Stability{
		name:  "stability",
		edges: edges,
		rest:  rest,
		ratio: ratio,
		n:     len(restPositions),
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	if len(x) != 6*s.n || !x.IsValid() {
		s.unstable++
		return
	}
	for e, edge := range s.edges {
		r := s.rest[e]
		if r == 0 {
			continue
		}
		l := vertexVec(x, edge[0]).Sub(vertexVec(x, edge[1])).Len()
		if l < r/s.ratio || l > r*s.ratio {
			s.unstable++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.unstable)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.unstable = 0
	s.samples = 0
}
