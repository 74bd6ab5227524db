package constraint_test

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/linalg"
	"github.com/san-kum/hydrostat/internal/topology"
)

var _ = Describe("ConstantVolume", func() {
	var (
		arm *topology.Model
		cv  *constraint.ConstantVolume
	)

	BeforeEach(func() {
		arm = restArm(2)
		cv = constraint.NewConstantVolume()
		Expect(cv.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
	})

	It("is satisfied at rest", func() {
		out := evaluate(cv, arm.Positions, arm.Velocities)
		Expect(out.Rows()).To(Equal(2))
		for _, v := range out.Values {
			Expect(v).To(BeNumerically("~", 0, 1e-12))
		}
		for _, ref := range cv.References() {
			Expect(ref).To(BeNumerically("~", 6, 1e-12))
		}
	})

	It("reports the unit cube volume", func() {
		Expect(constraint.Volume(arm.Topology.Cells[0], arm.Positions)).To(BeNumerically("~", 1, 1e-12))
	})

	It("grows when a cell is stretched", func() {
		pos := append([]mgl64.Vec3(nil), arm.Positions...)
		for _, v := range topology.TipRing(2) {
			pos[v] = pos[v].Add(mgl64.Vec3{0, 0, 0.5})
		}
		out := evaluate(cv, pos, arm.Velocities)
		Expect(out.Values[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(out.Values[1]).To(BeNumerically("~", 3, 1e-12))
	})

	It("has consistent derivatives", func() {
		pos := jitter(arm.Positions, 1, 0.1)
		vel := jitter(make([]mgl64.Vec3, len(pos)), 2, 1)
		expectJacobians(cv, pos, vel, 1e-5, 1e-6)
	})

	It("rejects cells with out-of-range vertices", func() {
		topo := topology.Topology{
			NumVertices: 4,
			Cells:       []topology.Cell{{Apex: 0, Triangles: [][3]int{{1, 2, 9}}}},
		}
		pos := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		err := constraint.NewSet(constraint.NewConstantVolume()).Initialize(&topo, pos)
		var ve *dynamo.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Object).To(Equal("cell"))
	})

	It("needs cells", func() {
		topo := arm.Topology
		topo.Cells = nil
		err := constraint.NewConstantVolume().Initialize(&topo, arm.Positions)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})
})

var _ = Describe("EdgeLengthBound", func() {
	var arm *topology.Model

	BeforeEach(func() {
		arm = restArm(1)
	})

	It("produces no rows inside the bounds", func() {
		eb := constraint.NewEdgeLengthBound(0.5, 2)
		Expect(eb.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
		out := evaluate(eb, arm.Positions, arm.Velocities)
		Expect(out.Rows()).To(Equal(0))
	})

	It("reports the excess of a stretched edge", func() {
		topo := &topology.Topology{NumVertices: 2, Edges: [][2]int{{0, 1}}}
		rest := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}
		eb := constraint.NewEdgeLengthBound(0.5, 1.5)
		Expect(eb.Initialize(topo, rest)).To(Succeed())

		pos := []mgl64.Vec3{{0, 0, 0}, {1.7, 0, 0}}
		out := evaluate(eb, pos, make([]mgl64.Vec3, 2))

		Expect(out.Rows()).To(Equal(1))
		Expect(out.Values[0]).To(BeNumerically("~", 0.2, 1e-12))
		Expect(out.Jacobian.At(0, 0)).To(BeNumerically("~", -1, 1e-12))
		Expect(out.Jacobian.At(0, 3)).To(BeNumerically("~", 1, 1e-12))
	})

	It("measures short edges against the lower bound", func() {
		eb := constraint.NewEdgeLengthBound(0.9, 5)
		Expect(eb.Initialize(&arm.Topology, arm.Positions)).To(Succeed())

		pos := append([]mgl64.Vec3(nil), arm.Positions...)
		pos[1] = mgl64.Vec3{0.5, 0, 0}
		out := evaluate(eb, pos, arm.Velocities)
		Expect(out.Rows()).To(BeNumerically(">=", 1))
		Expect(out.Values).To(ContainElement(BeNumerically("~", -0.4, 1e-12)))
	})

	It("skips zero-length edges", func() {
		eb := constraint.NewEdgeLengthBound(0.5, 2)
		Expect(eb.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
		pos := append([]mgl64.Vec3(nil), arm.Positions...)
		pos[1] = pos[0]
		for _, idx := range eb.ActiveEdges(pos) {
			e := arm.Topology.Edges[idx]
			Expect(e).NotTo(Equal([2]int{0, 1}))
		}
	})

	It("has consistent derivatives", func() {
		eb := constraint.NewEdgeLengthBound(1.15, 1.25)
		Expect(eb.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
		pos := jitter(arm.Positions, 3, 0.02)
		vel := jitter(make([]mgl64.Vec3, len(pos)), 4, 1)
		Expect(eb.ActiveEdges(pos)).To(HaveLen(len(arm.Topology.Edges)))
		expectJacobians(eb, pos, vel, 1e-6, 1e-6)
	})

	It("rejects edges with out-of-range vertices", func() {
		topo := topology.Topology{NumVertices: 2, Edges: [][2]int{{0, 7}}}
		pos := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}
		err := constraint.NewSet(constraint.NewEdgeLengthBound(0.5, 2)).Initialize(&topo, pos)
		var ve *dynamo.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Object).To(Equal("edge"))
	})

	DescribeTable("rejects bad intervals",
		func(min, max float64) {
			err := constraint.NewEdgeLengthBound(min, max).Initialize(&arm.Topology, arm.Positions)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		},
		Entry("min above max", 2.0, 1.0),
		Entry("negative min", -1.0, 1.0),
		Entry("nan", math.NaN(), 1.0),
	)
})

var _ = Describe("FixedVertex", func() {
	var (
		arm *topology.Model
		fv  *constraint.FixedVertex
	)

	BeforeEach(func() {
		arm = restArm(1)
		fv = constraint.NewFixedVertex(topology.BaseRing()...)
		Expect(fv.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
	})

	It("reports displacement from the reference", func() {
		pos := append([]mgl64.Vec3(nil), arm.Positions...)
		pos[1] = pos[1].Add(mgl64.Vec3{0.1, -0.2, 0.3})
		out := evaluate(fv, pos, arm.Velocities)

		Expect(out.Rows()).To(Equal(12))
		Expect(out.Values[3]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(out.Values[4]).To(BeNumerically("~", -0.2, 1e-12))
		Expect(out.Values[5]).To(BeNumerically("~", 0.3, 1e-12))
		for row := 0; row < 12; row++ {
			Expect(out.Jacobian.At(row, row)).To(Equal(1.0))
		}
		for _, v := range out.JacobianDot.Data {
			Expect(v).To(BeZero())
		}
	})

	It("rejects out-of-range vertices", func() {
		err := constraint.NewFixedVertex(99).Initialize(&arm.Topology, arm.Positions)
		Expect(errors.Is(err, dynamo.ErrValidation)).To(BeTrue())
		var ve *dynamo.ValidationError
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Index).To(Equal(0))
	})

	It("refuses evaluation before initialization", func() {
		_, err := constraint.NewFixedVertex(0).Evaluate(arm.Positions, arm.Velocities)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})
})

var _ = Describe("PlanarFaces", func() {
	var (
		arm *topology.Model
		pf  *constraint.PlanarFaces
	)

	BeforeEach(func() {
		arm = restArm(1)
		pf = constraint.NewPlanarFaces()
		Expect(pf.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
	})

	It("is satisfied by flat faces", func() {
		out := evaluate(pf, arm.Positions, arm.Velocities)
		Expect(out.Rows()).To(Equal(6 * 4))
		for _, v := range out.Values {
			Expect(v).To(BeNumerically("~", 0, 1e-9))
		}
	})

	It("stays satisfied under rigid motion", func() {
		rot := mgl64.HomogRotate3D(0.7, mgl64.Vec3{1, 2, 3}.Normalize())
		pos := make([]mgl64.Vec3, len(arm.Positions))
		for i, p := range arm.Positions {
			pos[i] = mgl64.TransformCoordinate(p, rot).Add(mgl64.Vec3{3, -1, 2})
		}
		out := evaluate(pf, pos, arm.Velocities)
		for _, v := range out.Values {
			Expect(v).To(BeNumerically("~", 0, 1e-9))
		}
	})

	It("measures out-of-plane distance", func() {
		pos := append([]mgl64.Vec3(nil), arm.Positions...)
		top := topology.TipRing(1)
		pos[top[0]] = pos[top[0]].Add(mgl64.Vec3{0, 0, 0.2})
		pos[top[2]] = pos[top[2]].Add(mgl64.Vec3{0, 0, 0.2})
		out := evaluate(pf, pos, arm.Velocities)

		top4 := out.Values[5*4 : 6*4]
		for _, v := range top4 {
			Expect(math.Abs(v)).To(BeNumerically("~", 0.1, 1e-9))
		}
	})

	It("has consistent derivatives", func() {
		pos := jitter(arm.Positions, 5, 0.1)
		vel := jitter(make([]mgl64.Vec3, len(pos)), 6, 1)
		expectJacobians(pf, pos, vel, 1e-4, 1e-4)
	})

	It("has consistent derivatives on square faces", func() {
		vel := jitter(make([]mgl64.Vec3, len(arm.Positions)), 8, 1)
		expectJacobians(pf, arm.Positions, vel, 1e-5, 1e-4)
	})

	It("rejects mixed face arity", func() {
		bad := constraint.NewPlanarFaces()
		bad.Faces = [][]int{{0, 1, 2, 3}, {4, 5, 6}}
		err := bad.Initialize(&arm.Topology, arm.Positions)
		Expect(errors.Is(err, dynamo.ErrValidation)).To(BeTrue())
	})

	It("needs faces", func() {
		topo := arm.Topology
		topo.Faces = nil
		err := constraint.NewPlanarFaces().Initialize(&topo, arm.Positions)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})
})

type misshapen struct{ n int }

func (m *misshapen) Kind() constraint.Kind { return constraint.KindFixedVertex }

func (m *misshapen) Initialize(topo *topology.Topology, _ []mgl64.Vec3) error {
	m.n = topo.NumVertices
	return nil
}

func (m *misshapen) Evaluate(_, _ []mgl64.Vec3) (constraint.Output, error) {
	return constraint.Output{
		Values:      []float64{1, 2},
		Jacobian:    linalg.NewDense(1, 3*m.n),
		JacobianDot: linalg.NewDense(1, 3*m.n),
	}, nil
}

var _ = Describe("Set", func() {
	var arm *topology.Model

	BeforeEach(func() {
		arm = restArm(1)
	})

	It("orders constraints by kind", func() {
		set := constraint.NewSet(
			constraint.NewPlanarFaces(),
			constraint.NewFixedVertex(0),
			constraint.NewEdgeLengthBound(0.5, 2),
			constraint.NewConstantVolume(),
			constraint.NewFixedVertex(1),
		)
		Expect(set.Kinds()).To(Equal([]constraint.Kind{
			constraint.KindConstantVolume,
			constraint.KindEdgeLengthBound,
			constraint.KindFixedVertex,
			constraint.KindFixedVertex,
			constraint.KindPlanarFaces,
		}))
		fixed := set.Constraints()[2].(*constraint.FixedVertex)
		Expect(fixed.Vertices).To(Equal([]int{0}))
	})

	It("stacks rows and skips inactive constraints", func() {
		set := constraint.NewSet(
			constraint.NewConstantVolume(),
			constraint.NewEdgeLengthBound(0.5, 2),
			constraint.NewFixedVertex(topology.BaseRing()...),
			constraint.NewPlanarFaces(),
		)
		Expect(set.Initialize(&arm.Topology, arm.Positions)).To(Succeed())

		a, err := set.Assemble(arm.Positions, arm.Velocities)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Rows()).To(Equal(1 + 12 + 24))
		Expect(a.Jacobian.Rows).To(Equal(a.Rows()))
		Expect(a.Jacobian.Cols).To(Equal(3 * arm.NumVertices()))
		Expect(a.JacobianDot.Rows).To(Equal(a.Rows()))

		worst, err := set.Violation(arm.Positions, arm.Velocities)
		Expect(err).NotTo(HaveOccurred())
		Expect(worst).To(BeNumerically("<", 1e-9))
	})

	It("assembles an empty system", func() {
		set := constraint.NewSet()
		Expect(set.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
		a, err := set.Assemble(arm.Positions, arm.Velocities)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Rows()).To(Equal(0))
		Expect(a.Jacobian.Cols).To(Equal(3 * arm.NumVertices()))
	})

	It("rejects outputs with mismatched rows", func() {
		set := constraint.NewSet(&misshapen{})
		Expect(set.Initialize(&arm.Topology, arm.Positions)).To(Succeed())
		_, err := set.Assemble(arm.Positions, arm.Velocities)

		var ae *constraint.AssemblyError
		Expect(errors.As(err, &ae)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrValidation)).To(BeTrue())
	})

	It("wraps initialization failures with the kind", func() {
		set := constraint.NewSet(constraint.NewFixedVertex(42))
		err := set.Initialize(&arm.Topology, arm.Positions)
		Expect(err).To(MatchError(ContainSubstring("fixed_vertex")))
	})
})
