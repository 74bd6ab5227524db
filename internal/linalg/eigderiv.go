package linalg

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

// GapEpsilon is the eigenvalue gap below which a reciprocal gap is zeroed.
const GapEpsilon = 2.220446049250313e-16

// planeTolerance is the relative gap below which the two largest
// eigenvalues are treated as one repeated eigenvalue.
const planeTolerance = 1e-10

// EigenInput describes a symmetric 3×3 matrix C(x, t) and its derivatives
// with respect to D scalar parameters x_d and time.
type EigenInput struct {
	C     mgl64.Mat3   // C
	CDot  mgl64.Mat3   // ∂C/∂t
	DC    []mgl64.Mat3 // ∂C/∂x_d
	DCDot []mgl64.Mat3 // ∂²C/∂x_d∂t
}

// EigenDerivs holds the smallest-eigenvalue eigenvector n of C and its
// first-order derivatives.
type EigenDerivs struct {
	Values     [3]float64
	Normal     mgl64.Vec3   // n
	NormalDot  mgl64.Vec3   // ∂n/∂t
	DNormal    []mgl64.Vec3 // ∂n/∂x_d
	DNormalDot []mgl64.Vec3 // ∂²n/∂x_d∂t
}

// EigenDerivatives differentiates the smallest eigenvector of a symmetric
// matrix by first-order perturbation theory. Pairs of eigenvalues closer
// than GapEpsilon contribute nothing. The sign of the result is fixed so
// that the dominant component of n is positive; derivatives follow the
// same branch.
func EigenDerivatives(in EigenInput) (EigenDerivs, error) {
	if len(in.DC) != len(in.DCDot) {
		return EigenDerivs{}, &dynamo.ConfigurationError{
			Field:  "eigen input",
			Reason: fmt.Sprintf("%d position derivatives, %d mixed derivatives", len(in.DC), len(in.DCDot)),
		}
	}
	if !finiteMat(in.C) || !finiteMat(in.CDot) {
		return EigenDerivs{}, &dynamo.NumericalError{Op: "eigen derivatives", Reason: "non-finite covariance"}
	}
	for d := range in.DC {
		if !finiteMat(in.DC[d]) || !finiteMat(in.DCDot[d]) {
			return EigenDerivs{}, &dynamo.NumericalError{Op: "eigen derivatives", Reason: fmt.Sprintf("non-finite derivative %d", d)}
		}
	}

	vals, vecs := SymEig3(in.C)
	e := [3]mgl64.Vec3{vecs.Col(0), vecs.Col(1), vecs.Col(2)}

	// A repeated in-plane eigenvalue leaves e1, e2 free to rotate. The
	// branch that stays smooth in time diagonalizes CDot inside the plane,
	// and on it the in-plane coupling vanishes.
	repeated := math.Abs(vals[2]-vals[1]) <= planeTolerance*math.Max(math.Abs(vals[2]), GapEpsilon)
	if repeated {
		e[1], e[2] = alignPlane(e[1], e[2], in.CDot)
	}

	var lamDot [3]float64
	for i := range e {
		lamDot[i] = e[i].Dot(in.CDot.Mul3x1(e[i]))
	}

	var g, gDot [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j || (repeated && i > 0 && j > 0) {
				continue
			}
			gap := vals[i] - vals[j]
			if math.Abs(gap) < GapEpsilon {
				continue
			}
			g[i][j] = 1 / gap
			gDot[i][j] = -(lamDot[i] - lamDot[j]) * g[i][j] * g[i][j]
		}
	}

	var eDot [3]mgl64.Vec3
	for j := 0; j < 3; j++ {
		cej := in.CDot.Mul3x1(e[j])
		for l := 0; l < 3; l++ {
			if l == j || g[j][l] == 0 {
				continue
			}
			eDot[j] = eDot[j].Add(e[l].Mul(e[l].Dot(cej) * g[j][l]))
		}
	}

	out := EigenDerivs{
		Values:     vals,
		Normal:     e[0],
		NormalDot:  eDot[0],
		DNormal:    make([]mgl64.Vec3, len(in.DC)),
		DNormalDot: make([]mgl64.Vec3, len(in.DC)),
	}

	for d := range in.DC {
		a, aDot := in.DC[d], in.DCDot[d]
		ae0 := a.Mul3x1(e[0])
		ae0Dot := a.Mul3x1(eDot[0])
		aDotE0 := aDot.Mul3x1(e[0])

		var dn, dnDot mgl64.Vec3
		for j := 1; j < 3; j++ {
			gj, gjDot := g[0][j], gDot[0][j]
			if gj == 0 {
				continue
			}
			proj := e[j].Dot(ae0)
			dn = dn.Add(e[j].Mul(proj * gj))

			dnDot = dnDot.
				Add(eDot[j].Mul(proj * gj)).
				Add(e[j].Mul(eDot[j].Dot(ae0) * gj)).
				Add(e[j].Mul(e[j].Dot(aDotE0) * gj)).
				Add(e[j].Mul(e[j].Dot(ae0Dot) * gj)).
				Add(e[j].Mul(proj * gjDot))
		}
		out.DNormal[d] = dn
		out.DNormalDot[d] = dnDot
	}

	if out.Normal[dominantAxis(out.Normal)] < 0 {
		out.Normal = out.Normal.Mul(-1)
		out.NormalDot = out.NormalDot.Mul(-1)
		for d := range out.DNormal {
			out.DNormal[d] = out.DNormal[d].Mul(-1)
			out.DNormalDot[d] = out.DNormalDot[d].Mul(-1)
		}
	}

	if !finiteVec(out.Normal) || !finiteVec(out.NormalDot) {
		return EigenDerivs{}, &dynamo.NumericalError{Op: "eigen derivatives", Reason: "non-finite normal"}
	}
	for d := range out.DNormal {
		if !finiteVec(out.DNormal[d]) || !finiteVec(out.DNormalDot[d]) {
			return EigenDerivs{}, &dynamo.NumericalError{Op: "eigen derivatives", Reason: fmt.Sprintf("non-finite normal derivative %d", d)}
		}
	}

	return out, nil
}

// alignPlane rotates the orthonormal pair (a, b) within its plane so that
// aᵀ M b = 0.
func alignPlane(a, b mgl64.Vec3, m mgl64.Mat3) (mgl64.Vec3, mgl64.Vec3) {
	maa := a.Dot(m.Mul3x1(a))
	mbb := b.Dot(m.Mul3x1(b))
	mab := a.Dot(m.Mul3x1(b))
	if mab == 0 {
		return a, b
	}
	theta := 0.5 * math.Atan2(2*mab, maa-mbb)
	c, s := math.Cos(theta), math.Sin(theta)
	return a.Mul(c).Add(b.Mul(s)), b.Mul(c).Sub(a.Mul(s))
}

func finiteMat(m mgl64.Mat3) bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finiteVec(v mgl64.Vec3) bool {
	return !math.IsNaN(v[0]) && !math.IsInf(v[0], 0) &&
		!math.IsNaN(v[1]) && !math.IsInf(v[1], 0) &&
		!math.IsNaN(v[2]) && !math.IsInf(v[2], 0)
}

// CovarianceInput builds the EigenInput for the covariance of a point cloud
// moving with the given velocities. Parameter d = 3*w + k is coordinate k of
// point w.
func CovarianceInput(points, velocities []mgl64.Vec3) (EigenInput, error) {
	if len(points) != len(velocities) {
		return EigenInput{}, &dynamo.ConfigurationError{
			Field:  "velocities",
			Reason: fmt.Sprintf("length %d, want %d", len(velocities), len(points)),
		}
	}
	k := len(points)
	inv := 1 / DegreesOfFreedom(k)
	c := Centroid(points)
	cv := Centroid(velocities)

	r := make([]mgl64.Vec3, k)
	rd := make([]mgl64.Vec3, k)
	in := EigenInput{
		DC:    make([]mgl64.Mat3, 3*k),
		DCDot: make([]mgl64.Mat3, 3*k),
	}
	for w := range points {
		r[w] = points[w].Sub(c)
		rd[w] = velocities[w].Sub(cv)
		in.C = in.C.Add(Outer(r[w], r[w]))
		in.CDot = in.CDot.Add(Outer(rd[w], r[w])).Add(Outer(r[w], rd[w]))
	}
	in.C = in.C.Mul(inv)
	in.CDot = in.CDot.Mul(inv)

	for w := range points {
		for axis := 0; axis < 3; axis++ {
			var ek mgl64.Vec3
			ek[axis] = 1
			in.DC[3*w+axis] = Outer(ek, r[w]).Add(Outer(r[w], ek)).Mul(inv)
			in.DCDot[3*w+axis] = Outer(ek, rd[w]).Add(Outer(rd[w], ek)).Mul(inv)
		}
	}
	return in, nil
}
