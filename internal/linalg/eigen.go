package linalg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

const (
	// MaxJacobiSweeps bounds the number of rotations SymEig3 applies.
	MaxJacobiSweeps = 50

	// JacobiTolerance is the off-diagonal magnitude at which SymEig3 stops.
	JacobiTolerance = 1e-10
)

// SymEig3 diagonalizes a symmetric 3×3 matrix with Jacobi rotations. It
// returns ascending eigenvalues and a matrix whose columns are the matching
// unit eigenvectors.
func SymEig3(m mgl64.Mat3) ([3]float64, mgl64.Mat3) {
	var a, v [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] = m.At(i, j)
		}
		v[i][i] = 1
	}

	for sweep := 0; sweep < MaxJacobiSweeps; sweep++ {
		p, q := 0, 1
		off := math.Abs(a[0][1])
		if x := math.Abs(a[0][2]); x > off {
			p, q, off = 0, 2, x
		}
		if x := math.Abs(a[1][2]); x > off {
			p, q, off = 1, 2, x
		}
		if off < JacobiTolerance {
			break
		}

		phi := 0.5 * math.Atan2(2*a[p][q], a[q][q]-a[p][p])
		c, s := math.Cos(phi), math.Sin(phi)
		app, aqq, apq := a[p][p], a[q][q], a[p][q]

		for i := 0; i < 3; i++ {
			if i == p || i == q {
				continue
			}
			aip, aiq := a[i][p], a[i][q]
			a[i][p] = c*aip - s*aiq
			a[p][i] = a[i][p]
			a[i][q] = s*aip + c*aiq
			a[q][i] = a[i][q]
		}
		a[p][p] = c*c*app - 2*c*s*apq + s*s*aqq
		a[q][q] = s*s*app + 2*c*s*apq + c*c*aqq
		a[p][q], a[q][p] = 0, 0

		for i := 0; i < 3; i++ {
			vip, viq := v[i][p], v[i][q]
			v[i][p] = c*vip - s*viq
			v[i][q] = s*vip + c*viq
		}
	}

	vals := [3]float64{a[0][0], a[1][1], a[2][2]}
	cols := [3]mgl64.Vec3{
		{v[0][0], v[1][0], v[2][0]},
		{v[0][1], v[1][1], v[2][1]},
		{v[0][2], v[1][2], v[2][2]},
	}
	for i := 1; i < 3; i++ {
		val, col := vals[i], cols[i]
		j := i - 1
		for ; j >= 0 && vals[j] > val; j-- {
			vals[j+1], cols[j+1] = vals[j], cols[j]
		}
		vals[j+1], cols[j+1] = val, col
	}

	return vals, mgl64.Mat3FromCols(cols[0], cols[1], cols[2])
}

// Centroid returns the mean of points.
func Centroid(points []mgl64.Vec3) mgl64.Vec3 {
	var c mgl64.Vec3
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(points)))
}

// Covariance returns Σ rᵢrᵢᵀ / max(1, k-1) with rᵢ taken about the centroid.
func Covariance(points []mgl64.Vec3) mgl64.Mat3 {
	c := Centroid(points)
	var cov mgl64.Mat3
	for _, p := range points {
		cov = cov.Add(Outer(p.Sub(c), p.Sub(c)))
	}
	return cov.Mul(1 / DegreesOfFreedom(len(points)))
}

// DegreesOfFreedom is the covariance normalizer for k points.
func DegreesOfFreedom(k int) float64 {
	return math.Max(1, float64(k-1))
}

// Outer returns a·bᵀ.
func Outer(a, b mgl64.Vec3) mgl64.Mat3 {
	var m mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, a[i]*b[j])
		}
	}
	return m
}

// BestFitNormal returns the unit normal of the least-squares plane through
// points: the eigenvector of the smallest covariance eigenvalue.
func BestFitNormal(points []mgl64.Vec3) (mgl64.Vec3, error) {
	if len(points) < 3 {
		return mgl64.Vec3{}, &dynamo.ValidationError{Object: "plane", Index: -1, Reason: "needs at least 3 points"}
	}
	_, vecs := SymEig3(Covariance(points))
	n := vecs.Col(0)
	if n.Len() == 0 {
		return mgl64.Vec3{}, &dynamo.NumericalError{Op: "best-fit normal", Reason: "zero eigenvector"}
	}
	return canonicalSign(n.Normalize()), nil
}

// canonicalSign flips n so that its largest-magnitude component is
// positive.
func canonicalSign(n mgl64.Vec3) mgl64.Vec3 {
	if n[dominantAxis(n)] < 0 {
		return n.Mul(-1)
	}
	return n
}

func dominantAxis(n mgl64.Vec3) int {
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(n[i]) > math.Abs(n[k]) {
			k = i
		}
	}
	return k
}
