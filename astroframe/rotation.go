package astroframe

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// R3 is the elementary rotation matrix about the 3rd axis, in the
// same convention as the teacher's rotation.go. R1/R2 are not carried
// over: nothing in this module registers a frame transform about any
// axis but the 3rd (see astroframe_test.go's TestFrameGraphTransform
// and driver_test.go's TestReferenceFrameInvariance), and a dead elementary-rotation
// constructor is worse than no constructor at all.
func R3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a 3x3 matrix by a 3-vector.
func MxV33(m *mat64.Dense, v [3]float64) [3]float64 {
	vVec := mat64.NewVector(3, v[:])
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return [3]float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// MxV33T multiplies the transpose of a 3x3 matrix by a 3-vector,
// i.e. applies the inverse of an orthonormal rotation matrix (such as
// TNWBasis or QSWBasis) without forming an explicit inverse.
func MxV33T(m *mat64.Dense, v [3]float64) [3]float64 {
	vVec := mat64.NewVector(3, v[:])
	var rVec mat64.Vector
	rVec.MulVec(m.T(), vVec)
	return [3]float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// TNWBasis returns the unit T (along velocity), N (W x T) and W
// (along angular momentum) axes of the TNW local orbital frame for a
// given PV, as columns of a rotation matrix from TNW to the PV's own
// (inertial) frame.
func TNWBasis(pv PV) *mat64.Dense {
	t := Unit(pv.V)
	w := Unit(pv.AngularMomentum())
	n := Cross(w, t)
	// Columns are T, N, W expressed in the inertial frame; this matrix
	// maps a TNW-frame vector into the inertial frame.
	return mat64.NewDense(3, 3, []float64{
		t[0], n[0], w[0],
		t[1], n[1], w[1],
		t[2], n[2], w[2],
	})
}

// QSWBasis returns the rotation matrix from the QSW (radial / in-plane
// perpendicular / cross-track) local orbital frame to the inertial
// frame of the given PV.
func QSWBasis(pv PV) *mat64.Dense {
	q := Unit(pv.P)
	w := Unit(pv.AngularMomentum())
	s := Cross(w, q)
	return mat64.NewDense(3, 3, []float64{
		q[0], s[0], w[0],
		q[1], s[1], w[1],
		q[2], s[2], w[2],
	})
}
