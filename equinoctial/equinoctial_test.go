package equinoctial

import (
	"math"
	"testing"

	"github.com/gonum/floats"

	"github.com/orbitcore/propagator/astroframe"
)

const earthMu = 3.986004415e14

func TestBijectionCircularEquatorial(t *testing.T) {
	frame := astroframe.NewFrame("EME2000")
	pv := astroframe.NewPV([3]float64{7000e3, 0, 0}, [3]float64{0, math.Sqrt(earthMu / 7000e3), 0}, frame)

	eq, err := ToEquinoctial(pv, earthMu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, v2 := eq.ToPV(earthMu)

	for k := 0; k < 3; k++ {
		if !floats.EqualWithinAbs(p2[k], pv.P[k], 1e-6) {
			t.Fatalf("position[%d] mismatch: got %v want %v", k, p2[k], pv.P[k])
		}
		if !floats.EqualWithinAbs(v2[k], pv.V[k], 1e-9) {
			t.Fatalf("velocity[%d] mismatch: got %v want %v", k, v2[k], pv.V[k])
		}
	}
}

func TestBijectionInclinedEccentric(t *testing.T) {
	frame := astroframe.NewFrame("EME2000")
	// An inclined, mildly eccentric Cartesian state (a≈7252km,
	// e≈0.047, i≈118deg, so retrograde), to exercise a non-degenerate
	// case.
	pv := astroframe.NewPV(
		[3]float64{2589845.2, -5747127.9, 3261413.8},
		[3]float64{-2538.2, -4078.5, -5854.9},
		frame,
	)
	eq, err := ToEquinoctial(pv, earthMu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eq.IsElliptical() {
		t.Fatalf("expected elliptical orbit, got a=%f e2=%f", eq.A, eq.EccentricitySquared())
	}
	p2, v2 := eq.ToPV(earthMu)
	scale := eq.A * 1e-9
	for k := 0; k < 3; k++ {
		if !floats.EqualWithinAbs(p2[k], pv.P[k], math.Max(scale, 1e-3)) {
			t.Fatalf("position[%d] mismatch: got %v want %v", k, p2[k], pv.P[k])
		}
	}
}

func TestDegenerateAngularMomentumRejected(t *testing.T) {
	frame := astroframe.NewFrame("EME2000")
	pv := astroframe.NewPV([3]float64{7000e3, 0, 0}, [3]float64{100, 0, 0}, frame)
	if _, err := ToEquinoctial(pv, earthMu); err == nil {
		t.Fatal("expected OrbitError for rectilinear trajectory")
	}
}

func TestRetrogradeOrbitRoundTrip(t *testing.T) {
	frame := astroframe.NewFrame("EME2000")
	// Sun-synchronous-like retrograde inclination (~98 degrees).
	i := 98.0 * math.Pi / 180
	v := math.Sqrt(earthMu / 7200e3)
	pv := astroframe.NewPV(
		[3]float64{7200e3, 0, 0},
		[3]float64{0, v * math.Cos(i), v * math.Sin(i)},
		frame,
	)
	eq, err := ToEquinoctial(pv, earthMu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eq.I != Retrograde {
		t.Fatalf("expected retrograde factor for i=%f deg, got %v", i*180/math.Pi, eq.I)
	}
	p2, _ := eq.ToPV(earthMu)
	for k := 0; k < 3; k++ {
		if !floats.EqualWithinAbs(p2[k], pv.P[k], 1e-3) {
			t.Fatalf("position[%d] mismatch: got %v want %v", k, p2[k], pv.P[k])
		}
	}
}

func TestMeanEccentricTrueLongitudeRoundTrip(t *testing.T) {
	eq := Equinoctial{A: 7e6, Ex: 0.01, Ey: -0.02, Hx: 0.05, Hy: 0.01, Lv: 0, I: Prograde}
	lv := 1.234
	le, err := eq.EccentricLongitudeFromTrue(lv)
	if err != nil {
		t.Fatalf("true->eccentric failed: %v", err)
	}
	lvBack := eq.TrueLongitudeFromEccentric(le)
	if !floats.EqualWithinAbs(lvBack, lv, 1e-9) {
		t.Fatalf("true longitude round trip mismatch: got %f want %f", lvBack, lv)
	}

	lm := eq.MeanLongitude(le)
	leBack, err := eq.EccentricLongitudeFromMean(lm)
	if err != nil {
		t.Fatalf("mean->eccentric failed: %v", err)
	}
	if !floats.EqualWithinAbs(leBack, le, 1e-9) {
		t.Fatalf("eccentric longitude round trip mismatch: got %f want %f", leBack, le)
	}
}

func TestAngleNormalization(t *testing.T) {
	cases := []float64{0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 0.5}
	for _, c := range cases {
		n := normalizeAngle(c)
		if n <= -math.Pi || n > math.Pi {
			t.Fatalf("normalizeAngle(%f) = %f out of (-pi, pi]", c, n)
		}
	}
}
