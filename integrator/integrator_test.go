package integrator

import (
	"math"
	"testing"
)

// exponentialDecay is dy/dt = -y, with closed-form solution
// y(t) = y0*exp(-(t-t0)), used to check the stepper's accuracy
// against a known analytic solution.
func exponentialDecay(_ float64, y []float64) ([]float64, error) {
	return []float64{-y[0]}, nil
}

func TestDormandPrince54MatchesAnalyticDecay(t *testing.T) {
	dp := NewDormandPrince54(1e-10, 1e-10)
	tFinal, yFinal, err := dp.Integrate(exponentialDecay, 0, []float64{1}, 5, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Exp(-5)
	if math.Abs(yFinal[0]-want) > 1e-7 {
		t.Fatalf("expected y(5) ~= %e, got %e (t=%f)", want, yFinal[0], tFinal)
	}
}

func TestDormandPrince54BackwardIntegration(t *testing.T) {
	dp := NewDormandPrince54(1e-10, 1e-10)
	_, yFinal, err := dp.Integrate(exponentialDecay, 5, []float64{math.Exp(-5)}, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(yFinal[0]-1) > 1e-7 {
		t.Fatalf("expected y(0) ~= 1 propagating backward, got %e", yFinal[0])
	}
}

// thresholdEvent fires when y crosses below a fixed level and stops
// the integration there.
type thresholdEvent struct {
	level    float64
	occurred bool
}

func (e *thresholdEvent) MaxCheckInterval() float64 { return 1 }
func (e *thresholdEvent) Threshold() float64        { return 1e-10 }
func (e *thresholdEvent) MaxIterations() int        { return 100 }
func (e *thresholdEvent) G(_ float64, y []float64) float64 {
	return y[0] - e.level
}
func (e *thresholdEvent) EventOccurred(float64, []float64) (Action, error) {
	e.occurred = true
	return ActionStop, nil
}
func (e *thresholdEvent) ResetState(_ float64, y []float64) []float64 { return y }

func TestDormandPrince54StopsAtEventRoot(t *testing.T) {
	ev := &thresholdEvent{level: 0.5}
	dp := NewDormandPrince54(1e-10, 1e-10)
	tFinal, yFinal, err := dp.Integrate(exponentialDecay, 0, []float64{1}, 10, []EventFunction{ev}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ev.occurred {
		t.Fatal("expected threshold event to fire")
	}
	wantT := -math.Log(0.5)
	if math.Abs(tFinal-wantT) > 1e-6 {
		t.Fatalf("expected event at t ~= %f, got %f", wantT, tFinal)
	}
	if math.Abs(yFinal[0]-0.5) > 1e-8 {
		t.Fatalf("expected y at event ~= 0.5, got %f", yFinal[0])
	}
}

type recordingHandler struct {
	steps []DenseStep
}

func (r *recordingHandler) HandleStep(s DenseStep) error {
	r.steps = append(r.steps, s)
	return nil
}

func TestDenseOutputHandlerReceivesEveryAcceptedStep(t *testing.T) {
	rec := &recordingHandler{}
	dp := NewDormandPrince54(1e-8, 1e-8)
	if _, _, err := dp.Integrate(exponentialDecay, 0, []float64{1}, 3, nil, rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.steps) == 0 {
		t.Fatal("expected at least one accepted step recorded")
	}
	if rec.steps[0].T0 != 0 {
		t.Fatalf("expected first step to start at t=0, got %f", rec.steps[0].T0)
	}
	last := rec.steps[len(rec.steps)-1]
	if math.Abs(last.T1-3) > 1e-9 {
		t.Fatalf("expected last step to end at t=3, got %f", last.T1)
	}
}

func TestFixedStepNormalizerResamplesUniformly(t *testing.T) {
	rec := &recordingHandler{}
	norm := NewFixedStepNormalizer(0.5, rec)
	dp := NewDormandPrince54(1e-8, 1e-8)
	if _, _, err := dp.Integrate(exponentialDecay, 0, []float64{1}, 3, nil, norm); err != nil {
		t.Fatal(err)
	}
	if len(rec.steps) < 6 {
		t.Fatalf("expected at least 6 uniform samples over [0,3] at 0.5 spacing, got %d", len(rec.steps))
	}
	for i, s := range rec.steps {
		wantT := float64(i) * 0.5
		if math.Abs(s.T0-wantT) > 1e-9 {
			t.Fatalf("sample %d: expected t=%f, got %f", i, wantT, s.T0)
		}
		want := math.Exp(-wantT)
		if math.Abs(s.Y0[0]-want) > 1e-6 {
			t.Fatalf("sample %d: expected y~=%e, got %e", i, want, s.Y0[0])
		}
	}
}

func TestInterpolateMatchesEndpoints(t *testing.T) {
	step := DenseStep{T0: 0, T1: 1, Y0: []float64{1}, Y1: []float64{2}, F0: []float64{1}, F1: []float64{1}}
	if y := step.Interpolate(0); y[0] != 1 {
		t.Fatalf("expected interpolation at T0 to equal Y0, got %f", y[0])
	}
	if y := step.Interpolate(1); math.Abs(y[0]-2) > 1e-12 {
		t.Fatalf("expected interpolation at T1 to equal Y1, got %f", y[0])
	}
}
