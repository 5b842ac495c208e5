package astroframe

import "fmt"

// Frame is an opaque reference-frame handle. Two frames are the same
// frame iff their names compare equal; the core never inspects what a
// frame physically means, it only asks for a Transform between two of
// them (see TransformTo).
type Frame struct {
	name string
}

// NewFrame returns a named frame handle.
func NewFrame(name string) Frame {
	return Frame{name: name}
}

// Name returns the frame's identifying name.
func (f Frame) Name() string {
	return f.name
}

func (f Frame) String() string {
	return f.name
}

// Equals reports whether f and other denote the same frame.
func (f Frame) Equals(other Frame) bool {
	return f.name == other.name
}

// Transform applies a fixed rotation (no translation: both frames are
// assumed to share an origin, as is always true for the inertial
// frames the propagator core deals with) between two frames.
type Transform struct {
	rows [3][3]float64
}

// Apply rotates a PV from the source frame into the transform's
// target frame.
func (t Transform) Apply(pv PV, target Frame) PV {
	return PV{P: t.mulVec(pv.P), V: t.mulVec(pv.V), Frame: target}
}

func (t Transform) mulVec(v [3]float64) [3]float64 {
	return [3]float64{
		t.rows[0][0]*v[0] + t.rows[0][1]*v[1] + t.rows[0][2]*v[2],
		t.rows[1][0]*v[0] + t.rows[1][1]*v[1] + t.rows[1][2]*v[2],
		t.rows[2][0]*v[0] + t.rows[2][1]*v[1] + t.rows[2][2]*v[2],
	}
}

// FrameGraph resolves fixed rotations between a closed set of
// registered frames. Real frame chains (precession, nutation, polar
// motion) are an external collaborator's responsibility; this graph
// only supports the constant rotations a caller registers directly,
// enough to exercise and test §8/S5's frame-invariance property.
type FrameGraph struct {
	rotations map[string]Transform
}

// NewFrameGraph returns an empty frame graph.
func NewFrameGraph() *FrameGraph {
	return &FrameGraph{rotations: make(map[string]Transform)}
}

// Register records the fixed rotation matrix that maps `from` into
// `to`. The inverse (transpose, since these are rotations) is
// registered automatically.
func (g *FrameGraph) Register(from, to Frame, rows [3][3]float64) {
	g.rotations[from.name+"->"+to.name] = Transform{rows: rows}
	g.rotations[to.name+"->"+from.name] = Transform{rows: transpose(rows)}
}

// TransformTo returns the Transform mapping `from` into `to`. An
// identity transform is returned when the frames are equal; an error
// is returned when no rotation has been registered between them.
func (g *FrameGraph) TransformTo(from, to Frame) (Transform, error) {
	if from.Equals(to) {
		return Transform{rows: identity()}, nil
	}
	t, ok := g.rotations[from.name+"->"+to.name]
	if !ok {
		return Transform{}, fmt.Errorf("astroframe: no registered transform from %s to %s", from, to)
	}
	return t, nil
}

func identity() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func transpose(m [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}
