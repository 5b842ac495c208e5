// Constant-thrust maneuver force model, grounded on the teacher's
// thrusters.go (Thruster/PPS1350/HERMeS hardware table) for the
// thrust/Isp data, and on prop.go's Tangential ThrustControl (a unit
// vector along velocity in the TNW frame) for the burn direction.
// Waypoint-driven control laws (Ruggiero/Naasz optimal steering) are
// out of this propagator core's scope; this model fires for a fixed
// [start, stop) window instead of until a target orbit is reached.
package forcemodel

import (
	"time"

	"github.com/orbitcore/propagator/astroframe"
)

// Thruster reports the performance of an electric-propulsion thruster
// at its operating point: thrust in newtons and specific impulse in
// seconds.
type Thruster interface {
	Min() (voltage, power uint)
	Max() (voltage, power uint)
	Thrust(voltage, power uint) (thrustN, ispSec float64)
}

// PPS1350 is the Snecma thruster used on SMART-1.
type PPS1350 struct{}

func (PPS1350) Min() (voltage, power uint) { return 350, 2500 }
func (PPS1350) Max() (voltage, power uint) { return 350, 2500 }
func (PPS1350) Thrust(voltage, power uint) (thrustN, ispSec float64) {
	if voltage == 350 && power == 2500 {
		return 89e-3, 1650
	}
	panic("PPS1350: unsupported voltage or power")
}

// HERMeS is based on the NASA & Rocketdyne 12.5kW demo thruster.
type HERMeS struct{}

func (HERMeS) Min() (voltage, power uint) { return 800, 12500 }
func (HERMeS) Max() (voltage, power uint) { return 800, 12500 }
func (HERMeS) Thrust(voltage, power uint) (thrustN, ispSec float64) {
	if voltage == 800 && power == 12500 {
		return 0.680, 2960
	}
	panic("HERMeS: unsupported voltage or power")
}

const earthG0 = 9.80665 // standard gravity, m/s^2, for the Tsiolkovsky mass-flow relation

// ConstantThrustModel burns a thruster tangentially (along velocity,
// the teacher's Tangential control law) for a fixed date window. It
// contributes a TNW acceleration and a negative mass rate, and
// registers two switching functions — maneuver start and stop — so
// the driver's event machinery fires exactly at the boundaries of the
// burn regardless of the integrator's internal step size.
type ConstantThrustModel struct {
	Thruster       Thruster
	Voltage, Power uint
	Start, Stop    astroframe.AbsoluteDate
}

// NewConstantThrustModel returns a tangential constant-thrust model
// firing over [start, stop).
func NewConstantThrustModel(thruster Thruster, voltage, power uint, start, stop astroframe.AbsoluteDate) *ConstantThrustModel {
	return &ConstantThrustModel{Thruster: thruster, Voltage: voltage, Power: power, Start: start, Stop: stop}
}

// AddContribution implements forcemodel.ForceModel.
func (m *ConstantThrustModel) AddContribution(date astroframe.AbsoluteDate, pv astroframe.PV, mass float64, acc Accumulator) error {
	if date.Before(m.Start) || !date.Before(m.Stop) {
		return nil
	}
	thrustN, ispSec := m.Thruster.Thrust(m.Voltage, m.Power)
	if mass <= 0 {
		return nil
	}
	accelMag := thrustN / mass
	acc.AddAcceleration(TNW, [3]float64{accelMag, 0, 0})
	dmdt := -thrustN / (ispSec * earthG0)
	acc.AddMassRate(dmdt)
	return nil
}

// SwitchingFunctions implements forcemodel.ForceModel.
func (m *ConstantThrustModel) SwitchingFunctions() []SwitchingFunction {
	return []SwitchingFunction{
		&maneuverBoundary{at: m.Start, label: "maneuver-start"},
		&maneuverBoundary{at: m.Stop, label: "maneuver-stop"},
	}
}

// maneuverBoundary is a date-triggered switching function: g changes
// sign exactly at `at`, independent of the orbital state. It forces a
// derivative recomputation so the thrust/no-thrust discontinuity is
// never smeared across an integrator step.
type maneuverBoundary struct {
	at    astroframe.AbsoluteDate
	label string
}

func (b *maneuverBoundary) MaxCheckInterval() time.Duration { return time.Hour }
func (b *maneuverBoundary) Threshold() float64              { return 1e-3 }
func (b *maneuverBoundary) MaxIterations() int               { return 50 }

func (b *maneuverBoundary) G(date astroframe.AbsoluteDate, _ astroframe.PV) float64 {
	return date.Sub(b.at)
}

func (b *maneuverBoundary) EventOccurred(astroframe.AbsoluteDate, astroframe.PV) (Action, error) {
	return ResetDerivatives, nil
}

func (b *maneuverBoundary) ResetState(_ astroframe.AbsoluteDate, pv astroframe.PV) astroframe.PV {
	return pv
}
