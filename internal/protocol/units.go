package protocol

import (
	"fmt"
	"math"
	"sort"
)

// Device sub-units are tenths: 0.1 mm for coordinates, 0.1 µL for
// volumes. Conversion rounds half-up so repeated operations do not
// drift systematically; plain truncation loses ~0.05 units per call.

// Tenths converts a logical mm/µL value to integer device tenths.
func Tenths(v float64) int {
	return int(math.Floor(v*10.0 + 0.5))
}

// FromTenths converts integer device tenths back to a logical value.
func FromTenths(n int) float64 {
	return float64(n) / 10.0
}

func formatToken(v, width int) (string, error) {
	if v < 0 {
		return "", fmt.Errorf("%w: negative value %d", ErrTokenRange, v)
	}
	s := fmt.Sprintf("%0*d", width, v)
	if len(s) > width {
		return "", fmt.Errorf("%w: %d needs %d digits, field width %d", ErrTokenRange, v, len(s), width)
	}
	return s, nil
}

// CurvePoint maps a target volume to the corrected volume the firmware
// must move to actually deliver the target.
type CurvePoint struct {
	TargetUL    float64
	CorrectedUL float64
}

// CalibrationCurve is a per-liquid-class volume correction, applied by
// piecewise-linear interpolation. Beyond the last point the final
// segment is extended.
type CalibrationCurve struct {
	points []CurvePoint
}

// NewCalibrationCurve builds a curve from points sorted by target
// volume. At least two points are required and targets must be strictly
// increasing from zero.
func NewCalibrationCurve(points []CurvePoint) (CalibrationCurve, error) {
	if len(points) < 2 {
		return CalibrationCurve{}, fmt.Errorf("%w: need at least 2 points", ErrCurve)
	}
	sorted := make([]CurvePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TargetUL < sorted[j].TargetUL })
	if sorted[0].TargetUL != 0 {
		return CalibrationCurve{}, fmt.Errorf("%w: curve must start at 0", ErrCurve)
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].TargetUL == sorted[i-1].TargetUL {
			return CalibrationCurve{}, fmt.Errorf("%w: duplicate target %.1f", ErrCurve, sorted[i].TargetUL)
		}
	}
	return CalibrationCurve{points: sorted}, nil
}

// Correct maps a target volume through the curve.
func (c CalibrationCurve) Correct(v float64) float64 {
	if len(c.points) == 0 {
		return v
	}
	i := 1
	for i < len(c.points)-1 && v > c.points[i].TargetUL {
		i++
	}
	lo, hi := c.points[i-1], c.points[i]
	t := (v - lo.TargetUL) / (hi.TargetUL - lo.TargetUL)
	return lo.CorrectedUL + t*(hi.CorrectedUL-lo.CorrectedUL)
}

// DefaultWaterCurve is the stock water liquid class: 100.0 µL aspirates
// as 107.2, 50.0 as 55.1, 200.0 as 211.0.
func DefaultWaterCurve() CalibrationCurve {
	curve, err := NewCalibrationCurve([]CurvePoint{
		{TargetUL: 0, CorrectedUL: 0},
		{TargetUL: 50, CorrectedUL: 55.1},
		{TargetUL: 100, CorrectedUL: 107.2},
		{TargetUL: 200, CorrectedUL: 211.0},
		{TargetUL: 500, CorrectedUL: 524.0},
		{TargetUL: 1000, CorrectedUL: 1033.0},
	})
	if err != nil {
		panic(err)
	}
	return curve
}
