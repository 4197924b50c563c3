package evolution

import "math"

// Directions reported with velocity.
const (
	DirectionAccelerating = "ACCELERATING"
	DirectionDecelerating = "DECELERATING"
	DirectionStable       = "STABLE"
)

// steepsDomains is the number of STEEPs categories a thread can span.
const steepsDomains = 6

// velocityScale maps a pSST slope of 10 points per appearance to velocity 1.
const velocityScale = 10.0

// Metrics summarizes a thread's trajectory.
type Metrics struct {
	Velocity  float64 `json:"velocity"`
	Direction string  `json:"direction"`
	Expansion float64 `json:"expansion"`
}

// ComputeMetrics derives velocity, direction and expansion. Velocity is the
// least-squares slope of pSST over appearance order, scaled into [-1, 1], and
// is exactly 0 below minAppearances. Expansion grows with the number of
// categories the thread has touched and is 0 for a single category.
func ComputeMetrics(thread *Thread, minAppearances int) Metrics {
	velocity := 0.0
	n := len(thread.Appearances)
	if n >= minAppearances && n >= 2 {
		xMean := float64(n-1) / 2
		yMean := 0.0
		for _, a := range thread.Appearances {
			yMean += a.PSSTScore
		}
		yMean /= float64(n)

		var num, den float64
		for i, a := range thread.Appearances {
			dx := float64(i) - xMean
			num += dx * (a.PSSTScore - yMean)
			den += dx * dx
		}
		if den > 0 {
			velocity = clamp(num/den/velocityScale, -1, 1)
		}
	}
	velocity = round3(velocity)

	direction := DirectionStable
	switch {
	case velocity > 0:
		direction = DirectionAccelerating
	case velocity < 0:
		direction = DirectionDecelerating
	}

	expansion := 0.0
	if cats := len(thread.AllCategories); cats > 1 {
		expansion = round3(clamp(float64(cats-1)/float64(steepsDomains-1), 0, 1))
	}

	return Metrics{Velocity: velocity, Direction: direction, Expansion: expansion}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}
