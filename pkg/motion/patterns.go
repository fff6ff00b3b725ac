package motion

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Pattern names accepted by the controller.
const (
	PatternCircle   = "circle"
	PatternTriangle = "triangle"
	PatternSquare   = "square"
	PatternDiamond  = "diamond"
	PatternHeart    = "heart"
)

// heartSteps is the number of discrete samples a heart trace is cut into.
const heartSteps = 100

// phase is one step of a pattern trajectory: command the given twist, hold
// it for the given duration, then advance. A zero twist is a stop phase.
type phase struct {
	twist    Twist
	duration time.Duration
}

// patternJob is one in-flight geometric trajectory. The phase list is
// consumed by a single driver goroutine; closing quit aborts it between
// phases, which keeps cancellation a single check instead of a pile of
// nested timer handles.
type patternJob struct {
	id     string
	name   string
	params map[string]interface{}
	phases []phase
	start  time.Time
	quit   chan struct{}
	done   chan struct{}
}

func newPatternJob(name string, params map[string]interface{}, phases []phase) *patternJob {
	return &patternJob{
		id:     uuid.NewString(),
		name:   name,
		params: params,
		phases: phases,
		start:  time.Now(),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// circlePhases produces a single continuous twist for the whole duration:
// constant linear speed circumference/T and angular speed 2*pi/T, with the
// angular sign flipped for a clockwise trace.
func circlePhases(radius float64, duration time.Duration, clockwise bool) []phase {
	seconds := duration.Seconds()
	linear := 2 * math.Pi * radius / seconds
	angular := 2 * math.Pi / seconds
	if clockwise {
		angular = -angular
	}
	return []phase{
		{twist: NewTwist(linear, 0, 0, 0, 0, angular), duration: duration},
	}
}

// polygonPhases builds the shared side/turn sequence used by the triangle,
// square and diamond traces: move straight for sideLength/linSpeed, stop and
// pause, turn by the exterior angle, stop and pause again.
// alternateTurns flips the turn direction per corner for the diamond's more
// organic trace.
func polygonPhases(sides int, sideLength, linSpeed, angSpeed float64, pause time.Duration, alternateTurns bool) []phase {
	turnAngle := 2 * math.Pi / float64(sides)
	moveDur := time.Duration(sideLength / linSpeed * float64(time.Second))
	turnDur := time.Duration(turnAngle / angSpeed * float64(time.Second))

	phases := make([]phase, 0, sides*5)
	for i := 0; i < sides; i++ {
		w := angSpeed
		if alternateTurns && i%2 == 1 {
			w = -angSpeed
		}
		phases = append(phases,
			phase{twist: NewTwist(linSpeed, 0, 0, 0, 0, 0), duration: moveDur},
			phase{twist: ZeroTwist(), duration: pause},
			phase{twist: NewTwist(0, 0, 0, 0, 0, w), duration: turnDur},
			phase{twist: ZeroTwist(), duration: pause},
		)
	}
	return phases
}

// heartPhases samples a parametric heart-curve-derived speed profile at 100
// discrete steps over the duration. The tripled-frequency term gives the
// trace its visual pulse.
func heartPhases(size float64, duration time.Duration) []phase {
	step := duration / heartSteps
	base := 2 * math.Pi / duration.Seconds()

	phases := make([]phase, 0, heartSteps)
	for i := 0; i < heartSteps; i++ {
		theta := 2 * math.Pi * float64(i) / heartSteps
		linear := size * 0.25 * (1 + 0.6*math.Cos(theta) + 0.4*math.Sin(theta) + 0.2*math.Cos(3*theta))
		angular := base * (1 + 0.3*math.Sin(3*theta))
		if theta > math.Pi {
			angular = -angular
		}
		phases = append(phases, phase{
			twist:    NewTwist(linear, 0, 0, 0, 0, angular),
			duration: step,
		})
	}
	return phases
}

// totalDuration sums the phase durations of a job.
func totalDuration(phases []phase) time.Duration {
	var d time.Duration
	for _, ph := range phases {
		d += ph.duration
	}
	return d
}
