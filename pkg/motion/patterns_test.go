package motion

import (
	"math"
	"testing"
	"time"
)

func TestCirclePhases(t *testing.T) {
	phases := circlePhases(1.0, 10*time.Second, false)
	if len(phases) != 1 {
		t.Fatalf("Expected a single continuous phase, got %d", len(phases))
	}

	ph := phases[0]
	wantLinear := 2 * math.Pi / 10
	if math.Abs(ph.twist.Linear.X-wantLinear) > 1e-9 {
		t.Errorf("Expected linear speed %f, got %f", wantLinear, ph.twist.Linear.X)
	}
	wantAngular := 2 * math.Pi / 10
	if math.Abs(ph.twist.Angular.Z-wantAngular) > 1e-9 {
		t.Errorf("Expected angular speed %f, got %f", wantAngular, ph.twist.Angular.Z)
	}
	if ph.duration != 10*time.Second {
		t.Errorf("Expected 10s duration, got %s", ph.duration)
	}
}

func TestCirclePhasesClockwiseFlipsAngular(t *testing.T) {
	ccw := circlePhases(1.0, 10*time.Second, false)
	cw := circlePhases(1.0, 10*time.Second, true)
	if cw[0].twist.Angular.Z != -ccw[0].twist.Angular.Z {
		t.Errorf("Expected clockwise to negate angular speed, got %f and %f",
			cw[0].twist.Angular.Z, ccw[0].twist.Angular.Z)
	}
}

func TestPolygonPhaseStructure(t *testing.T) {
	pause := 100 * time.Millisecond
	phases := polygonPhases(4, 1.0, 0.2, 0.5, pause, false)

	// Each side contributes move, pause, turn, pause.
	if len(phases) != 16 {
		t.Fatalf("Expected 16 phases for a square, got %d", len(phases))
	}

	move := phases[0]
	if move.twist.Linear.X != 0.2 || move.twist.Angular.Z != 0 {
		t.Errorf("Expected pure linear move phase, got %+v", move.twist)
	}
	if move.duration != 5*time.Second { // 1.0m at 0.2m/s
		t.Errorf("Expected 5s move duration, got %s", move.duration)
	}

	if !phases[1].twist.IsZero() || phases[1].duration != pause {
		t.Errorf("Expected stop-pause phase, got %+v for %s", phases[1].twist, phases[1].duration)
	}

	turn := phases[2]
	if turn.twist.Linear.X != 0 || turn.twist.Angular.Z != 0.5 {
		t.Errorf("Expected pure turn phase, got %+v", turn.twist)
	}
	turnAngle := math.Pi / 2
	wantTurnDur := time.Duration(turnAngle / 0.5 * float64(time.Second))
	if turn.duration != wantTurnDur {
		t.Errorf("Expected turn duration %s, got %s", wantTurnDur, turn.duration)
	}
}

func TestPolygonAlternatingTurns(t *testing.T) {
	phases := polygonPhases(4, 1.0, 0.2, 0.5, time.Millisecond, true)

	firstTurn := phases[2].twist.Angular.Z
	secondTurn := phases[6].twist.Angular.Z
	if firstTurn != 0.5 || secondTurn != -0.5 {
		t.Errorf("Expected alternating turn directions, got %f then %f", firstTurn, secondTurn)
	}
}

func TestTrianglePhaseCount(t *testing.T) {
	phases := polygonPhases(3, 1.0, 0.2, 0.5, time.Millisecond, false)
	if len(phases) != 12 {
		t.Errorf("Expected 12 phases for a triangle, got %d", len(phases))
	}
}

func TestHeartPhases(t *testing.T) {
	duration := 10 * time.Second
	phases := heartPhases(1.0, duration)
	if len(phases) != heartSteps {
		t.Fatalf("Expected %d phases, got %d", heartSteps, len(phases))
	}

	if got := totalDuration(phases); got != duration {
		t.Errorf("Expected total duration %s, got %s", duration, got)
	}

	// The trace runs counter-clockwise through the first half and
	// clockwise through the second.
	if phases[10].twist.Angular.Z <= 0 {
		t.Errorf("Expected positive angular speed in first half, got %f", phases[10].twist.Angular.Z)
	}
	if phases[60].twist.Angular.Z >= 0 {
		t.Errorf("Expected negative angular speed in second half, got %f", phases[60].twist.Angular.Z)
	}

	for i, ph := range phases {
		if ph.twist.Linear.X < 0 {
			t.Errorf("Phase %d: expected non-negative linear speed, got %f", i, ph.twist.Linear.X)
		}
	}
}

func TestHeartSizeScalesLinearOnly(t *testing.T) {
	small := heartPhases(1.0, 10*time.Second)
	large := heartPhases(2.0, 10*time.Second)

	for i := range small {
		wantLinear := small[i].twist.Linear.X * 2
		if math.Abs(large[i].twist.Linear.X-wantLinear) > 1e-9 {
			t.Fatalf("Phase %d: expected linear speed to scale with size", i)
		}
		if large[i].twist.Angular.Z != small[i].twist.Angular.Z {
			t.Fatalf("Phase %d: expected angular speed independent of size", i)
		}
	}
}
