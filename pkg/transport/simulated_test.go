package transport

import (
	"errors"
	"testing"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Warnf(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}
func (testLogger) Fatalf(string, ...interface{}) {}
func (l testLogger) WithField(string, interface{}) customlog.Logger {
	return l
}

var testLog customlog.Logger = testLogger{}

func fastTicks() SimulatedTicks {
	return SimulatedTicks{
		Odometry: 5 * time.Millisecond,
		Laser:    5 * time.Millisecond,
		Battery:  5 * time.Millisecond,
	}
}

func TestSimulatedSeedsSnapshotOnStart(t *testing.T) {
	store := telemetry.NewStore(nil)
	sim := NewSimulatedTransport(store, fastTicks(), testLog)
	sim.Start()
	defer sim.Close()

	battery, odom, laser := store.Available()
	if !battery || !odom || !laser {
		t.Errorf("Expected all feeds seeded at start, got battery=%v odom=%v laser=%v",
			battery, odom, laser)
	}

	b, _ := store.Battery()
	if b.Percentage != 100 {
		t.Errorf("Expected full battery at start, got %f", b.Percentage)
	}

	scan, _ := store.Laser()
	if len(scan.Ranges) != simLaserBeams {
		t.Errorf("Expected %d beams, got %d", simLaserBeams, len(scan.Ranges))
	}
	for i, r := range scan.Ranges {
		if r < scan.RangeMin || r > scan.RangeMax {
			t.Fatalf("Beam %d out of range bounds: %f", i, r)
		}
	}
}

func TestSimulatedKind(t *testing.T) {
	sim := NewSimulatedTransport(telemetry.NewStore(nil), fastTicks(), testLog)
	if sim.Kind() != KindSimulation {
		t.Errorf("Expected kind simulation, got %s", sim.Kind())
	}
}

func TestSimulatedOdometryIntegratesCommands(t *testing.T) {
	store := telemetry.NewStore(nil)
	sim := NewSimulatedTransport(store, fastTicks(), testLog)
	sim.Start()
	defer sim.Close()

	if err := sim.Publish(motion.NewTwist(1.0, 0, 0, 0, 0, 0)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	odom, ok := store.Odometry()
	if !ok {
		t.Fatal("Expected odometry data")
	}
	if odom.X <= 0 {
		t.Errorf("Expected forward drive to advance x, got %f", odom.X)
	}
	if odom.Twist.Linear.X != 1.0 {
		t.Errorf("Expected reported twist to match command, got %f", odom.Twist.Linear.X)
	}
}

func TestSimulatedBatteryDrains(t *testing.T) {
	store := telemetry.NewStore(nil)
	sim := NewSimulatedTransport(store, fastTicks(), testLog)
	sim.Start()
	defer sim.Close()

	time.Sleep(100 * time.Millisecond)

	battery, _ := store.Battery()
	if battery.Percentage >= 100 {
		t.Errorf("Expected battery to drain over ticks, got %f", battery.Percentage)
	}
	if battery.Voltage > simBatteryFullVoltage || battery.Voltage < simBatteryMinVoltage {
		t.Errorf("Voltage outside model bounds: %f", battery.Voltage)
	}
}

func TestSimulatedPublishAfterClose(t *testing.T) {
	sim := NewSimulatedTransport(telemetry.NewStore(nil), fastTicks(), testLog)
	sim.Start()
	sim.Close()

	err := sim.Publish(motion.ZeroTwist())
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed, got %v", err)
	}
}
