package motion

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// testLogger satisfies the logger interface without producing output.
type testLogger struct{}

func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Warnf(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}
func (testLogger) Fatalf(string, ...interface{}) {}
func (l testLogger) WithField(string, interface{}) customlog.Logger {
	return l
}

var testLoggerInstance customlog.Logger = testLogger{}

// fakeBackend records every published twist.
type fakeBackend struct {
	mu       sync.Mutex
	commands []Twist
	err      error
}

func (f *fakeBackend) Publish(cmd Twist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeBackend) Kind() string { return "fake" }

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func (f *fakeBackend) last() (Twist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return Twist{}, false
	}
	return f.commands[len(f.commands)-1], true
}

// blockingBackend records publishes like fakeBackend but, once armed, holds
// the next non-zero publish inside Publish until released.
type blockingBackend struct {
	mu       sync.Mutex
	commands []Twist
	armed    bool
	release  chan struct{}
}

func (b *blockingBackend) Publish(cmd Twist) error {
	b.mu.Lock()
	hold := b.armed && !cmd.IsZero()
	if hold {
		b.armed = false
	}
	b.mu.Unlock()
	if hold {
		<-b.release
	}
	b.mu.Lock()
	b.commands = append(b.commands, cmd)
	b.mu.Unlock()
	return nil
}

func (b *blockingBackend) Kind() string { return "fake" }

func (b *blockingBackend) arm() {
	b.mu.Lock()
	b.armed = true
	b.mu.Unlock()
}

func (b *blockingBackend) holdingOne() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.armed
}

func (b *blockingBackend) snapshot() []Twist {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Twist, len(b.commands))
	copy(out, b.commands)
	return out
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Name
	}
	return names
}

func (r *eventRecorder) has(name string) bool {
	for _, n := range r.names() {
		if n == name {
			return true
		}
	}
	return false
}

func newTestController(backend Backend, sink EventSink) *Controller {
	return NewController(backend, true, true, Options{
		PublishRate:       10 * time.Millisecond,
		StopBurstCount:    3,
		StopBurstInterval: time.Millisecond,
	}, testLoggerInstance, sink)
}

func TestMoveForwardAppliesDefaultSpeed(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	result := c.MoveForward(0)
	if !result.Success {
		t.Fatalf("Expected move_forward to succeed, got %+v", result)
	}
	if result.Action != "move_forward" {
		t.Errorf("Expected action move_forward, got %s", result.Action)
	}

	cmd, ok := backend.last()
	if !ok {
		t.Fatal("Expected an immediate publish")
	}
	if cmd.Linear.X != 0.2 {
		t.Errorf("Expected default linear speed 0.2, got %f", cmd.Linear.X)
	}
}

func TestMoveBackwardNegatesSpeed(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	c.MoveBackward(0.5)
	cmd, _ := backend.last()
	if cmd.Linear.X != -0.5 {
		t.Errorf("Expected linear speed -0.5, got %f", cmd.Linear.X)
	}
}

func TestTurnDirections(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	c.TurnLeft(0)
	cmd, _ := backend.last()
	if cmd.Angular.Z != 0.5 {
		t.Errorf("Expected default angular speed 0.5 for left turn, got %f", cmd.Angular.Z)
	}

	c.TurnRight(1.0)
	cmd, _ = backend.last()
	if cmd.Angular.Z != -1.0 {
		t.Errorf("Expected angular speed -1.0 for right turn, got %f", cmd.Angular.Z)
	}
}

func TestNonFiniteSpeedFallsBack(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	c.MoveForward(math.NaN())
	cmd, _ := backend.last()
	if cmd.Linear.X != 0.2 {
		t.Errorf("Expected NaN speed to fall back to 0.2, got %f", cmd.Linear.X)
	}
}

func TestCustomMoveTakesComponentsAsGiven(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	c.CustomMove(0.1, 0, 0, 0, 0, math.Inf(1))
	cmd, _ := backend.last()
	if cmd.Linear.X != 0.1 {
		t.Errorf("Expected linear 0.1, got %f", cmd.Linear.X)
	}
	if cmd.Angular.Z != 0 {
		t.Errorf("Expected infinite angular component sanitized to 0, got %f", cmd.Angular.Z)
	}

	st := c.Status()
	if !st.IsMoving {
		t.Error("Expected IsMoving after custom move")
	}
	if st.CurrentTwist.Linear.X != 0.1 {
		t.Errorf("Expected status twist to match command, got %f", st.CurrentTwist.Linear.X)
	}
}

func TestStopPublishesBoundedBurst(t *testing.T) {
	backend := &fakeBackend{}
	rec := &eventRecorder{}
	c := NewController(backend, true, true, Options{
		StopBurstCount:    3,
		StopBurstInterval: time.Millisecond,
	}, testLoggerInstance, rec)

	result := c.Stop()
	if !result.Success {
		t.Fatalf("Expected stop to succeed, got %+v", result)
	}

	time.Sleep(100 * time.Millisecond)

	if got := backend.count(); got != 3 {
		t.Errorf("Expected exactly 3 burst publishes, got %d", got)
	}
	for _, cmd := range backend.commands {
		if !cmd.IsZero() {
			t.Errorf("Expected only zero twists in stop burst, got %+v", cmd)
		}
	}
	if !rec.has(EventMovementUpdate) {
		t.Error("Expected a movement_update event on stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{
		StopBurstCount:    2,
		StopBurstInterval: time.Millisecond,
	}, testLoggerInstance, nil)

	c.MoveForward(0.3)
	first := c.Stop()
	second := c.Stop()

	if !first.Success || !second.Success {
		t.Error("Expected repeated stops to succeed")
	}
	if st := c.Status(); st.IsMoving {
		t.Error("Expected not moving after stop")
	}
}

func TestEmergencyStopSupersedesPattern(t *testing.T) {
	backend := &fakeBackend{}
	rec := &eventRecorder{}
	c := newTestController(backend, rec)

	c.MoveSquare(10, 0.2, 0.5) // long enough to still be active
	result := c.EmergencyStop()
	if !result.Success {
		t.Fatalf("Expected emergency stop to succeed, got %+v", result)
	}

	st := c.Status()
	if st.IsMoving {
		t.Error("Expected not moving after emergency stop")
	}
	if st.ActivePattern != "" {
		t.Errorf("Expected no active pattern, got %s", st.ActivePattern)
	}
	if !rec.has(EventPatternStopped) {
		t.Error("Expected pattern_movement_stopped event")
	}
}

func TestPatternStartEmitsEventAndStatus(t *testing.T) {
	backend := &fakeBackend{}
	rec := &eventRecorder{}
	c := newTestController(backend, rec)
	defer c.EmergencyStop()

	result := c.MoveCircle(1.0, 60000, false)
	if !result.Success {
		t.Fatalf("Expected circle to start, got %+v", result)
	}
	if result.Action != "move_circle" {
		t.Errorf("Expected action move_circle, got %s", result.Action)
	}
	if !rec.has(EventPatternStart) {
		t.Error("Expected pattern_movement_start event")
	}
	if st := c.Status(); st.ActivePattern != PatternCircle {
		t.Errorf("Expected active pattern circle, got %s", st.ActivePattern)
	}
}

func TestPatternSupersededByNewPattern(t *testing.T) {
	backend := &fakeBackend{}
	rec := &eventRecorder{}
	c := newTestController(backend, rec)
	defer c.EmergencyStop()

	c.MoveSquare(10, 0.2, 0.5)
	c.MoveCircle(1.0, 60000, false)

	if st := c.Status(); st.ActivePattern != PatternCircle {
		t.Errorf("Expected circle to supersede square, got %s", st.ActivePattern)
	}
	if !rec.has(EventPatternStopped) {
		t.Error("Expected pattern_movement_stopped for the superseded square")
	}
}

func TestPatternCompletesNaturally(t *testing.T) {
	backend := &fakeBackend{}
	rec := &eventRecorder{}
	c := newTestController(backend, rec)

	c.MoveCircle(0.1, 30, false) // 30ms trace
	deadline := time.After(2 * time.Second)
	for !rec.has(EventPatternComplete) {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for pattern_movement_complete")
		case <-time.After(10 * time.Millisecond):
		}
	}

	st := c.Status()
	if st.IsMoving {
		t.Error("Expected not moving after pattern completion")
	}
	if st.ActivePattern != "" {
		t.Errorf("Expected no active pattern after completion, got %s", st.ActivePattern)
	}
}

func TestPublisherLoopRepublishesWhileMoving(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{
		PublishRate:       5 * time.Millisecond,
		StopBurstCount:    1,
		StopBurstInterval: time.Millisecond,
	}, testLoggerInstance, nil)

	c.MoveForward(0.2)
	time.Sleep(100 * time.Millisecond)
	moving := backend.count()
	if moving < 5 {
		t.Errorf("Expected the loop to republish at least 5 times in 100ms, got %d", moving)
	}

	c.Stop()
	time.Sleep(50 * time.Millisecond)
	settled := backend.count()
	time.Sleep(50 * time.Millisecond)
	if after := backend.count(); after != settled {
		t.Errorf("Expected no publishes after stop settled, got %d more", after-settled)
	}
}

func TestStopBurstOrdersAfterInFlightTick(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}
	c := NewController(backend, true, true, Options{
		PublishRate:       5 * time.Millisecond,
		StopBurstCount:    3,
		StopBurstInterval: time.Millisecond,
	}, testLoggerInstance, nil)

	c.MoveForward(0.3)
	backend.arm()

	// Wait for a loop tick to be stalled inside the transport.
	deadline := time.After(2 * time.Second)
	for !backend.holdingOne() {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for a tick to enter the transport")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()
	time.Sleep(20 * time.Millisecond)
	close(backend.release)
	time.Sleep(50 * time.Millisecond)

	cmds := backend.snapshot()
	if len(cmds) == 0 {
		t.Fatal("Expected recorded publishes")
	}
	if last := cmds[len(cmds)-1]; !last.IsZero() {
		t.Fatalf("Expected the zero burst to be the transport's last word, got %+v", last)
	}
	zeros := 0
	for i := len(cmds) - 1; i >= 0 && cmds[i].IsZero(); i-- {
		zeros++
	}
	if zeros < 3 {
		t.Errorf("Expected the full burst after the held publish, got %d trailing zeros", zeros)
	}
}

func TestConsecutiveFailuresMarkDisconnected(t *testing.T) {
	backend := &fakeBackend{err: errors.New("transport down")}
	c := NewController(backend, true, false, Options{
		PublishRate:      2 * time.Millisecond,
		FailureThreshold: 3,
		StopBurstCount:   1,
	}, testLoggerInstance, nil)
	defer c.Stop()

	c.MoveForward(0.2)
	deadline := time.After(2 * time.Second)
	for {
		if !c.Status().IsConnected {
			return
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for disconnected status")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStatusReportsTelemetryAvailability(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, true, true, Options{}, testLoggerInstance, nil)
	defer c.Close()

	st := c.Status()
	if st.BatteryAvailable || st.OdometryAvailable || st.LaserAvailable {
		t.Error("Expected no telemetry availability before wiring a source")
	}

	c.SetTelemetry(staticAvailability{battery: true, laser: true})
	st = c.Status()
	if !st.BatteryAvailable || st.OdometryAvailable || !st.LaserAvailable {
		t.Errorf("Unexpected availability: %+v", st)
	}
}

type staticAvailability struct {
	battery, odom, laser bool
}

func (s staticAvailability) Available() (bool, bool, bool) {
	return s.battery, s.odom, s.laser
}
