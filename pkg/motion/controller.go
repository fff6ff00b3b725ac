package motion

import (
	"sync"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// Backend is the downstream channel that consumes published twists. The
// controller never decides between real and simulated transport itself; that
// is the backend selector's job at boot.
type Backend interface {
	Publish(cmd Twist) error
	Kind() string
}

// Options holds the control-loop timing and the documented numeric
// fallbacks. Zero fields are filled with defaults.
type Options struct {
	PublishRate       time.Duration // fixed republish rate while moving
	StopBurstCount    int           // zero-twist publishes after a stop
	StopBurstInterval time.Duration // spacing inside the stop burst
	FailureThreshold  int           // consecutive publish failures before connected is forced false
	DefaultLinear     float64       // m/s fallback for missing speed inputs
	DefaultAngular    float64       // rad/s fallback for missing angular inputs
	DefaultPause      time.Duration // pattern corner pause fallback
}

func (o *Options) fillDefaults() {
	if o.PublishRate <= 0 {
		o.PublishRate = 100 * time.Millisecond
	}
	if o.StopBurstCount <= 0 {
		o.StopBurstCount = 5
	}
	if o.StopBurstInterval <= 0 {
		o.StopBurstInterval = 10 * time.Millisecond
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 10
	}
	if o.DefaultLinear == 0 {
		o.DefaultLinear = 0.2
	}
	if o.DefaultAngular == 0 {
		o.DefaultAngular = 0.5
	}
	if o.DefaultPause <= 0 {
		o.DefaultPause = 500 * time.Millisecond
	}
}

// Controller is the motion control facade. It owns the motion state
// exclusively: every movement call mutates it here, the publisher loop and
// status queries only read snapshots.
type Controller struct {
	backend Backend
	logger  customlog.Logger
	sink    EventSink
	avail   TelemetryAvailability
	opts    Options

	mu       sync.Mutex
	st       state
	loopQuit chan struct{}
	failures int

	// sendMu serializes backend sends with the stop burst. Ticks snapshot
	// the command outside mu, so without this a send that raced a stop
	// could land after the burst and leave a motion command as the
	// transport's last word.
	sendMu sync.Mutex
}

// NewController creates the single motion controller instance for the
// process. connected and usingSimulation come from the backend selector.
func NewController(backend Backend, connected, usingSimulation bool, opts Options, logger customlog.Logger, sink EventSink) *Controller {
	opts.fillDefaults()
	if sink == nil {
		sink = nopSink{}
	}
	return &Controller{
		backend: backend,
		logger:  logger,
		sink:    sink,
		opts:    opts,
		st: state{
			connected:       connected,
			usingSimulation: usingSimulation,
		},
	}
}

// SetTelemetry wires the telemetry availability source used by Status.
func (c *Controller) SetTelemetry(avail TelemetryAvailability) {
	c.mu.Lock()
	c.avail = avail
	c.mu.Unlock()
}

// MoveForward commands a straight forward drive at the given speed.
func (c *Controller) MoveForward(speed float64) Result {
	v := Coerce(speed, c.opts.DefaultLinear)
	return c.applyCommand("move_forward", NewTwist(v, 0, 0, 0, 0, 0),
		map[string]interface{}{"speed": v})
}

// MoveBackward commands a straight reverse drive at the given speed.
func (c *Controller) MoveBackward(speed float64) Result {
	v := Coerce(speed, c.opts.DefaultLinear)
	return c.applyCommand("move_backward", NewTwist(-v, 0, 0, 0, 0, 0),
		map[string]interface{}{"speed": v})
}

// TurnLeft commands an in-place counter-clockwise rotation.
func (c *Controller) TurnLeft(angularSpeed float64) Result {
	w := Coerce(angularSpeed, c.opts.DefaultAngular)
	return c.applyCommand("turn_left", NewTwist(0, 0, 0, 0, 0, w),
		map[string]interface{}{"angular_speed": w})
}

// TurnRight commands an in-place clockwise rotation.
func (c *Controller) TurnRight(angularSpeed float64) Result {
	w := Coerce(angularSpeed, c.opts.DefaultAngular)
	return c.applyCommand("turn_right", NewTwist(0, 0, 0, 0, 0, -w),
		map[string]interface{}{"angular_speed": w})
}

// CustomMove commands an arbitrary 6-DOF twist. Components are taken as
// given (after finite coercion); there are no per-field fallbacks here.
func (c *Controller) CustomMove(lx, ly, lz, ax, ay, az float64) Result {
	cmd := NewTwist(lx, ly, lz, ax, ay, az)
	return c.applyCommand("custom_move", cmd,
		map[string]interface{}{"twist": cmd})
}

// Stop halts the base: the publisher loop is cancelled immediately, the
// commanded twist goes to zero and a bounded zero-twist burst defeats
// message loss on an unreliable transport. Idempotent.
func (c *Controller) Stop() Result {
	return c.halt("stop")
}

// EmergencyStop takes the same path as Stop and additionally supersedes any
// active pattern. It is the one motion entry point with no preconditions.
func (c *Controller) EmergencyStop() Result {
	return c.halt("emergency_stop")
}

// MoveCircle traces a circle of the given radius over the given duration.
func (c *Controller) MoveCircle(radius float64, durationMs float64, clockwise bool) Result {
	r := Coerce(radius, 1.0)
	d := time.Duration(Coerce(durationMs, 10000)) * time.Millisecond
	params := map[string]interface{}{"radius": r, "duration_ms": d.Milliseconds(), "clockwise": clockwise}
	return c.startPattern(PatternCircle, params, circlePhases(r, d, clockwise))
}

// MoveTriangle traces an equilateral triangle, pausing at each corner.
func (c *Controller) MoveTriangle(sideLength float64, pauseMs float64) Result {
	side := Coerce(sideLength, 1.0)
	pause := time.Duration(Coerce(pauseMs, float64(c.opts.DefaultPause.Milliseconds()))) * time.Millisecond
	params := map[string]interface{}{"side_length": side, "pause_ms": pause.Milliseconds()}
	phases := polygonPhases(3, side, c.opts.DefaultLinear, c.opts.DefaultAngular, pause, false)
	return c.startPattern(PatternTriangle, params, phases)
}

// MoveSquare traces a square at the given linear and angular speeds.
func (c *Controller) MoveSquare(sideLength, linearSpeed, angularSpeed float64) Result {
	side := Coerce(sideLength, 1.0)
	v := Coerce(linearSpeed, c.opts.DefaultLinear)
	w := Coerce(angularSpeed, c.opts.DefaultAngular)
	params := map[string]interface{}{"side_length": side, "linear_speed": v, "angular_speed": w}
	phases := polygonPhases(4, side, v, w, c.opts.DefaultPause, false)
	return c.startPattern(PatternSquare, params, phases)
}

// MoveDiamond traces a diamond, alternating turn direction per corner.
func (c *Controller) MoveDiamond(sideLength float64, pauseMs float64) Result {
	side := Coerce(sideLength, 1.0)
	pause := time.Duration(Coerce(pauseMs, float64(c.opts.DefaultPause.Milliseconds()))) * time.Millisecond
	params := map[string]interface{}{"side_length": side, "pause_ms": pause.Milliseconds()}
	phases := polygonPhases(4, side, c.opts.DefaultLinear, c.opts.DefaultAngular, pause, true)
	return c.startPattern(PatternDiamond, params, phases)
}

// MoveHeart traces a heart curve sampled at 100 steps over the duration.
func (c *Controller) MoveHeart(size float64, durationMs float64) Result {
	s := Coerce(size, 1.0)
	d := time.Duration(Coerce(durationMs, 10000)) * time.Millisecond
	params := map[string]interface{}{"size": s, "duration_ms": d.Milliseconds()}
	return c.startPattern(PatternHeart, params, heartPhases(s, d))
}

// StopPattern cancels any active pattern job and halts the base. Calling it
// with no active pattern is not an error.
func (c *Controller) StopPattern() Result {
	return c.halt("stop_pattern")
}

// Status returns a snapshot of the motion state. Pure read, no side effects.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		IsConnected:     c.st.connected,
		IsMoving:        c.st.isMoving(),
		UsingSimulation: c.st.usingSimulation,
		CurrentTwist:    c.st.current,
		Timestamp:       nowMillis(),
	}
	if c.st.activeJob != nil {
		st.ActivePattern = c.st.activeJob.name
	}
	avail := c.avail
	c.mu.Unlock()

	if avail != nil {
		st.BatteryAvailable, st.OdometryAvailable, st.LaserAvailable = avail.Available()
	}
	return st
}

// Close issues the final stop on process shutdown and waits for the burst.
func (c *Controller) Close() {
	c.mu.Lock()
	stopped := c.cancelActiveLocked()
	c.stopLoopLocked()
	c.st.current = ZeroTwist()
	c.mu.Unlock()

	if stopped != nil {
		c.sink.Emit(*stopped)
	}
	c.stopBurst()
}

// applyCommand is the shared path for one-shot velocity commands: supersede
// any pattern, install the new twist, make sure the publisher loop runs, and
// push the command out immediately so it does not wait for the next tick.
func (c *Controller) applyCommand(action string, cmd Twist, params map[string]interface{}) Result {
	c.mu.Lock()
	stopped := c.cancelActiveLocked()
	c.st.current = cmd
	if cmd.IsZero() {
		c.stopLoopLocked()
	} else {
		c.ensureLoopLocked()
	}
	update := c.movementEventLocked()
	c.mu.Unlock()

	if stopped != nil {
		c.sink.Emit(*stopped)
	}
	c.sink.Emit(update)

	err := c.publishIfCurrent(cmd)
	if err != nil {
		c.logger.Warnf("Command %s publish failed: %v", action, err)
	}
	return Result{Success: err == nil, Action: action, Parameters: params}
}

// halt is the shared stop path: cancel the pattern, kill the loop, zero the
// state and fire the bounded stop burst in the background.
func (c *Controller) halt(action string) Result {
	c.mu.Lock()
	stopped := c.cancelActiveLocked()
	c.stopLoopLocked()
	c.st.current = ZeroTwist()
	update := c.movementEventLocked()
	c.mu.Unlock()

	if stopped != nil {
		c.sink.Emit(*stopped)
	}
	c.sink.Emit(update)

	go c.stopBurst()
	return Result{Success: true, Action: action}
}

// startPattern supersedes the previous job, installs the new one and starts
// its driver goroutine. At most one job's timers are ever alive.
func (c *Controller) startPattern(name string, params map[string]interface{}, phases []phase) Result {
	job := newPatternJob(name, params, phases)

	c.mu.Lock()
	stopped := c.cancelActiveLocked()
	c.st.activeJob = job
	c.mu.Unlock()

	if stopped != nil {
		c.sink.Emit(*stopped)
	}
	c.sink.Emit(Event{Name: EventPatternStart, Data: map[string]interface{}{
		"pattern": name,
		"params":  params,
		"job_id":  job.id,
	}})
	c.logger.Infof("Pattern %s started (%d phases, ~%s)", name, len(phases), totalDuration(phases))

	go c.runJob(job)
	return Result{Success: true, Action: "move_" + name, Parameters: params}
}

// runJob is the single driver for a pattern job: it walks the phase list,
// applying each twist and sleeping out its duration, aborting as soon as the
// quit channel closes.
func (c *Controller) runJob(job *patternJob) {
	defer close(job.done)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for _, ph := range job.phases {
		select {
		case <-job.quit:
			return
		default:
		}

		c.applyPhase(job, ph.twist)

		timer.Reset(ph.duration)
		select {
		case <-job.quit:
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}

	c.completeJob(job)
}

// applyPhase installs a phase twist on behalf of a job. A superseded job
// finds itself no longer active and gives up without touching state.
func (c *Controller) applyPhase(job *patternJob, cmd Twist) {
	c.mu.Lock()
	if c.st.activeJob != job {
		c.mu.Unlock()
		return
	}
	c.st.current = cmd
	if cmd.IsZero() {
		c.stopLoopLocked()
	} else {
		c.ensureLoopLocked()
	}
	update := c.movementEventLocked()
	c.mu.Unlock()

	c.sink.Emit(update)
	if err := c.publishIfCurrent(cmd); err != nil {
		c.logger.Warnf("Pattern %s phase publish failed: %v", job.name, err)
	}
}

// completeJob runs the deferred stop when a job finishes naturally.
func (c *Controller) completeJob(job *patternJob) {
	c.mu.Lock()
	if c.st.activeJob != job {
		c.mu.Unlock()
		return
	}
	c.st.activeJob = nil
	c.stopLoopLocked()
	c.st.current = ZeroTwist()
	update := c.movementEventLocked()
	c.mu.Unlock()

	c.sink.Emit(update)
	c.stopBurst()
	c.sink.Emit(Event{Name: EventPatternComplete, Data: map[string]interface{}{
		"pattern":    job.name,
		"params":     job.params,
		"job_id":     job.id,
		"elapsed_ms": time.Since(job.start).Milliseconds(),
	}})
	c.logger.Infof("Pattern %s completed after %s", job.name, time.Since(job.start))
}

// cancelActiveLocked supersedes the active job, if any. The quit channel is
// closed before the caller returns, so no timers belonging to the old job
// survive the call. Returns the stopped event to emit after unlocking.
func (c *Controller) cancelActiveLocked() *Event {
	job := c.st.activeJob
	if job == nil {
		return nil
	}
	c.st.activeJob = nil
	close(job.quit)
	c.logger.Debugf("Pattern %s superseded", job.name)
	return &Event{Name: EventPatternStopped, Data: map[string]interface{}{
		"pattern":    job.name,
		"params":     job.params,
		"job_id":     job.id,
		"elapsed_ms": time.Since(job.start).Milliseconds(),
	}}
}

// ensureLoopLocked starts the fixed-rate republish loop if it is not
// already running. Idempotent: a new command only updates the state the
// running loop reads.
func (c *Controller) ensureLoopLocked() {
	if c.loopQuit != nil {
		return
	}
	quit := make(chan struct{})
	c.loopQuit = quit
	go c.publishLoop(quit)
}

// stopLoopLocked cancels the republish loop immediately; no further ticks
// fire after this returns.
func (c *Controller) stopLoopLocked() {
	if c.loopQuit == nil {
		return
	}
	close(c.loopQuit)
	c.loopQuit = nil
}

// publishLoop re-sends the live snapshot of the current command at a fixed
// rate so the receiving side's watchdog never times out. It always reads the
// most recently written twist: a command update takes effect on the very
// next tick without restarting the timer.
func (c *Controller) publishLoop(quit chan struct{}) {
	ticker := time.NewTicker(c.opts.PublishRate)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.loopQuit != quit {
				c.mu.Unlock()
				return
			}
			cmd := c.st.current
			moving := c.st.isMoving()
			c.mu.Unlock()

			if !moving {
				continue
			}
			if err := c.publishIfCurrent(cmd); err != nil {
				c.logger.Debugf("Republish failed, retrying on next tick: %v", err)
			}
		}
	}
}

// stopBurst over-publishes the zero twist a bounded number of times. This is
// deliberate over-publish against message loss, not retry-until-success:
// failures are logged and otherwise ignored. It holds the send slot for the
// whole burst, so any tick already inside a send finishes first and nothing
// interleaves with the zeroes.
func (c *Controller) stopBurst() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	zero := ZeroTwist()
	for i := 0; i < c.opts.StopBurstCount; i++ {
		if err := c.publish(zero); err != nil {
			c.logger.Warnf("Stop burst publish %d/%d failed: %v", i+1, c.opts.StopBurstCount, err)
		}
		if i < c.opts.StopBurstCount-1 {
			time.Sleep(c.opts.StopBurstInterval)
		}
	}
}

// publishIfCurrent claims the send slot, then re-checks that cmd is still
// the commanded twist before forwarding it. A snapshot taken before a
// concurrent stop or supersession is dropped here rather than sent after the
// state that replaced it.
func (c *Controller) publishIfCurrent(cmd Twist) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	current := c.st.current
	c.mu.Unlock()
	if current != cmd {
		return nil
	}
	return c.publish(cmd)
}

// publish forwards one command to the backend and tracks consecutive
// failures. A long enough failure run forces connected to false; the loop
// itself never aborts on a publish error.
func (c *Controller) publish(cmd Twist) error {
	err := c.backend.Publish(cmd)

	c.mu.Lock()
	if err != nil {
		c.failures++
		if c.failures >= c.opts.FailureThreshold && c.st.connected {
			c.st.connected = false
			c.logger.Errorf("Transport failed %d consecutive publishes, marking disconnected", c.failures)
		}
	} else {
		c.failures = 0
	}
	c.mu.Unlock()

	return err
}

// movementEventLocked builds the movement_update event for the current state.
func (c *Controller) movementEventLocked() Event {
	return Event{Name: EventMovementUpdate, Data: map[string]interface{}{
		"twist":     c.st.current,
		"is_moving": c.st.isMoving(),
	}}
}
