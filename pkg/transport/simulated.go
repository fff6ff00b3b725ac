package transport

import (
	"math"
	"math/rand"
	"sync"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
)

// Simulated battery model constants.
const (
	simBatteryFullVoltage = 12.5
	simBatteryMinVoltage  = 11.1
	simBatteryDrainPct    = 0.2 // percent lost per battery tick
	simLaserBeams         = 360
)

// SimulatedTicks configures the synthetic telemetry intervals.
type SimulatedTicks struct {
	Odometry time.Duration
	Laser    time.Duration
	Battery  time.Duration
}

func (t *SimulatedTicks) fillDefaults() {
	if t.Odometry <= 0 {
		t.Odometry = 100 * time.Millisecond
	}
	if t.Laser <= 0 {
		t.Laser = 200 * time.Millisecond
	}
	if t.Battery <= 0 {
		t.Battery = 30 * time.Second
	}
}

// SimulatedTransport is the software stand-in for the robot bridge. Publish
// only records the command; background tickers fabricate battery, odometry
// and laser telemetry so API consumers observe continuously live-looking
// data regardless of backend.
type SimulatedTransport struct {
	logger customlog.Logger
	store  *telemetry.Store
	ticks  SimulatedTicks

	mu      sync.Mutex
	current motion.Twist
	closed  bool

	// integrator state, only touched by the odometry ticker
	x, y, theta float64
	batteryPct  float64

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewSimulatedTransport creates a simulated backend writing into the given
// telemetry store.
func NewSimulatedTransport(store *telemetry.Store, ticks SimulatedTicks, logger customlog.Logger) *SimulatedTransport {
	ticks.fillDefaults()
	return &SimulatedTransport{
		logger:     logger,
		store:      store,
		ticks:      ticks,
		batteryPct: 100,
		quit:       make(chan struct{}),
	}
}

// Publish records the commanded twist for the odometry integrator.
func (s *SimulatedTransport) Publish(cmd motion.Twist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrTransportClosed
	}
	s.current = cmd
	s.logger.Debugf("Simulated publish: linear_x=%.3f angular_z=%.3f", cmd.Linear.X, cmd.Angular.Z)
	return nil
}

// Kind implements motion.Backend.
func (s *SimulatedTransport) Kind() string {
	return KindSimulation
}

// Start seeds a plausible initial telemetry snapshot and launches the
// background tickers.
func (s *SimulatedTransport) Start() {
	s.seedSnapshot()

	s.wg.Add(3)
	go s.odometryLoop()
	go s.laserLoop()
	go s.batteryLoop()

	s.logger.Infof("Simulated telemetry started (odom %s, laser %s, battery %s)",
		s.ticks.Odometry, s.ticks.Laser, s.ticks.Battery)
}

// Close stops the telemetry tickers.
func (s *SimulatedTransport) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()
}

// seedSnapshot populates every feed immediately so status queries right
// after startup already see data.
func (s *SimulatedTransport) seedSnapshot() {
	s.store.SetBattery(s.batterySample())
	s.store.SetOdometry(s.odometrySample(motion.ZeroTwist()))
	s.store.SetLaser(s.laserSample())
}

func (s *SimulatedTransport) odometryLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.ticks.Odometry)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.mu.Lock()
			cmd := s.current
			s.mu.Unlock()

			s.integrate(cmd, s.ticks.Odometry.Seconds())
			s.store.SetOdometry(s.odometrySample(cmd))
		}
	}
}

func (s *SimulatedTransport) laserLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.ticks.Laser)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.store.SetLaser(s.laserSample())
		}
	}
}

func (s *SimulatedTransport) batteryLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.ticks.Battery)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.batteryPct -= simBatteryDrainPct
			if s.batteryPct < 0 {
				s.batteryPct = 0
			}
			s.mu.Unlock()
			s.store.SetBattery(s.batterySample())
		}
	}
}

// integrate advances the planar pose from the commanded twist.
func (s *SimulatedTransport) integrate(cmd motion.Twist, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theta += cmd.Angular.Z * dt
	s.x += (cmd.Linear.X*math.Cos(s.theta) - cmd.Linear.Y*math.Sin(s.theta)) * dt
	s.y += (cmd.Linear.X*math.Sin(s.theta) + cmd.Linear.Y*math.Cos(s.theta)) * dt
}

func (s *SimulatedTransport) odometrySample(cmd motion.Twist) telemetry.OdometryData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return telemetry.OdometryData{
		X:         s.x,
		Y:         s.y,
		Theta:     s.theta,
		Twist:     cmd,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (s *SimulatedTransport) batterySample() telemetry.BatteryData {
	s.mu.Lock()
	pct := s.batteryPct
	s.mu.Unlock()
	voltage := simBatteryMinVoltage + (simBatteryFullVoltage-simBatteryMinVoltage)*pct/100
	return telemetry.BatteryData{
		Voltage:    voltage,
		Percentage: pct,
		Charging:   false,
		Timestamp:  time.Now().UnixMilli(),
	}
}

func (s *SimulatedTransport) laserSample() telemetry.LaserScan {
	ranges := make([]float64, simLaserBeams)
	for i := range ranges {
		ranges[i] = 0.2 + rand.Float64()*7.8
	}
	return telemetry.LaserScan{
		AngleMin:  -math.Pi,
		AngleMax:  math.Pi,
		RangeMin:  0.2,
		RangeMax:  8.0,
		Ranges:    ranges,
		Timestamp: time.Now().UnixMilli(),
	}
}
