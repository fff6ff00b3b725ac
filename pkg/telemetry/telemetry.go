// Package telemetry holds the last-known-value caches for the inbound sensor
// feed. Samples are overwritten wholesale on each update; consumers always
// read the latest snapshot, never a history.
package telemetry

import (
	"sync"
	"time"

	"github.com/sharminesan/tb-backend/pkg/motion"
)

// Event names for telemetry refreshes.
const (
	EventBatteryUpdate = "battery_update"
	EventOdomUpdate    = "odom_update"
	EventLaserUpdate   = "laser_update"
)

// BatteryData is the normalized battery snapshot every reading variant
// resolves to.
type BatteryData struct {
	Voltage    float64 `json:"voltage"`
	Percentage float64 `json:"percentage"`
	Charging   bool    `json:"charging"`
	Timestamp  int64   `json:"timestamp"`
}

// OdometryData is the base pose and velocity estimate.
type OdometryData struct {
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Theta     float64        `json:"theta"`
	Twist     motion.Twist   `json:"twist"`
	Timestamp int64          `json:"timestamp"`
}

// LaserScan is a planar range scan.
type LaserScan struct {
	AngleMin  float64   `json:"angle_min"`
	AngleMax  float64   `json:"angle_max"`
	RangeMin  float64   `json:"range_min"`
	RangeMax  float64   `json:"range_max"`
	Ranges    []float64 `json:"ranges"`
	Timestamp int64     `json:"timestamp"`
}

// Store is the mutex-guarded last-value cache shared by the transport layer
// (writer) and the status/event consumers (readers).
type Store struct {
	mu      sync.RWMutex
	battery *BatteryData
	odom    *OdometryData
	laser   *LaserScan
	sink    motion.EventSink
}

// NewStore creates an empty telemetry store. sink may be nil.
func NewStore(sink motion.EventSink) *Store {
	if sink == nil {
		sink = motion.SinkFunc(func(motion.Event) {})
	}
	return &Store{sink: sink}
}

// SetBattery overwrites the battery snapshot and emits battery_update.
func (s *Store) SetBattery(b BatteryData) {
	s.mu.Lock()
	s.battery = &b
	s.mu.Unlock()
	s.sink.Emit(motion.Event{Name: EventBatteryUpdate, Data: map[string]interface{}{"battery": b}})
}

// SetOdometry overwrites the odometry snapshot and emits odom_update.
func (s *Store) SetOdometry(o OdometryData) {
	s.mu.Lock()
	s.odom = &o
	s.mu.Unlock()
	s.sink.Emit(motion.Event{Name: EventOdomUpdate, Data: map[string]interface{}{"odom": o}})
}

// SetLaser overwrites the laser snapshot and emits laser_update.
func (s *Store) SetLaser(l LaserScan) {
	s.mu.Lock()
	s.laser = &l
	s.mu.Unlock()
	s.sink.Emit(motion.Event{Name: EventLaserUpdate, Data: map[string]interface{}{"laser": l}})
}

// Battery returns the latest battery snapshot, if any.
func (s *Store) Battery() (BatteryData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.battery == nil {
		return BatteryData{}, false
	}
	return *s.battery, true
}

// Odometry returns the latest odometry snapshot, if any.
func (s *Store) Odometry() (OdometryData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.odom == nil {
		return OdometryData{}, false
	}
	return *s.odom, true
}

// Laser returns the latest laser snapshot, if any.
func (s *Store) Laser() (LaserScan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.laser == nil {
		return LaserScan{}, false
	}
	return *s.laser, true
}

// Available implements motion.TelemetryAvailability.
func (s *Store) Available() (battery, odometry, laser bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.battery != nil, s.odom != nil, s.laser != nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
