package motion

import "time"

// Status is the snapshot returned by Controller.Status. A pure read with no
// side effects.
type Status struct {
	IsConnected       bool   `json:"is_connected"`
	IsMoving          bool   `json:"is_moving"`
	UsingSimulation   bool   `json:"using_simulation"`
	CurrentTwist      Twist  `json:"current_twist"`
	ActivePattern     string `json:"active_pattern,omitempty"`
	BatteryAvailable  bool   `json:"battery_available"`
	OdometryAvailable bool   `json:"odometry_available"`
	LaserAvailable    bool   `json:"laser_available"`
	Timestamp         int64  `json:"timestamp"`
}

// Result is the synchronous outcome of a movement or pattern call.
// Asynchronous failures surface only through the event stream.
type Result struct {
	Success    bool                   `json:"success"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// TelemetryAvailability is implemented by the telemetry store so Status can
// report which feeds have produced at least one sample.
type TelemetryAvailability interface {
	Available() (battery, odometry, laser bool)
}

// state is the single authoritative record of what the base is currently
// commanded to do. It is owned by the Controller; all mutation happens under
// the controller mutex.
type state struct {
	current         Twist
	activeJob       *patternJob
	connected       bool
	usingSimulation bool
}

func (s *state) isMoving() bool {
	return !s.current.IsZero()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
