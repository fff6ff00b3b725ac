package processing

import (
	"encoding/json"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
)

// Telemetry kinds the decoder understands. These match the kind values in
// the telemetry topic configuration.
const (
	KindOdometry = "odometry"
	KindLaser    = "laser"
	KindBattery  = "battery"
)

// Decoder turns raw frames into telemetry store updates. It is the pool
// handler installed by the composition root; decode failures are logged and
// the frame is dropped, never propagated.
type Decoder struct {
	store  *telemetry.Store
	logger customlog.Logger
}

// NewDecoder creates a decoder writing into the given store.
func NewDecoder(store *telemetry.Store, logger customlog.Logger) *Decoder {
	return &Decoder{store: store, logger: logger}
}

// Decode processes one job. It is safe for concurrent use across pool
// workers; the store serializes the writes.
func (d *Decoder) Decode(job Job) {
	switch job.Kind {
	case KindOdometry:
		d.decodeOdometry(job.Frame)
	case KindLaser:
		d.decodeLaser(job.Frame)
	case KindBattery:
		d.decodeBattery(job.Frame)
	default:
		d.logger.Warnf("No decoder for telemetry kind '%s' (topic '%s')", job.Kind, job.Frame.Topic)
	}
}

func (d *Decoder) decodeOdometry(frame Frame) {
	var odom telemetry.OdometryData
	if err := json.Unmarshal(frame.Payload, &odom); err != nil {
		d.logger.Warnf("Failed to decode odometry frame from '%s': %v", frame.Topic, err)
		return
	}
	if odom.Timestamp == 0 {
		odom.Timestamp = frame.TimestampNs / 1e6
	}
	d.store.SetOdometry(odom)
}

func (d *Decoder) decodeLaser(frame Frame) {
	var scan telemetry.LaserScan
	if err := json.Unmarshal(frame.Payload, &scan); err != nil {
		d.logger.Warnf("Failed to decode laser frame from '%s': %v", frame.Topic, err)
		return
	}
	if scan.Timestamp == 0 {
		scan.Timestamp = frame.TimestampNs / 1e6
	}
	d.store.SetLaser(scan)
}

func (d *Decoder) decodeBattery(frame Frame) {
	reading, err := telemetry.DecodeBattery(frame.Payload)
	if err != nil {
		d.logger.Warnf("Failed to decode battery frame from '%s': %v", frame.Topic, err)
		return
	}
	d.store.SetBattery(reading.Normalize())
}
