// Package transport provides the two velocity-command backends (ZeroMQ
// bridge and pure software simulation) and the boot-time selector that
// decides between them.
package transport

import (
	"errors"
	"time"
)

// Backend kinds reported by Kind().
const (
	KindBridge     = "bridge"
	KindSimulation = "simulation"
)

// Common errors
var (
	ErrTransportClosed = errors.New("transport is closed")
	ErrNoBridge        = errors.New("no bridge endpoint configured")
	ErrProbeFailed     = errors.New("bridge probe failed")
	ErrNoTopicAccepted = errors.New("no velocity topic accepted by bridge")
)

// Message types on the bridge control plane.
const (
	MsgTypePing              = "PING"
	MsgTypePong              = "PONG"
	MsgTypeTopicListRequest  = "TOPIC_LIST_REQUEST"
	MsgTypeTopicListResponse = "TOPIC_LIST_RESPONSE"
	MsgTypeAdvertiseRequest  = "ADVERTISE_REQUEST"
	MsgTypeAdvertiseResponse = "ADVERTISE_RESPONSE"
	MsgTypeVelocityCommand   = "VELOCITY_COMMAND"
)

// Envelope is the generic JSON message structure for bridge communication.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func newEnvelope(msgType string, data interface{}) Envelope {
	return Envelope{
		Type:      msgType,
		Timestamp: float64(time.Now().Unix()),
		Data:      data,
	}
}
