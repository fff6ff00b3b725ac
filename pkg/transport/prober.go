package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/sharminesan/tb-backend/pkg/config"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
)

// settleDelay is how long the selector waits between topic negotiation and
// the zero-velocity test publish.
const settleDelay = 200 * time.Millisecond

// Selector decides once per process lifetime between the bridge and the
// simulation. There is no transition back: once simulation mode is entered
// it is terminal (fail-fast, fail-permanent policy; backend selection is a
// boot-time decision).
type Selector struct {
	cfg    *config.Config
	logger customlog.Logger
}

// NewSelector creates a backend selector for the given configuration.
func NewSelector(cfg *config.Config, logger customlog.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger}
}

// Select runs the probe sequence and returns the chosen backend and its
// kind. On any probe failure the simulated backend is started with a seeded
// telemetry snapshot; failures are logged, never surfaced to command
// callers.
func (s *Selector) Select(store *telemetry.Store) (motion.Backend, string) {
	if !s.cfg.BridgeConfigured() {
		s.logger.Infof("No bridge endpoint configured, entering simulation mode")
		return s.fallback(store), KindSimulation
	}

	bridge, err := s.probeAndInit()
	if err != nil {
		s.logger.Errorf("Bridge initialization failed, entering simulation mode: %v", err)
		return s.fallback(store), KindSimulation
	}

	s.logger.Infof("Bridge mode active (control=%s, topic=%s)",
		s.cfg.Bridge.ControlAddress, bridge.Topic())
	return bridge, KindBridge
}

// probeAndInit executes the bounded probe sequence: control-plane ping,
// topic discovery, command socket initialization, velocity-topic
// negotiation, settle delay and a zero-twist test publish.
func (s *Selector) probeAndInit() (*BridgeTransport, error) {
	timeout := time.Duration(s.cfg.Bridge.ProbeTimeoutMs) * time.Millisecond

	if err := s.ping(timeout); err != nil {
		return nil, fmt.Errorf("%w: control-plane ping: %v", ErrProbeFailed, err)
	}
	s.logger.Debugf("Bridge control-plane ping ok")

	topics, err := s.discoverTopics(timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: topic discovery: %v", ErrProbeFailed, err)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: topic discovery returned empty result", ErrProbeFailed)
	}
	s.logger.Debugf("Bridge reports %d topics", len(topics))

	socket, err := s.initCommandSocket(timeout)
	if err != nil {
		return nil, fmt.Errorf("command socket initialization exhausted all option sets: %w", err)
	}

	topic, err := s.negotiateTopic(timeout)
	if err != nil {
		socket.Close()
		return nil, err
	}
	s.logger.Infof("Velocity topic '%s' accepted by bridge", topic)

	bridge := newBridgeTransport(socket, topic, s.logger)

	// Settle, then confirm the path with a zero-velocity test command.
	time.Sleep(settleDelay)
	if err := bridge.Publish(motion.ZeroTwist()); err != nil {
		bridge.Close()
		return nil, fmt.Errorf("zero-velocity test publish failed: %w", err)
	}

	return bridge, nil
}

// fallback builds and starts the simulated backend.
func (s *Selector) fallback(store *telemetry.Store) *SimulatedTransport {
	sim := NewSimulatedTransport(store, SimulatedTicks{
		Odometry: time.Duration(s.cfg.Control.SimOdomTickMs) * time.Millisecond,
		Laser:    time.Duration(s.cfg.Control.SimLaserTickMs) * time.Millisecond,
		Battery:  time.Duration(s.cfg.Control.SimBatteryTickS) * time.Second,
	}, s.logger)
	sim.Start()
	return sim
}

// respEnvelope mirrors Envelope with a raw data payload for decoding.
type respEnvelope struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// controlRequest performs one bounded-timeout REQ/REP exchange on the
// control plane. A fresh socket per request keeps REQ state machines out of
// trouble when a previous exchange timed out.
func (s *Selector) controlRequest(timeout time.Duration, msgType string, data interface{}) (*respEnvelope, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create REQ socket: %w", err)
	}
	defer socket.Close()

	if err := socket.SetLinger(0); err != nil {
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}
	if err := socket.Connect(s.cfg.Bridge.ControlAddress); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.cfg.Bridge.ControlAddress, err)
	}

	payload, err := json.Marshal(newEnvelope(msgType, data))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", msgType, err)
	}
	if _, err := socket.SendBytes(payload, 0); err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", msgType, err)
	}

	reply, err := socket.RecvBytes(0)
	if err != nil {
		return nil, fmt.Errorf("timed out waiting for %s response: %w", msgType, err)
	}

	var resp respEnvelope
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("invalid %s response: %w", msgType, err)
	}
	return &resp, nil
}

// ping verifies control-plane reachability.
func (s *Selector) ping(timeout time.Duration) error {
	resp, err := s.controlRequest(timeout, MsgTypePing, nil)
	if err != nil {
		return err
	}
	if resp.Type != MsgTypePong {
		return fmt.Errorf("unexpected ping response type '%s'", resp.Type)
	}
	return nil
}

// discoverTopics asks the bridge for its known topics.
func (s *Selector) discoverTopics(timeout time.Duration) ([]string, error) {
	resp, err := s.controlRequest(timeout, MsgTypeTopicListRequest, nil)
	if err != nil {
		return nil, err
	}
	if resp.Type != MsgTypeTopicListResponse {
		return nil, fmt.Errorf("unexpected topic list response type '%s'", resp.Type)
	}

	var data struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid topic list payload: %w", err)
	}
	return data.Topics, nil
}

// initCommandSocket attempts PUB socket initialization with three
// progressively more permissive option sets; the first success wins.
func (s *Selector) initCommandSocket(timeout time.Duration) (*zmq4.Socket, error) {
	optionSets := []struct {
		name  string
		apply func(*zmq4.Socket) error
	}{
		{
			name: "explicit identity",
			apply: func(sock *zmq4.Socket) error {
				if err := sock.SetIdentity("tb-backend"); err != nil {
					return err
				}
				return sock.SetSndtimeo(socketTimeout)
			},
		},
		{
			name:  "minimal",
			apply: func(sock *zmq4.Socket) error { return nil },
		},
		{
			name: "anonymous long-timeout",
			apply: func(sock *zmq4.Socket) error {
				return sock.SetSndtimeo(timeout)
			},
		},
	}

	var lastErr error
	for _, set := range optionSets {
		socket, err := zmq4.NewSocket(zmq4.PUB)
		if err != nil {
			lastErr = err
			continue
		}
		if err := socket.SetLinger(0); err != nil {
			socket.Close()
			lastErr = err
			continue
		}
		if err := set.apply(socket); err != nil {
			socket.Close()
			lastErr = err
			continue
		}
		if err := socket.Connect(s.cfg.Bridge.CommandAddress); err != nil {
			socket.Close()
			lastErr = err
			s.logger.Warnf("Command socket init with %s options failed: %v", set.name, err)
			continue
		}
		s.logger.Debugf("Command socket initialized with %s options", set.name)
		return socket, nil
	}
	return nil, lastErr
}

// negotiateTopic tries the prioritized velocity-topic candidates until the
// bridge accepts one.
func (s *Selector) negotiateTopic(timeout time.Duration) (string, error) {
	for _, candidate := range s.cfg.Bridge.VelocityTopics {
		resp, err := s.controlRequest(timeout, MsgTypeAdvertiseRequest,
			map[string]string{"topic": candidate})
		if err != nil {
			s.logger.Warnf("Advertise request for '%s' failed: %v", candidate, err)
			continue
		}
		if resp.Type != MsgTypeAdvertiseResponse {
			s.logger.Warnf("Unexpected advertise response type '%s' for '%s'", resp.Type, candidate)
			continue
		}

		var data struct {
			Accepted bool `json:"accepted"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			s.logger.Warnf("Invalid advertise payload for '%s': %v", candidate, err)
			continue
		}
		if data.Accepted {
			return candidate, nil
		}
		s.logger.Debugf("Bridge rejected velocity topic '%s'", candidate)
	}
	return "", ErrNoTopicAccepted
}
