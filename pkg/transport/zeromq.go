package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/processing"
)

// socketTimeout bounds individual sends so a wedged bridge cannot block the
// publisher loop.
const socketTimeout = 1 * time.Second

// BridgeTransport publishes velocity commands to the robot bridge over a
// ZeroMQ PUB socket. The topic name is the one negotiated by the selector.
type BridgeTransport struct {
	logger customlog.Logger
	topic  string

	mu      sync.Mutex
	socket  *zmq4.Socket
	running bool
}

// newBridgeTransport wraps an already-connected PUB socket. Construction
// goes through the Selector, which owns the probe and negotiation protocol.
func newBridgeTransport(socket *zmq4.Socket, topic string, logger customlog.Logger) *BridgeTransport {
	return &BridgeTransport{
		logger:  logger,
		topic:   topic,
		socket:  socket,
		running: true,
	}
}

// Publish sends one velocity command as a topic frame followed by a JSON
// envelope frame.
func (b *BridgeTransport) Publish(cmd motion.Twist) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return ErrTransportClosed
	}

	env := newEnvelope(MsgTypeVelocityCommand, cmd)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal velocity command: %w", err)
	}

	// Send two frames in sequence (topic first, then message)
	if _, err := b.socket.Send(b.topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic frame: %w", err)
	}
	if _, err := b.socket.SendBytes(payload, 0); err != nil {
		return fmt.Errorf("failed to send command frame: %w", err)
	}
	return nil
}

// Kind implements motion.Backend.
func (b *BridgeTransport) Kind() string {
	return KindBridge
}

// Topic returns the negotiated velocity topic.
func (b *BridgeTransport) Topic() string {
	return b.topic
}

// Close releases the command socket.
func (b *BridgeTransport) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.running = false
	if b.socket != nil {
		b.socket.Close()
		b.socket = nil
	}
}

// TelemetryReceiver subscribes to the bridge telemetry feed and hands each
// frame to the processing director.
type TelemetryReceiver struct {
	logger   customlog.Logger
	director *processing.Director
	socket   *zmq4.Socket
	poller   *zmq4.Poller

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewTelemetryReceiver connects a SUB socket to the telemetry endpoint,
// subscribed to all topics.
func NewTelemetryReceiver(address string, director *processing.Director, logger customlog.Logger) (*TelemetryReceiver, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := socket.SetSubscribe(""); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.Connect(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("Telemetry receiver connected to %s", address)

	return &TelemetryReceiver{
		logger:   logger,
		director: director,
		socket:   socket,
		poller:   poller,
	}, nil
}

// Start begins the receive loop.
func (r *TelemetryReceiver) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.receiveLoop()
}

// Stop halts the receive loop and closes the socket.
func (r *TelemetryReceiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
	r.socket.Close()
}

func (r *TelemetryReceiver) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// receiveLoop polls with a timeout so shutdown never blocks on a quiet feed.
func (r *TelemetryReceiver) receiveLoop() {
	defer r.wg.Done()
	r.logger.Infof("Telemetry receiver started")

	for r.isRunning() {
		sockets, err := r.poller.Poll(500 * time.Millisecond)
		if err != nil {
			if r.isRunning() {
				r.logger.Errorf("Error polling telemetry socket: %v", err)
			}
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		parts, err := r.socket.RecvMessageBytes(0)
		if err != nil {
			if r.isRunning() {
				r.logger.Errorf("Error receiving telemetry message: %v", err)
			}
			continue
		}
		if len(parts) < 2 {
			r.logger.Warnf("Dropping malformed telemetry message (%d frames)", len(parts))
			continue
		}

		frame := processing.Frame{
			Topic:       string(parts[0]),
			Payload:     parts[1],
			TimestampNs: time.Now().UnixNano(),
		}
		if err := r.director.Route(frame); err != nil {
			r.logger.Warnf("Failed to route telemetry frame for topic '%s': %v", frame.Topic, err)
		}
	}

	r.logger.Infof("Telemetry receiver stopped")
}
