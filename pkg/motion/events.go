package motion

// Event names produced by the motion controller. These are advisory
// notifications for the routing layer to re-broadcast, not part of the
// control contract.
const (
	EventMovementUpdate  = "movement_update"
	EventPatternStart    = "pattern_movement_start"
	EventPatternComplete = "pattern_movement_complete"
	EventPatternStopped  = "pattern_movement_stopped"
)

// Event is a lifecycle notification with a free-form payload.
type Event struct {
	Name string                 `json:"event"`
	Data map[string]interface{} `json:"data"`
}

// EventSink receives controller events. Implementations must not block:
// emission happens on control-path goroutines.
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev Event)

// Emit calls the function.
func (f SinkFunc) Emit(ev Event) {
	f(ev)
}

// nopSink drops all events; used when no sink is configured.
type nopSink struct{}

func (nopSink) Emit(Event) {}
