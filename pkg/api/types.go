// Package api holds the websocket handlers and shared wire types for the
// HTTP surface.
package api

// Vector3Msg is the wire form of a 3-axis vector.
type Vector3Msg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TwistMsg is the wire form of a velocity command.
type TwistMsg struct {
	Linear  Vector3Msg `json:"linear"`
	Angular Vector3Msg `json:"angular"`
}

// ErrorResponse is the uniform error body for rejected requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
