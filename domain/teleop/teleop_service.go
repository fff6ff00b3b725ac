// Package teleop exposes the motion controller over REST. Every movement
// command maps to one controller operation; numeric inputs that are missing,
// zero or non-finite fall back to the configured defaults inside the
// controller, so handlers stay thin.
package teleop

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sharminesan/tb-backend/pkg/api"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
	"github.com/sharminesan/tb-backend/pkg/telemetry"
)

// Service is the teleoperation REST service.
type Service struct {
	controller *motion.Controller
	store      *telemetry.Store
	logger     customlog.Logger
}

// NewService creates the teleop service.
func NewService(controller *motion.Controller, store *telemetry.Store, logger customlog.Logger) *Service {
	return &Service{controller: controller, store: store, logger: logger}
}

// RegisterRoutes mounts the teleop endpoints under the given router.
func (s *Service) RegisterRoutes(router fiber.Router) {
	router.Post("/move/forward", s.moveForward)
	router.Post("/move/backward", s.moveBackward)
	router.Post("/turn/left", s.turnLeft)
	router.Post("/turn/right", s.turnRight)
	router.Post("/move/custom", s.customMove)
	router.Post("/move/stop", s.stop)
	router.Post("/emergency_stop", s.emergencyStop)

	router.Post("/pattern/circle", s.patternCircle)
	router.Post("/pattern/triangle", s.patternTriangle)
	router.Post("/pattern/square", s.patternSquare)
	router.Post("/pattern/diamond", s.patternDiamond)
	router.Post("/pattern/heart", s.patternHeart)
	router.Post("/pattern/stop", s.stopPattern)

	router.Get("/status", s.getStatus)
	router.Get("/telemetry/battery", s.getBattery)
	router.Get("/telemetry/odometry", s.getOdometry)
	router.Get("/telemetry/laser", s.getLaser)
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

type angularRequest struct {
	AngularSpeed float64 `json:"angular_speed"`
}

type circleRequest struct {
	Radius     float64 `json:"radius"`
	DurationMs float64 `json:"duration_ms"`
	Clockwise  bool    `json:"clockwise"`
}

type polygonRequest struct {
	SideLength float64 `json:"side_length"`
	PauseMs    float64 `json:"pause_ms"`
}

type squareRequest struct {
	SideLength   float64 `json:"side_length"`
	LinearSpeed  float64 `json:"linear_speed"`
	AngularSpeed float64 `json:"angular_speed"`
}

type heartRequest struct {
	Size       float64 `json:"size"`
	DurationMs float64 `json:"duration_ms"`
}

func (s *Service) moveForward(c *fiber.Ctx) error {
	var req speedRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveForward(req.Speed))
}

func (s *Service) moveBackward(c *fiber.Ctx) error {
	var req speedRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveBackward(req.Speed))
}

func (s *Service) turnLeft(c *fiber.Ctx) error {
	var req angularRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.TurnLeft(req.AngularSpeed))
}

func (s *Service) turnRight(c *fiber.Ctx) error {
	var req angularRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.TurnRight(req.AngularSpeed))
}

func (s *Service) customMove(c *fiber.Ctx) error {
	var req api.TwistMsg
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.CustomMove(
		req.Linear.X, req.Linear.Y, req.Linear.Z,
		req.Angular.X, req.Angular.Y, req.Angular.Z,
	))
}

func (s *Service) stop(c *fiber.Ctx) error {
	return c.JSON(s.controller.Stop())
}

func (s *Service) emergencyStop(c *fiber.Ctx) error {
	return c.JSON(s.controller.EmergencyStop())
}

func (s *Service) patternCircle(c *fiber.Ctx) error {
	var req circleRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveCircle(req.Radius, req.DurationMs, req.Clockwise))
}

func (s *Service) patternTriangle(c *fiber.Ctx) error {
	var req polygonRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveTriangle(req.SideLength, req.PauseMs))
}

func (s *Service) patternSquare(c *fiber.Ctx) error {
	var req squareRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveSquare(req.SideLength, req.LinearSpeed, req.AngularSpeed))
}

func (s *Service) patternDiamond(c *fiber.Ctx) error {
	var req polygonRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveDiamond(req.SideLength, req.PauseMs))
}

func (s *Service) patternHeart(c *fiber.Ctx) error {
	var req heartRequest
	if !parseBody(c, &req) {
		return badRequest(c)
	}
	return c.JSON(s.controller.MoveHeart(req.Size, req.DurationMs))
}

func (s *Service) stopPattern(c *fiber.Ctx) error {
	return c.JSON(s.controller.StopPattern())
}

func (s *Service) getStatus(c *fiber.Ctx) error {
	return c.JSON(s.controller.Status())
}

func (s *Service) getBattery(c *fiber.Ctx) error {
	battery, ok := s.store.Battery()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{Error: "no battery data yet"})
	}
	return c.JSON(battery)
}

func (s *Service) getOdometry(c *fiber.Ctx) error {
	odom, ok := s.store.Odometry()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{Error: "no odometry data yet"})
	}
	return c.JSON(odom)
}

func (s *Service) getLaser(c *fiber.Ctx) error {
	scan, ok := s.store.Laser()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{Error: "no laser data yet"})
	}
	return c.JSON(scan)
}

// parseBody decodes an optional JSON body. An empty body is valid: every
// numeric field then takes its configured default downstream.
func parseBody(c *fiber.Ctx, out interface{}) bool {
	if len(c.Body()) == 0 {
		return true
	}
	return c.BodyParser(out) == nil
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{Error: "invalid request body"})
}
