package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vecgate/pkg/gateway"
	"github.com/papercomputeco/vecgate/pkg/validate"
)

const (
	routeAdd   = "add"
	routeQuery = "query"
)

// CollectionsResponse lists the collections used by this process.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// handleAdd validates the payload and submits it in chunks.
func (s *Server) handleAdd(c *fiber.Ctx) error {
	start := time.Now()

	payload, err := validate.DecodePayload(c.Body())
	if err != nil {
		return s.fail(c, routeAdd, start, err)
	}

	req, err := validate.ValidateAdd(payload)
	if err != nil {
		return s.fail(c, routeAdd, start, err)
	}

	result, err := s.gateway.Add(c.UserContext(), req)
	if err != nil {
		return s.fail(c, routeAdd, start, err)
	}

	s.logger.Debug("add complete",
		"collection", req.Collection,
		"count", result.Count,
		"chunks", result.Chunks,
	)
	s.gateway.Metrics().ObserveRequest(routeAdd, gateway.Outcome(nil), start)
	return c.SendString("Success")
}

// handleQuery validates the payload and returns the nearest entries.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	start := time.Now()

	payload, err := validate.DecodePayload(c.Body())
	if err != nil {
		return s.fail(c, routeQuery, start, err)
	}

	req, err := validate.ValidateQuery(payload)
	if err != nil {
		return s.fail(c, routeQuery, start, err)
	}

	result, err := s.gateway.Query(c.UserContext(), req)
	if err != nil {
		return s.fail(c, routeQuery, start, err)
	}

	s.gateway.Metrics().ObserveRequest(routeQuery, gateway.Outcome(nil), start)
	return c.JSON(result)
}

// handleStop signals the lifecycle controller. The shutdown itself happens
// after this response is written.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.stopper.RequestStop(); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	return c.SendString("Stopping...")
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCollections lists collection names in sorted order.
func (s *Server) handleCollections(c *fiber.Ctx) error {
	return c.JSON(CollectionsResponse{Collections: s.gateway.Collections()})
}

// fail writes err as plain text: 400 for client errors, 500 otherwise.
func (s *Server) fail(c *fiber.Ctx, route string, start time.Time, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "error", err)
	} else {
		s.logger.Debug("request rejected", "route", route, "error", err)
	}

	s.gateway.Metrics().ObserveRequest(route, gateway.Outcome(err), start)
	return c.Status(status).SendString(err.Error())
}

func statusFor(err error) int {
	var verr *validate.ValidationError
	var perr *validate.ProtocolError
	if errors.As(err, &verr) || errors.As(err, &perr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
