package handler

import (
	"encoding/json"

	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/serverutils"
	"ai-codereview-be/internal/service"
	internalWS "ai-codereview-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// RunStreamHandler streams the lifecycle events of one run over a websocket
type RunStreamHandler struct {
	runs      service.IRunService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewRunStreamHandler(runs service.IRunService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *RunStreamHandler {
	return &RunStreamHandler{
		runs:      runs,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs checks the token (when auth is on) and the run before upgrading,
// then sends the current run as a snapshot followed by live events.
func (h *RunStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	if h.jwtSecret != "" {
		tokenStr := serverutils.BearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing token (Query 'token' or Header 'Authorization')"))
		}
		if _, err := serverutils.ParseToken(tokenStr, h.jwtSecret); err != nil {
			h.logger.Warn("RunStream", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid token"))
		}
	}

	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid run id")
	}
	run, err := h.runs.Show(c.UserContext(), runID)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": run,
	})
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RunStream", "Starting websocket session", map[string]interface{}{"run_id": runID.String()})
		internalWS.ServeWs(h.hub, conn, runID.String(), snapshot)
		h.logger.Info("RunStream", "Websocket session ended", map[string]interface{}{"run_id": runID.String()})
	})(c)
}

func (h *RunStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/runs/:id", h.ServeWs)
}
