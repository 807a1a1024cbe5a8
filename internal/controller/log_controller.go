package controller

import (
	"errors"

	"ai-codereview-be/internal/dto"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type logController struct {
	logger logger.ILogger
}

func NewLogController(logger logger.ILogger) ILogController {
	return &logController{logger: logger}
}

func (c *logController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/logs")
	h.Use(auth)
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
}

func (c *logController) GetAll(ctx *fiber.Ctx) error {
	req := dto.LogListRequest{Limit: 50}
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	entries, err := c.logger.GetLogs(logger.LogFilter{
		Level:  req.Level,
		Module: req.Module,
		RunID:  req.RunId,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}

func (c *logController) Show(ctx *fiber.Ctx) error {
	entry, err := c.logger.GetLogById(ctx.Params("id"))
	if errors.Is(err, logger.ErrLogNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Log entry not found")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show log", entry))
}
