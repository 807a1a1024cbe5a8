package controller

import (
	"ai-codereview-be/internal/dto"
	"ai-codereview-be/internal/pkg/serverutils"
	"ai-codereview-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRunController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Submit(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
}

type runController struct {
	service service.IRunService
}

func NewRunController(service service.IRunService) IRunController {
	return &runController{service: service}
}

func (c *runController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/runs")
	h.Use(auth)
	h.Get("", c.GetAll)
	h.Post("", c.Submit)
	h.Get(":id", c.Show)
}

func (c *runController) Submit(ctx *fiber.Ctx) error {
	var req dto.SubmitRunRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := c.service.Submit(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	out := serverutils.SuccessResponse("Run queued", res)
	out.Code = fiber.StatusAccepted
	return ctx.Status(fiber.StatusAccepted).JSON(out)
}

func (c *runController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid run id")
	}

	res, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show run", res))
}

func (c *runController) GetAll(ctx *fiber.Ctx) error {
	var req dto.RunListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	req.Offset = max(req.Offset, 0)

	res, err := c.service.GetAll(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all runs", res))
}
