package controller

import (
	"law-mate-be/internal/pkg/serverutils"
	"law-mate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	Rebuild(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Config(ctx *fiber.Ctx) error
	Generations(ctx *fiber.Ctx) error
	RestoreGeneration(ctx *fiber.Ctx) error
	DeleteGeneration(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/v1")
	h.Post("/rebuild", c.Rebuild)
	h.Get("/status", c.Status)
	h.Get("/config", c.Config)
	h.Get("/generations", c.Generations)
	h.Post("/generations/:generation/restore", c.RestoreGeneration)
	h.Delete("/generations/:generation", c.DeleteGeneration)
	h.Get("/logs", c.Logs)
}

func (c *adminController) Rebuild(ctx *fiber.Ctx) error {
	res, err := c.service.TriggerRebuild(ctx.Context())
	if err != nil {
		return serverutils.NewAppError(fiber.StatusInternalServerError, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success rebuild index", res))
}

func (c *adminController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.GetStatus(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get status", res))
}

func (c *adminController) Config(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get config", c.service.GetConfig()))
}

func (c *adminController) Generations(ctx *fiber.Ctx) error {
	res, err := c.service.ListGenerations(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get generations", res))
}

func (c *adminController) RestoreGeneration(ctx *fiber.Ctx) error {
	generation, err := ctx.ParamsInt("generation")
	if err != nil || generation <= 0 {
		return serverutils.NewAppError(fiber.StatusBadRequest, "invalid generation")
	}

	res, err := c.service.RestoreGeneration(ctx.Context(), int64(generation))
	if err != nil {
		return serverutils.NewAppError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success restore generation", res))
}

func (c *adminController) DeleteGeneration(ctx *fiber.Ctx) error {
	generation, err := ctx.ParamsInt("generation")
	if err != nil || generation <= 0 {
		return serverutils.NewAppError(fiber.StatusBadRequest, "invalid generation")
	}

	if err := c.service.DeleteGeneration(ctx.Context(), int64(generation)); err != nil {
		return serverutils.NewAppError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete generation", nil))
}

func (c *adminController) Logs(ctx *fiber.Ctx) error {
	level := ctx.Query("level")
	limit := ctx.QueryInt("limit", 100)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.service.GetLogs(level, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get logs", res))
}
