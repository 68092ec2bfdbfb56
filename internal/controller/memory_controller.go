package controller

import (
	"survey-assistant-be/internal/dto"
	"survey-assistant-be/internal/pkg/serverutils"
	"survey-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMemoryController interface {
	RegisterRoutes(r fiber.Router)
	Lookup(ctx *fiber.Ctx) error
	Store(ctx *fiber.Ctx) error
	Candidates(ctx *fiber.Ctx) error
	InvalidateTag(ctx *fiber.Ctx) error
	OpenSession(ctx *fiber.Ctx) error
	AppendMessage(ctx *fiber.Ctx) error
	RecordComplexity(ctx *fiber.Ctx) error
	SelectContext(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	UpdatePreferences(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type memoryController struct {
	service service.IMemoryService
}

func NewMemoryController(service service.IMemoryService) IMemoryController {
	return &memoryController{service: service}
}

func (c *memoryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/memory/v1")
	h.Use(serverutils.JwtMiddleware)

	h.Post("/cache/lookup", c.Lookup)
	h.Post("/cache", c.Store)
	h.Get("/cache/candidates", c.Candidates)
	h.Delete("/cache/tags/:tag", c.InvalidateTag)

	h.Post("/sessions/:id", c.OpenSession)
	h.Post("/sessions/:id/messages", c.AppendMessage)
	h.Post("/sessions/:id/complexity", c.RecordComplexity)
	h.Post("/sessions/:id/context", c.SelectContext)
	h.Get("/sessions/:id", c.ShowSession)
	h.Delete("/sessions/:id", c.CloseSession)

	h.Get("/history", c.History)
	h.Put("/preferences", c.UpdatePreferences)
	h.Get("/stats", c.Stats)
}

func (c *memoryController) Lookup(ctx *fiber.Ctx) error {
	var req dto.CacheLookupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Lookup(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success lookup cache", res))
}

func (c *memoryController) Store(ctx *fiber.Ctx) error {
	var req dto.CacheStoreRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Store(ctx.Context(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success store reasoning result", res))
}

func (c *memoryController) Candidates(ctx *fiber.Ctx) error {
	query := ctx.Query("q")
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter q is required")
	}

	res, err := c.service.Candidates(ctx.Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get cache candidates", res))
}

func (c *memoryController) InvalidateTag(ctx *fiber.Ctx) error {
	res, err := c.service.InvalidateTag(ctx.Context(), ctx.Params("tag"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success invalidate cache tag", res))
}

func (c *memoryController) OpenSession(ctx *fiber.Ctx) error {
	res, err := c.service.OpenSession(ctx.Context(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success open session", res))
}

func (c *memoryController) AppendMessage(ctx *fiber.Ctx) error {
	var req dto.AppendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.SessionId = ctx.Params("id")
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AppendMessage(ctx.Context(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success append message", res))
}

func (c *memoryController) RecordComplexity(ctx *fiber.Ctx) error {
	var req dto.RecordComplexityRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.SessionId = ctx.Params("id")
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.RecordComplexity(ctx.Context(), serverutils.UserID(ctx), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success record complexity", nil))
}

func (c *memoryController) SelectContext(ctx *fiber.Ctx) error {
	var req dto.SelectContextRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.SessionId = ctx.Params("id")
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectContext(ctx.Context(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success select context", res))
}

func (c *memoryController) ShowSession(ctx *fiber.Ctx) error {
	res, err := c.service.ShowSession(ctx.Context(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *memoryController) CloseSession(ctx *fiber.Ctx) error {
	if err := c.service.CloseSession(ctx.Context(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success close session", nil))
}

func (c *memoryController) History(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	res, err := c.service.History(ctx.Context(), serverutils.UserID(ctx), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session history", res))
}

func (c *memoryController) UpdatePreferences(ctx *fiber.Ctx) error {
	var req dto.PreferencesDto
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdatePreferences(ctx.Context(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update preferences", res))
}

func (c *memoryController) Stats(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get memory stats", c.service.Stats(ctx.Context())))
}
