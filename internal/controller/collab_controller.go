package controller

import (
	"time"

	"research-collab-be/internal/dto"
	"research-collab-be/internal/pkg/serverutils"
	"research-collab-be/internal/service"
	"research-collab-be/pkg/collab"

	"github.com/gofiber/fiber/v2"
)

type ICollabController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetAnalytics(ctx *fiber.Ctx) error
	ResolveConflict(ctx *fiber.Ctx) error
}

type collabController struct {
	service service.ICollabService
}

func NewCollabController(service service.ICollabService) ICollabController {
	return &collabController{service: service}
}

func (c *collabController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/collaboration/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id/analytics", c.GetAnalytics)
	h.Post("/sessions/:id/conflicts/:conflictId/resolve", c.ResolveConflict)
}

func (c *collabController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if req.OwnerID == "" {
		if userID, ok := ctx.Locals("user_id").(string); ok {
			req.OwnerID = userID
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create collaboration session", res))
}

// ListSessions returns the caller's own sessions. An optional created_after
// query parameter (RFC 3339) restricts the listing.
func (c *collabController) ListSessions(ctx *fiber.Ctx) error {
	ownerID, _ := ctx.Locals("user_id").(string)
	if ownerID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Token missing user_id")
	}

	var since time.Time
	if raw := ctx.Query("created_after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "created_after must be RFC 3339")
		}
		since = parsed
	}

	res, err := c.service.ListSessions(ctx.Context(), ownerID, since)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list collaboration sessions", res))
}

func (c *collabController) GetAnalytics(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	res, err := c.service.GetAnalytics(ctx.Context(), sessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session analytics", res))
}

func (c *collabController) ResolveConflict(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")
	conflictID := ctx.Params("conflictId")

	var req dto.ResolveConflictRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.service.ResolveConflict(ctx.Context(), sessionID, conflictID, collab.ResolutionStrategy(req.Strategy))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resolve conflict", res))
}
