package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/abdallahh166/TowerOps-sub002/internal/api/dto"
	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/service"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// WorkOrdersHandler exposes work-order commands and the on-demand SLA status.
type WorkOrdersHandler struct {
	service *service.WorkOrderService
}

// NewWorkOrdersHandler constructs handler.
func NewWorkOrdersHandler(workOrderService *service.WorkOrderService) *WorkOrdersHandler {
	return &WorkOrdersHandler{service: workOrderService}
}

// Create POST /work-orders.
func (h *WorkOrdersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	wo, err := h.service.Create(c.UserContext(), service.CreateWorkOrderInput{
		Number:            req.WoNumber,
		SiteCode:          req.SiteCode,
		OfficeCode:        req.OfficeCode,
		SlaClass:          req.SlaClass,
		IssueDescription:  req.IssueDescription,
		Scope:             req.Scope,
		Type:              req.Type,
		ResponseMinutes:   req.ResponseMinutes,
		ResolutionMinutes: req.ResolutionMinutes,
		ScheduledVisitAt:  req.ScheduledVisitAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewWorkOrderResponse(wo)})
}

// Get GET /work-orders/:number.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	wo, err := h.service.Get(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkOrderResponse(wo)})
}

// SlaStatus GET /work-orders/:number/sla-status.
func (h *WorkOrdersHandler) SlaStatus(c *fiber.Ctx) error {
	view, err := h.service.SlaStatus(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SlaStatusResponse{
		WoNumber:           view.WorkOrder.Number,
		SlaClass:           view.WorkOrder.SlaClass,
		SlaStatus:          view.Status,
		ResponseDeadline:   view.WorkOrder.ResponseDeadline,
		ResolutionDeadline: view.WorkOrder.ResolutionDeadline,
		EvaluatedAt:        view.EvaluatedAt,
	}})
}

// Assign POST /work-orders/:number/assign.
func (h *WorkOrdersHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.Assign(c.UserContext(), c.Params("number"), service.AssignInput{
		EngineerID:   req.EngineerID,
		EngineerName: req.EngineerName,
		AssignedBy:   req.AssignedBy,
	}))
}

func (h *WorkOrdersHandler) Start(c *fiber.Ctx) error {
	return respond(c)(h.service.Start(c.UserContext(), c.Params("number")))
}

func (h *WorkOrdersHandler) Complete(c *fiber.Ctx) error {
	return respond(c)(h.service.Complete(c.UserContext(), c.Params("number")))
}

func (h *WorkOrdersHandler) Submit(c *fiber.Ctx) error {
	return respond(c)(h.service.SubmitForCustomerAcceptance(c.UserContext(), c.Params("number")))
}

// Accept POST /work-orders/:number/accept.
func (h *WorkOrdersHandler) Accept(c *fiber.Ctx) error {
	var req dto.AcceptWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.AcceptByCustomer(c.UserContext(), c.Params("number"), req.AcceptedBy))
}

// Reject POST /work-orders/:number/reject.
func (h *WorkOrdersHandler) Reject(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.RejectByCustomer(c.UserContext(), c.Params("number"), req.Reason))
}

// Reopen POST /work-orders/:number/reopen.
func (h *WorkOrdersHandler) Reopen(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.Reopen(c.UserContext(), c.Params("number"), req.Reason))
}

func (h *WorkOrdersHandler) Close(c *fiber.Ctx) error {
	return respond(c)(h.service.Close(c.UserContext(), c.Params("number")))
}

func (h *WorkOrdersHandler) Cancel(c *fiber.Ctx) error {
	return respond(c)(h.service.Cancel(c.UserContext(), c.Params("number")))
}

// ClientSignature POST /work-orders/:number/signatures/client.
func (h *WorkOrdersHandler) ClientSignature(c *fiber.Ctx) error {
	var req dto.SignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.CaptureClientSignature(c.UserContext(), c.Params("number"), req.Signature))
}

// EngineerSignature POST /work-orders/:number/signatures/engineer.
func (h *WorkOrdersHandler) EngineerSignature(c *fiber.Ctx) error {
	var req dto.SignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respond(c)(h.service.CaptureEngineerSignature(c.UserContext(), c.Params("number"), req.Signature))
}

func respond(c *fiber.Ctx) func(*domain.WorkOrder, error) error {
	return func(wo *domain.WorkOrder, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewWorkOrderResponse(wo)})
	}
}
