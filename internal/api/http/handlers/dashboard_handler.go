package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abdallahh166/TowerOps-sub002/internal/api/dto"
	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/service"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// DashboardHandler serves the operations KPIs.
type DashboardHandler struct {
	kpis *service.KPIService
}

func NewDashboardHandler(kpis *service.KPIService) *DashboardHandler {
	return &DashboardHandler{kpis: kpis}
}

// KPIs GET /dashboard/kpis?office_code=&sla_class=&from=&to= (RFC 3339 times).
func (h *DashboardHandler) KPIs(c *fiber.Ctx) error {
	var query service.KPIQuery
	if v := strings.TrimSpace(c.Query("office_code")); v != "" {
		query.OfficeCode = &v
	}
	if v := strings.TrimSpace(c.Query("sla_class")); v != "" {
		class := domain.SlaClass(strings.ToUpper(v))
		query.SlaClass = &class
	}
	var err error
	if query.From, err = parseTimeQuery(c, "from"); err != nil {
		return err
	}
	if query.To, err = parseTimeQuery(c, "to"); err != nil {
		return err
	}

	snap, err := h.kpis.Snapshot(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperationsDashboardResponse(snap)})
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+key+" timestamp", map[string]any{key: raw})
	}
	t = t.UTC()
	return &t, nil
}
