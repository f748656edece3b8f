package domain

// SiteResponsibilityScope describes what the operator maintains at a site.
type SiteResponsibilityScope string

const (
	SiteScopeEquipmentOnly     SiteResponsibilityScope = "EQUIPMENT_ONLY"
	SiteScopeEquipmentAndTower SiteResponsibilityScope = "EQUIPMENT_AND_TOWER"
)

// Site is the read-only view of a site needed when opening work orders.
type Site struct {
	SiteCode            string
	OfficeCode          string
	ResponsibilityScope SiteResponsibilityScope
}

// AllowsScope reports whether work of the given scope may be raised against the site.
func (s *Site) AllowsScope(scope WorkOrderScope) bool {
	if s == nil {
		return true
	}
	if scope == ScopeTowerInfrastructure {
		return s.ResponsibilityScope != SiteScopeEquipmentOnly
	}
	return true
}
