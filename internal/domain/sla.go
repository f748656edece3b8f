package domain

// SlaClass is the priority tier that determines allotted response and resolution time.
type SlaClass string

const (
	SlaClassP1 SlaClass = "P1"
	SlaClassP2 SlaClass = "P2"
	SlaClassP3 SlaClass = "P3"
	SlaClassP4 SlaClass = "P4"
)

// IsValid reports whether the class is one of P1..P4.
func (c SlaClass) IsValid() bool {
	switch c {
	case SlaClassP1, SlaClassP2, SlaClassP3, SlaClassP4:
		return true
	}
	return false
}

// IsBacklog reports whether the class is the lowest, long-window tier.
func (c SlaClass) IsBacklog() bool {
	return c == SlaClassP4
}

// DefaultResponseMinutes is the built-in response allowance used when nothing is configured.
func DefaultResponseMinutes(c SlaClass) int {
	switch c {
	case SlaClassP1:
		return 60
	case SlaClassP2:
		return 240
	case SlaClassP3:
		return 1440
	default:
		return 2880
	}
}

// DefaultResolutionMinutes is the built-in resolution allowance used when nothing is configured.
func DefaultResolutionMinutes(c SlaClass) int {
	switch c {
	case SlaClassP1:
		return 240
	case SlaClassP2:
		return 480
	case SlaClassP3:
		return 1440
	default:
		return 2880
	}
}

// WorkOrderType separates corrective from preventive maintenance.
type WorkOrderType string

const (
	WorkOrderTypeCorrective WorkOrderType = "CM"
	WorkOrderTypePreventive WorkOrderType = "PM"
)

func (t WorkOrderType) IsValid() bool {
	return t == WorkOrderTypeCorrective || t == WorkOrderTypePreventive
}

// WorkOrderScope says which asset family the work touches.
type WorkOrderScope string

const (
	ScopeClientEquipment     WorkOrderScope = "CLIENT_EQUIPMENT"
	ScopeTowerInfrastructure WorkOrderScope = "TOWER_INFRASTRUCTURE"
)

func (s WorkOrderScope) IsValid() bool {
	return s == ScopeClientEquipment || s == ScopeTowerInfrastructure
}

// SlaStatus is the outcome of one SLA evaluation. It is never persisted as a status of its own.
type SlaStatus string

const (
	SlaStatusOnTime   SlaStatus = "ON_TIME"
	SlaStatusAtRisk   SlaStatus = "AT_RISK"
	SlaStatusBreached SlaStatus = "BREACHED"
)
