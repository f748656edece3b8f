package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/settings"
)

// Settings keys read by the clock and the evaluation processor.
const (
	KeyEvaluationBatchSize    = "SLA:Evaluation:BatchSize"
	KeyAtRiskWindowMinutes    = "SLA:Evaluation:AtRiskWindowMinutes"
	DefaultBatchSize          = 200
	DefaultAtRiskWindow       = 30
	DefaultAtRiskThresholdPct = 80.0
)

const (
	kindResponse   = "ResponseMinutes"
	kindResolution = "ResolutionMinutes"
)

// TypedMinutesKey is the category-specific key, e.g. SLA:CM:P1:ResponseMinutes.
func TypedMinutesKey(t domain.WorkOrderType, class domain.SlaClass, kind string) string {
	return fmt.Sprintf("SLA:%s:%s:%s", t, class, kind)
}

// LegacyMinutesKey is the class-only key, e.g. SLA:P1:ResponseMinutes.
func LegacyMinutesKey(class domain.SlaClass, kind string) string {
	return fmt.Sprintf("SLA:%s:%s", class, kind)
}

// AtRiskThresholdKey is SLA:{CM|PM}:AtRiskThresholdPercent.
func AtRiskThresholdKey(t domain.WorkOrderType) string {
	return fmt.Sprintf("SLA:%s:AtRiskThresholdPercent", t)
}

// Clock computes deadlines and classifies work orders against the current time.
type Clock struct {
	settings settings.Provider
	now      func() time.Time
}

// NewClock builds a clock. A nil now uses the wall clock in UTC.
func NewClock(provider settings.Provider, now func() time.Time) *Clock {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Clock{settings: provider, now: now}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	return c.now()
}

// minutesResolver yields a candidate allowance; ok is false when the tier has no positive value.
type minutesResolver func(ctx context.Context) (minutes int, ok bool)

func (c *Clock) fromSetting(key string) minutesResolver {
	return func(ctx context.Context) (int, bool) {
		v := settings.Int(ctx, c.settings, key, 0)
		return v, v > 0
	}
}

func fixed(minutes int) minutesResolver {
	return func(context.Context) (int, bool) {
		return minutes, minutes > 0
	}
}

// resolveMinutes walks the tiers in order and stops at the first positive value.
func resolveMinutes(ctx context.Context, tiers ...minutesResolver) int {
	for _, tier := range tiers {
		if v, ok := tier(ctx); ok {
			return v
		}
	}
	return 0
}

// CalculateDeadline returns createdAt plus the class response allowance.
func (c *Clock) CalculateDeadline(ctx context.Context, createdAt time.Time, class domain.SlaClass) time.Time {
	minutes := resolveMinutes(ctx,
		c.fromSetting(LegacyMinutesKey(class, kindResponse)),
		fixed(domain.DefaultResponseMinutes(class)),
	)
	return createdAt.UTC().Add(time.Duration(minutes) * time.Minute)
}

// IsBreached reports whether more than the allotted minutes have elapsed since createdAt.
// A configured class allowance wins over minutesAllotted; the built-in table is the last resort.
func (c *Clock) IsBreached(ctx context.Context, createdAt time.Time, minutesAllotted int, class domain.SlaClass) bool {
	minutes := resolveMinutes(ctx,
		c.fromSetting(LegacyMinutesKey(class, kindResponse)),
		fixed(minutesAllotted),
		fixed(domain.DefaultResponseMinutes(class)),
	)
	return c.now().Sub(createdAt) > time.Duration(minutes)*time.Minute
}

// ResolveMinutes returns the response and resolution allowances for a class and category.
// Each goes typed key, then legacy key, then built-in default.
func (c *Clock) ResolveMinutes(ctx context.Context, class domain.SlaClass, t domain.WorkOrderType) (response, resolution int) {
	response = resolveMinutes(ctx,
		c.fromSetting(TypedMinutesKey(t, class, kindResponse)),
		c.fromSetting(LegacyMinutesKey(class, kindResponse)),
		fixed(domain.DefaultResponseMinutes(class)),
	)
	resolution = resolveMinutes(ctx,
		c.fromSetting(TypedMinutesKey(t, class, kindResolution)),
		c.fromSetting(LegacyMinutesKey(class, kindResolution)),
		fixed(domain.DefaultResolutionMinutes(class)),
	)
	if resolution < response {
		resolution = response
	}
	return response, resolution
}

// Deadlines is a resolved response/resolution pair.
type Deadlines struct {
	Response   time.Time
	Resolution time.Time
}

func (c *Clock) CalculateDeadlines(ctx context.Context, start time.Time, class domain.SlaClass, t domain.WorkOrderType) Deadlines {
	response, resolution := c.ResolveMinutes(ctx, class, t)
	start = start.UTC()
	return Deadlines{
		Response:   start.Add(time.Duration(response) * time.Minute),
		Resolution: start.Add(time.Duration(resolution) * time.Minute),
	}
}

// EvaluateStatus classifies a single order against its response deadline using a fixed
// risk window. Backlog-tier orders are either on time or breached.
func (c *Clock) EvaluateStatus(ctx context.Context, wo *domain.WorkOrder) domain.SlaStatus {
	now := c.now()
	if now.After(wo.ResponseDeadline) {
		return domain.SlaStatusBreached
	}
	if wo.SlaClass.IsBacklog() {
		return domain.SlaStatusOnTime
	}
	window := settings.Int(ctx, c.settings, KeyAtRiskWindowMinutes, DefaultAtRiskWindow)
	if window < 0 {
		window = DefaultAtRiskWindow
	}
	if !now.Before(wo.ResponseDeadline.Add(-time.Duration(window) * time.Minute)) {
		return domain.SlaStatusAtRisk
	}
	return domain.SlaStatusOnTime
}

// Thresholds are at-risk cut-offs as a percentage of allotted time elapsed.
type Thresholds struct {
	CorrectivePct float64
	PreventivePct float64
}

func (t Thresholds) For(woType domain.WorkOrderType) float64 {
	if woType == domain.WorkOrderTypePreventive {
		return t.PreventivePct
	}
	return t.CorrectivePct
}

// Thresholds reads the per-category percentages. Values outside (0, 100] fall back to the default.
func (c *Clock) Thresholds(ctx context.Context) Thresholds {
	return Thresholds{
		CorrectivePct: c.thresholdPct(ctx, domain.WorkOrderTypeCorrective),
		PreventivePct: c.thresholdPct(ctx, domain.WorkOrderTypePreventive),
	}
}

func (c *Clock) thresholdPct(ctx context.Context, t domain.WorkOrderType) float64 {
	v := settings.Float(ctx, c.settings, AtRiskThresholdKey(t), DefaultAtRiskThresholdPct)
	if v <= 0 || v > 100 {
		return DefaultAtRiskThresholdPct
	}
	return v
}

// BatchSize reads the evaluation batch size; the repository clamps it further.
func (c *Clock) BatchSize(ctx context.Context) int {
	return settings.Int(ctx, c.settings, KeyEvaluationBatchSize, DefaultBatchSize)
}

// Classify is the percentage-elapsed policy used by batch evaluation and the dashboard:
// past the response deadline is breached, at or beyond the category threshold of the
// SLA window is at risk. AtRiskPredicate mirrors the at-risk branch for the dashboard count.
func Classify(wo *domain.WorkOrder, now time.Time, thresholds Thresholds) domain.SlaStatus {
	if now.After(wo.ResponseDeadline) {
		return domain.SlaStatusBreached
	}
	allotted := wo.ResponseDeadline.Sub(wo.SlaStartAt)
	if allotted <= 0 {
		return domain.SlaStatusOnTime
	}
	elapsed := now.Sub(wo.SlaStartAt)
	if elapsed <= 0 {
		return domain.SlaStatusOnTime
	}
	if float64(elapsed)/float64(allotted)*100 >= thresholds.For(wo.Type) {
		return domain.SlaStatusAtRisk
	}
	return domain.SlaStatusOnTime
}

// AtRiskPredicate is the SQL form of Classify's at-risk branch over work_orders columns.
// now, cmPct and pmPct are query placeholders. Change it together with Classify.
func AtRiskPredicate(now, cmPct, pmPct string) string {
	return fmt.Sprintf("%[1]s::timestamptz <= response_deadline"+
		" AND response_deadline > sla_start_at"+
		" AND %[1]s::timestamptz > sla_start_at"+
		" AND EXTRACT(EPOCH FROM (%[1]s::timestamptz - sla_start_at)) * 100 >="+
		" EXTRACT(EPOCH FROM (response_deadline - sla_start_at)) * (CASE wo_type WHEN '%[2]s' THEN %[3]s::float8 ELSE %[4]s::float8 END)",
		now, domain.WorkOrderTypePreventive, pmPct, cmPct)
}
