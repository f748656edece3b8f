package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
)

// KPIFilter scopes dashboard queries. Nil fields are not filtered on.
type KPIFilter struct {
	OfficeCode *string
	SlaClass   *domain.SlaClass
	From       *time.Time
	To         *time.Time
}

// whereBuilder accumulates SQL predicates with positional $n placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

func newWhere() *whereBuilder {
	return &whereBuilder{clauses: []string{"1=1"}}
}

// arg appends a value and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(clause string) *whereBuilder {
	w.clauses = append(w.clauses, clause)
	return w
}

// scope applies the filter; timeColumn is the column the From/To window bounds.
func (w *whereBuilder) scope(f KPIFilter, timeColumn string) *whereBuilder {
	if f.OfficeCode != nil && strings.TrimSpace(*f.OfficeCode) != "" {
		w.add("office_code=" + w.arg(strings.TrimSpace(*f.OfficeCode)))
	}
	if f.SlaClass != nil && *f.SlaClass != "" {
		w.add("sla_class=" + w.arg(string(*f.SlaClass)))
	}
	if f.From != nil {
		w.add(timeColumn + " >= " + w.arg(f.From.UTC()))
	}
	if f.To != nil {
		w.add(timeColumn + " <= " + w.arg(f.To.UTC()))
	}
	return w
}

func (w *whereBuilder) String() string {
	return strings.Join(w.clauses, " AND ")
}

// Evaluation batches are clamped to this range whatever the configured size.
const (
	MinEvaluationBatch = 1
	MaxEvaluationBatch = 1000
)

// ClampEvaluationLimit bounds a requested batch size.
func ClampEvaluationLimit(limit int) int {
	if limit < MinEvaluationBatch {
		return MinEvaluationBatch
	}
	if limit > MaxEvaluationBatch {
		return MaxEvaluationBatch
	}
	return limit
}
