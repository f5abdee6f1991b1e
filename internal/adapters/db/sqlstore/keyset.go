package sqlstore

import (
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"gorm.io/gorm"
)

// orderKey is one sort column. expr is a format string whose %s is the table
// name or alias the column is read from.
type orderKey struct {
	expr string
	desc bool
}

// ordering is a total order over a table: its keys followed by id ascending.
type ordering struct {
	table string
	keys  []orderKey
}

const urgencyRank = "CASE %s.urgency WHEN 'HIGH' THEN 3 WHEN 'NORMAL' THEN 2 ELSE 1 END"

var (
	clientOrder = ordering{table: "clients", keys: []orderKey{
		{expr: urgencyRank, desc: true},
		{expr: "%s.created_at", desc: true},
	}}
	opportunityOrder = ordering{table: "opportunities", keys: []orderKey{
		{expr: urgencyRank, desc: true},
		{expr: "%s.updated_at", desc: true},
	}}
	noteOrder = ordering{table: "notes", keys: []orderKey{
		{expr: "%s.created_at", desc: true},
	}}
	carOrder = ordering{table: "cars", keys: []orderKey{
		{expr: "%s.brand"},
		{expr: "%s.model"},
		{expr: "COALESCE(%s.year, 0)", desc: true},
	}}
)

func (o ordering) orderBy() string {
	parts := make([]string, 0, len(o.keys)+1)
	for _, k := range o.keys {
		dir := "ASC"
		if k.desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf(k.expr, o.table)+" "+dir)
	}
	parts = append(parts, o.table+".id ASC")
	return strings.Join(parts, ", ")
}

// from builds the predicate selecting the cursor row and every row after it.
// The cursor's key values are read by subquery so they are compared in the
// store's own representation.
func (o ordering) from(cursor int64) (string, []any) {
	clause := o.table + ".id >= ?"
	args := []any{cursor}
	for i := len(o.keys) - 1; i >= 0; i-- {
		k := o.keys[i]
		col := fmt.Sprintf(k.expr, o.table)
		cur := fmt.Sprintf("(SELECT %s FROM %s cur WHERE cur.id = ?)", fmt.Sprintf(k.expr, "cur"), o.table)
		op := ">"
		if k.desc {
			op = "<"
		}
		clause = fmt.Sprintf("(%s %s %s OR (%s = %s AND %s))", col, op, cur, col, cur, clause)
		args = append([]any{cursor, cursor}, args...)
	}
	return clause, args
}

// page applies the window to q: rows from the cursor on, in order, Fetch of them.
func (o ordering) page(q *gorm.DB, window domain.Window) *gorm.DB {
	if window.Cursor != nil {
		pred, args := o.from(*window.Cursor)
		q = q.Where(pred, args...)
	}
	q = q.Order(o.orderBy())
	if window.Fetch > 0 {
		q = q.Limit(window.Fetch)
	}
	return q
}
