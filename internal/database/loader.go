package database

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
	"github.com/crimeatlas/crimes-grabber/internal/metrics"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load replaces table with records: drop, recreate from the inferred schema,
// bulk-copy. Empty input drops any prior table and loads nothing, so the
// table reads as absent rather than stale.
func (p *Provider) Load(ctx context.Context, table string, records []cde.Record) (int64, error) {
	if !validTableName.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}

	ident := pgx.Identifier{table}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", ident.Sanitize())); err != nil {
		return 0, fmt.Errorf("drop %s: %w", table, err)
	}
	if len(records) == 0 {
		p.logger.Info("no records to load", zap.String("table", table))
		return 0, nil
	}

	columns := inferColumns(records)
	if _, err := p.pool.Exec(ctx, createTableSQL(table, columns)); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			// Missing keys stay nil and load as NULL.
			row[j] = col.normalize(rec[col.Name])
		}
		rows[i] = row
	}

	copied, err := p.pool.CopyFrom(ctx, ident, names, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	metrics.ObserveRowsLoaded(table, copied)
	p.logger.Info("table loaded", zap.String("table", table), zap.Int64("rows", copied))
	return copied, nil
}

// column is one inferred destination column. JSON keys become column names
// verbatim, spaces and case included, so DDL always quotes them.
type column struct {
	Name string
	Type string
}

// normalize coerces v into a value the column's SQL type can encode.
func (c column) normalize(v any) any {
	if v == nil {
		return nil
	}
	switch c.Type {
	case "BIGINT":
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	case "DOUBLE PRECISION", "BOOLEAN":
		return v
	case "TEXT":
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			return fmt.Sprint(t)
		}
	}
	return v
}

// inferColumns unions record keys across records in first-seen order; keys
// introduced by the same record are appended sorted so the schema is
// deterministic. Column types come from the observed values: all-bool is
// BOOLEAN, all-integral numbers within int64 range BIGINT, all-number DOUBLE
// PRECISION, everything else (mixed or never non-null) TEXT.
func inferColumns(records []cde.Record) []column {
	var order []string
	kinds := map[string]*colKind{}
	for _, rec := range records {
		var newKeys []string
		for k := range rec {
			if _, ok := kinds[k]; !ok {
				kinds[k] = &colKind{allBool: true, allNumber: true, allIntegral: true}
				newKeys = append(newKeys, k)
			}
		}
		sort.Strings(newKeys)
		order = append(order, newKeys...)
		for k, v := range rec {
			kinds[k].observe(v)
		}
	}

	cols := make([]column, len(order))
	for i, name := range order {
		cols[i] = column{Name: name, Type: kinds[name].sqlType()}
	}
	return cols
}

type colKind struct {
	sawValue    bool
	allBool     bool
	allNumber   bool
	allIntegral bool
}

func (k *colKind) observe(v any) {
	switch t := v.(type) {
	case nil:
	case bool:
		k.sawValue = true
		k.allNumber = false
		k.allIntegral = false
	case float64:
		k.sawValue = true
		k.allBool = false
		// int64 holds integral values in [-2^63, 2^63).
		if t != math.Trunc(t) || t < -1<<63 || t >= 1<<63 {
			k.allIntegral = false
		}
	default:
		k.sawValue = true
		k.allBool = false
		k.allNumber = false
		k.allIntegral = false
	}
}

func (k *colKind) sqlType() string {
	switch {
	case !k.sawValue:
		return "TEXT"
	case k.allBool:
		return "BOOLEAN"
	case k.allIntegral:
		return "BIGINT"
	case k.allNumber:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func createTableSQL(table string, columns []column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{col.Name}.Sanitize(), col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}
