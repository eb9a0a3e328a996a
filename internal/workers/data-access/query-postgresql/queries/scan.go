// internal/workers/data-access/query-postgresql/queries/scan.go
package queries

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type columnKind int

const (
	text columnKind = iota
	number
)

type column struct {
	name string
	kind columnKind
}

func str(name string) column { return column{name: name, kind: text} }
func num(name string) column { return column{name: name, kind: number} }

// scanAll reads rows positionally. Numeric columns keep full precision as
// decimals; SQL NULL becomes nil.
func scanAll(rows *sql.Rows, cols []column) ([]map[string]interface{}, error) {
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(cols))
		for i, c := range cols {
			if c.kind == number {
				dest[i] = new(decimal.NullDecimal)
			} else {
				dest[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			switch v := dest[i].(type) {
			case *decimal.NullDecimal:
				if v.Valid {
					row[c.name] = v.Decimal
				} else {
					row[c.name] = nil
				}
			case *sql.NullString:
				if v.Valid {
					row[c.name] = v.String
				} else {
					row[c.name] = nil
				}
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
