// internal/workers/data-access/query-postgresql/queries/ranking.go
package queries

import (
	"context"
	"database/sql"
	"strconv"
)

var rankingColumns = []column{
	str("ts_code"), str("name"), str("industry"), str("trade_date"),
	num("close"), num("pct_chg"), num("vol"), num("amount"), num("turnover_rate"),
}

const rankingSelect = `
	SELECT d.ts_code, b.name, b.industry, d.trade_date, d.close, d.pct_chg,
	       d.vol, d.amount, v.turnover_rate
	FROM daily d
	JOIN stock_basic b ON b.ts_code = d.ts_code
	LEFT JOIN daily_basic v ON v.ts_code = d.ts_code AND v.trade_date = d.trade_date
	WHERE d.trade_date = $1`

// rank appends the optional sector filter, exclusions and a fixed sort key.
// Only constant fragments are concatenated; values are bound.
func rank(ctx context.Context, db *sql.DB, p Params, orderBy string, bySector bool) ([]map[string]interface{}, error) {
	date, err := p.date()
	if err != nil {
		return nil, err
	}
	if p.Limit < 1 {
		return nil, ErrMissingParam
	}
	excl, err := exclusionFilter(p.Exclusions)
	if err != nil {
		return nil, err
	}

	args := []interface{}{date}
	query := rankingSelect
	if bySector {
		if p.Sector == "" {
			return nil, ErrMissingParam
		}
		args = append(args, p.Sector)
		query += ` AND b.industry = $` + strconv.Itoa(len(args))
	}
	args = append(args, p.Limit)
	query += excl +
		` ORDER BY ` + orderBy + ` ` + p.direction() + ` NULLS LAST` +
		` LIMIT $` + strconv.Itoa(len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, rankingColumns)
}

func GainRanking(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	return rank(ctx, db, p, "d.pct_chg", false)
}

func VolumeRanking(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	return rank(ctx, db, p, "d.vol", false)
}

func SectorRanking(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	return rank(ctx, db, p, "d.pct_chg", true)
}
