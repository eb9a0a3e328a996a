// internal/workers/data-access/query-postgresql/queries/market.go
package queries

import (
	"context"
	"database/sql"
)

var dailyColumns = []column{
	str("ts_code"), str("name"), str("trade_date"),
	num("open"), num("high"), num("low"), num("close"), num("pre_close"),
	num("pct_chg"), num("vol"), num("amount"),
}

const dailyQuery = `
	SELECT d.ts_code, b.name, d.trade_date, d.open, d.high, d.low, d.close,
	       d.pre_close, d.pct_chg, d.vol, d.amount
	FROM daily d
	JOIN stock_basic b ON b.ts_code = d.ts_code
	WHERE d.ts_code = $1 AND d.trade_date BETWEEN $2 AND $3
	ORDER BY d.trade_date`

// PriceLookup returns the bar for one date, or every bar in a range.
func PriceLookup(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	code, err := p.code()
	if err != nil {
		return nil, err
	}
	end, err := p.date()
	if err != nil {
		return nil, err
	}
	start := p.Start
	if start == "" {
		start = end
	}
	rows, err := db.QueryContext(ctx, dailyQuery, code, start, end)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, dailyColumns)
}

func PriceHistory(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	if p.Start == "" {
		return nil, ErrMissingParam
	}
	return PriceLookup(ctx, db, p)
}

func Valuation(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	code, err := p.code()
	if err != nil {
		return nil, err
	}
	date, err := p.date()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT v.ts_code, b.name, v.trade_date, v.close, v.pe, v.pe_ttm, v.pb,
		       v.ps_ttm, v.dv_ratio, v.total_mv, v.circ_mv
		FROM daily_basic v
		JOIN stock_basic b ON b.ts_code = v.ts_code
		WHERE v.ts_code = $1 AND v.trade_date = $2`, code, date)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, []column{
		str("ts_code"), str("name"), str("trade_date"), num("close"),
		num("pe"), num("pe_ttm"), num("pb"), num("ps_ttm"), num("dv_ratio"),
		num("total_mv"), num("circ_mv"),
	})
}

func MoneyFlow(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	code, err := p.code()
	if err != nil {
		return nil, err
	}
	end, err := p.date()
	if err != nil {
		return nil, err
	}
	start := p.Start
	if start == "" {
		start = end
	}
	rows, err := db.QueryContext(ctx, `
		SELECT m.ts_code, b.name, m.trade_date, m.buy_lg_amount, m.sell_lg_amount,
		       m.buy_elg_amount, m.sell_elg_amount, m.net_mf_amount
		FROM moneyflow m
		JOIN stock_basic b ON b.ts_code = m.ts_code
		WHERE m.ts_code = $1 AND m.trade_date BETWEEN $2 AND $3
		ORDER BY m.trade_date`, code, start, end)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, []column{
		str("ts_code"), str("name"), str("trade_date"),
		num("buy_lg_amount"), num("sell_lg_amount"),
		num("buy_elg_amount"), num("sell_elg_amount"), num("net_mf_amount"),
	})
}

// StockComparison returns one row per code in the order the codes were asked for.
func StockComparison(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	if len(p.Codes) < 2 {
		return nil, ErrMissingParam
	}
	date, err := p.date()
	if err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, len(p.Codes)+1)
	args = append(args, date)
	for _, c := range p.Codes {
		args = append(args, c)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT d.ts_code, b.name, d.trade_date, d.close, d.pct_chg, d.amount,
		       v.pe_ttm, v.pb, v.total_mv
		FROM daily d
		JOIN stock_basic b ON b.ts_code = d.ts_code
		LEFT JOIN daily_basic v ON v.ts_code = d.ts_code AND v.trade_date = d.trade_date
		WHERE d.trade_date = $1 AND d.ts_code IN (`+placeholders(2, len(p.Codes))+`)`, args...)
	if err != nil {
		return nil, err
	}
	results, err := scanAll(rows, []column{
		str("ts_code"), str("name"), str("trade_date"), num("close"), num("pct_chg"),
		num("amount"), num("pe_ttm"), num("pb"), num("total_mv"),
	})
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]map[string]interface{}, len(results))
	for _, r := range results {
		if code, ok := r["ts_code"].(string); ok {
			byCode[code] = r
		}
	}
	ordered := make([]map[string]interface{}, 0, len(results))
	for _, c := range p.Codes {
		if r, ok := byCode[c]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

func FinancialReport(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error) {
	code, err := p.code()
	if err != nil {
		return nil, err
	}
	if p.ReportEnd == "" {
		return nil, ErrMissingParam
	}
	rows, err := db.QueryContext(ctx, `
		SELECT f.ts_code, b.name, f.end_date, f.ann_date, f.eps, f.bps, f.roe,
		       f.grossprofit_margin, f.netprofit_margin, f.or_yoy, f.netprofit_yoy,
		       f.debt_to_assets
		FROM fina_indicator f
		JOIN stock_basic b ON b.ts_code = f.ts_code
		WHERE f.ts_code = $1 AND f.end_date = $2`, code, p.ReportEnd)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, []column{
		str("ts_code"), str("name"), str("end_date"), str("ann_date"),
		num("eps"), num("bps"), num("roe"), num("grossprofit_margin"),
		num("netprofit_margin"), num("or_yoy"), num("netprofit_yoy"), num("debt_to_assets"),
	})
}
