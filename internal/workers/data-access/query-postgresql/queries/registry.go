// internal/workers/data-access/query-postgresql/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrMissingParam         = errors.New("missing required parameter")
	ErrUnknownTemplate      = errors.New("unknown template")
	ErrUnsupportedExclusion = errors.New("unsupported exclusion")
)

// QueryFunc runs one fast-path template and returns its rows.
type QueryFunc func(ctx context.Context, db *sql.DB, p Params) ([]map[string]interface{}, error)

var Registry = map[string]QueryFunc{
	"money_flow":       MoneyFlow,
	"financial_report": FinancialReport,
	"valuation":        Valuation,
	"stock_comparison": StockComparison,
	"sector_ranking":   SectorRanking,
	"volume_ranking":   VolumeRanking,
	"gain_ranking":     GainRanking,
	"price_history":    PriceHistory,
	"price_lookup":     PriceLookup,
}

func Execute(ctx context.Context, db *sql.DB, template string, p Params) ([]map[string]interface{}, error) {
	fn, exists := Registry[template]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
	return fn(ctx, db, p)
}
