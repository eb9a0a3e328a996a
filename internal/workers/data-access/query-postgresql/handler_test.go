package querypostgresql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/workers/data-access/query-postgresql/queries"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func security(code, name string) models.ResolvedEntity {
	return models.ResolvedEntity{Kind: models.EntitySecurity, Code: code, Name: name}
}

func template(name string) *models.Template {
	return &models.Template{Name: name, Executor: models.ExecutorPostgres}
}

func dailyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"ts_code", "name", "trade_date", "open", "high", "low", "close",
		"pre_close", "pct_chg", "vol", "amount",
	})
}

func rankingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"ts_code", "name", "industry", "trade_date", "close", "pct_chg", "vol", "amount", "turnover_rate",
	})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		template       string
		bag            *models.ParameterBag
		mockQuery      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:     "price lookup on latest date",
			template: "price_lookup",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
				Period:   &models.ResolvedPeriod{Kind: models.PeriodDate, Date: "20240314", Latest: true},
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM daily d JOIN stock_basic b .* WHERE d.ts_code = \$1 AND d.trade_date BETWEEN \$2 AND \$3`).
					WithArgs("600519.SH", "20240314", "20240314").
					WillReturnRows(dailyRows().AddRow(
						"600519.SH", "贵州茅台", "20240314", "1700.00", "1720.10", "1695.00", "1712.34",
						"1701.00", "0.6666", "24567.89", "4203951.12",
					))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "price_lookup", output.Result.Template)
				require.Equal(t, 1, output.Result.RowCount)
				row := output.Result.Rows[0]
				assert.Equal(t, "贵州茅台", row["name"])
				assert.True(t, decimal.RequireFromString("1712.34").Equal(row["close"].(decimal.Decimal)))
				assert.True(t, output.Result.Period.Latest)
			},
		},
		{
			name:     "price history range",
			template: "price_history",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("000858.SZ", "五粮液")},
				Period:   models.RangePeriod("20240311", "20240314"),
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM daily d`).
					WithArgs("000858.SZ", "20240311", "20240314").
					WillReturnRows(dailyRows().
						AddRow("000858.SZ", "五粮液", "20240311", "150", "151", "149", "150.5", "149.9", "0.4", "1000", "150000").
						AddRow("000858.SZ", "五粮液", "20240312", "150.5", "152", "150", "151.8", "150.5", "0.86", "1200", nil))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.Result.RowCount)
				assert.Nil(t, output.Result.Rows[1]["amount"], "NULL stays nil")
			},
		},
		{
			name:     "valuation",
			template: "valuation",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
				Period:   models.DatePeriod("20240314"),
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM daily_basic v .* WHERE v.ts_code = \$1 AND v.trade_date = \$2`).
					WithArgs("600519.SH", "20240314").
					WillReturnRows(sqlmock.NewRows([]string{
						"ts_code", "name", "trade_date", "close", "pe", "pe_ttm", "pb",
						"ps_ttm", "dv_ratio", "total_mv", "circ_mv",
					}).AddRow("600519.SH", "贵州茅台", "20240314", "1712.34", "28.1", "27.4", "9.1", "13.2", "1.5", "215100000", "215100000"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, decimal.RequireFromString("27.4").Equal(output.Result.Rows[0]["pe_ttm"].(decimal.Decimal)))
			},
		},
		{
			name:     "comparison keeps requested order",
			template: "stock_comparison",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("000858.SZ", "五粮液"), security("600519.SH", "贵州茅台")},
				Period:   models.DatePeriod("20240314"),
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`d.ts_code IN ($2,$3)`)).
					WithArgs("20240314", "000858.SZ", "600519.SH").
					WillReturnRows(sqlmock.NewRows([]string{
						"ts_code", "name", "trade_date", "close", "pct_chg", "amount", "pe_ttm", "pb", "total_mv",
					}).
						AddRow("600519.SH", "贵州茅台", "20240314", "1712.34", "0.6", "1", "27.4", "9.1", "1").
						AddRow("000858.SZ", "五粮液", "20240314", "151.8", "0.8", "1", "18.2", "5.0", "1"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.Result.Rows, 2)
				assert.Equal(t, "000858.SZ", output.Result.Rows[0]["ts_code"])
				assert.Equal(t, "600519.SH", output.Result.Rows[1]["ts_code"])
			},
		},
		{
			name:     "financial report",
			template: "financial_report",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
				Period:   models.ReportPeriod(models.ReportAnnual, "20231231"),
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM fina_indicator f`).
					WithArgs("600519.SH", "20231231").
					WillReturnRows(sqlmock.NewRows([]string{
						"ts_code", "name", "end_date", "ann_date", "eps", "bps", "roe",
						"grossprofit_margin", "netprofit_margin", "or_yoy", "netprofit_yoy", "debt_to_assets",
					}).AddRow("600519.SH", "贵州茅台", "20231231", "20240403", "59.49", "204.7", "34.19", "91.96", "52.49", "18.04", "19.16", "19.4"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "20240403", output.Result.Rows[0]["ann_date"])
			},
		},
		{
			name:     "money flow range",
			template: "money_flow",
			bag: &models.ParameterBag{
				Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
				Period:   models.RangePeriod("20240308", "20240314"),
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM moneyflow m`).
					WithArgs("600519.SH", "20240308", "20240314").
					WillReturnRows(sqlmock.NewRows([]string{
						"ts_code", "name", "trade_date", "buy_lg_amount", "sell_lg_amount",
						"buy_elg_amount", "sell_elg_amount", "net_mf_amount",
					}).AddRow("600519.SH", "贵州茅台", "20240314", "10", "8", "5", "4", "-1203.5"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, output.Result.Rows[0]["net_mf_amount"].(decimal.Decimal).IsNegative())
			},
		},
		{
			name:     "gain ranking ascending with exclusions",
			template: "gain_ranking",
			bag: &models.ParameterBag{
				Period:     models.DatePeriod("20240314"),
				Limit:      20,
				HasLimit:   true,
				Order:      models.OrderAsc,
				Exclusions: []models.ExclusionRule{models.ExcludeST, models.ExcludeSTAR},
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(
					`WHERE d.trade_date = $1 AND b.name NOT LIKE '%ST%' AND b.ts_code NOT LIKE '688%' ORDER BY d.pct_chg ASC NULLS LAST LIMIT $2`)).
					WithArgs("20240314", 20).
					WillReturnRows(rankingRows().AddRow("000001.SZ", "平安银行", "银行", "20240314", "10.5", "-9.98", "1", "1", "0.5"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.Result.RowCount)
			},
		},
		{
			name:     "sector ranking binds the sector",
			template: "sector_ranking",
			bag: &models.ParameterBag{
				Sector:   &models.ResolvedEntity{Kind: models.EntitySector, Code: "白酒", Name: "白酒"},
				Period:   models.DatePeriod("20240314"),
				Limit:    10,
				HasLimit: true,
				Order:    models.OrderDesc,
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`AND b.industry = $2 ORDER BY d.pct_chg DESC NULLS LAST LIMIT $3`)).
					WithArgs("20240314", "白酒", 10).
					WillReturnRows(rankingRows().AddRow("600519.SH", "贵州茅台", "白酒", "20240314", "1712.34", "0.66", "1", "1", "0.2"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "白酒", output.Result.Rows[0]["industry"])
			},
		},
		{
			name:     "volume ranking",
			template: "volume_ranking",
			bag: &models.ParameterBag{
				Period:   models.DatePeriod("20240314"),
				Limit:    5,
				HasLimit: true,
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY d.vol DESC NULLS LAST LIMIT $2`)).
					WithArgs("20240314", 5).
					WillReturnRows(rankingRows().AddRow("601127.SH", "赛力斯", "汽车整车", "20240314", "80", "3", "99999", "1", "4.2"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "赛力斯", output.Result.Rows[0]["name"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mockQuery(mock)

			handler := NewHandler(createTestConfig(), db, logger.NewTestLogger(t))
			output, err := handler.Execute(context.Background(), &Input{Template: template(tt.template), Bag: tt.bag})

			require.NoError(t, err)
			require.NotNil(t, output)
			tt.validateOutput(t, output)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	priceBag := func() *models.ParameterBag {
		return &models.ParameterBag{
			Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
			Period:   models.DatePeriod("20240314"),
		}
	}

	tests := []struct {
		name        string
		template    string
		bag         *models.ParameterBag
		mockQuery   func(mock sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name:        "unknown template",
			template:    "announcement_search",
			bag:         priceBag(),
			expectedErr: ErrInvalidQueryType,
		},
		{
			name:     "database error",
			template: "price_lookup",
			bag:      priceBag(),
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM daily d`).WillReturnError(errors.New("connection reset"))
			},
			expectedErr: ErrQueryExecutionFailed,
		},
		{
			name:     "zero rows",
			template: "price_lookup",
			bag:      priceBag(),
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM daily d`).WillReturnRows(dailyRows())
			},
			expectedErr: ErrNoData,
		},
		{
			name:        "missing code",
			template:    "valuation",
			bag:         &models.ParameterBag{Period: models.DatePeriod("20240314")},
			expectedErr: queries.ErrMissingParam,
		},
		{
			name:     "unknown exclusion",
			template: "gain_ranking",
			bag: &models.ParameterBag{
				Period: models.DatePeriod("20240314"), Limit: 10, HasLimit: true,
				Exclusions: []models.ExclusionRule{"EXCLUDE_EVERYTHING"},
			},
			expectedErr: queries.ErrUnsupportedExclusion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			if tt.mockQuery != nil {
				tt.mockQuery(mock)
			}

			handler := NewHandler(createTestConfig(), db, logger.NewTestLogger(t))
			output, err := handler.Execute(context.Background(), &Input{Template: template(tt.template), Bag: tt.bag})

			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM daily d`).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(dailyRows())

	config := createTestConfig()
	config.Timeout = 50 * time.Millisecond

	handler := NewHandler(config, db, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{
		Template: template("price_lookup"),
		Bag: &models.ParameterBag{
			Entities: []models.ResolvedEntity{security("600519.SH", "贵州茅台")},
			Period:   models.DatePeriod("20240314"),
		},
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrQueryTimeout)
}

// ==========================
// Edge Cases
// ==========================

func TestHandler_EdgeCases(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewNoOpLogger())

	t.Run("nil input", func(t *testing.T) {
		output, err := handler.Execute(context.Background(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "input cannot be nil")
		assert.Nil(t, output)
	})

	t.Run("supports only sql templates", func(t *testing.T) {
		assert.True(t, handler.Supports("gain_ranking"))
		assert.False(t, handler.Supports("announcement_search"))
	})
}

func TestFromBag(t *testing.T) {
	p := queries.FromBag(&models.ParameterBag{
		Entities: []models.ResolvedEntity{
			security("600519.SH", "贵州茅台"),
			{Kind: models.EntitySector, Code: "白酒", Name: "白酒"},
		},
		Sector: &models.ResolvedEntity{Kind: models.EntitySector, Code: "白酒"},
		Period: models.RangePeriod("20240301", "20240314"),
		Limit:  10,
		Order:  models.OrderAsc,
	})
	assert.Equal(t, []string{"600519.SH"}, p.Codes)
	assert.Equal(t, "白酒", p.Sector)
	assert.Equal(t, "20240301", p.Start)
	assert.Equal(t, "20240314", p.End)
	assert.True(t, p.Ascending)

	report := queries.FromBag(&models.ParameterBag{Period: models.ReportPeriod(models.ReportQ3, "20230930")})
	assert.Equal(t, "20230930", report.ReportEnd)
	assert.Empty(t, report.End)
}
