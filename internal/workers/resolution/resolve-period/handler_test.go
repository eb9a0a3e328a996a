package resolveperiod

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/database"
	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

func tradeDateRows(dates ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"trade_date"})
	for _, d := range dates {
		rows.AddRow(d)
	}
	return rows
}

// ==========================
// Loader
// ==========================

func TestLoader_ReadThroughCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	loader := NewLoader(db, cache, time.Minute, 10, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT DISTINCT trade_date FROM daily`).
		WithArgs("20240305").
		WillReturnRows(tradeDateRows("20240311", "20240312", "20240313"))

	first, err := loader.Load(context.Background(), fixedNow())
	require.NoError(t, err)
	assert.Equal(t, []string{"20240311", "20240312", "20240313"}, first)
	assert.True(t, mr.Exists(CalendarCacheKey))

	second, err := loader.Load(context.Background(), fixedNow())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, loader.Invalidate(context.Background()))
	assert.False(t, mr.Exists(CalendarCacheKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM daily`).WillReturnError(assert.AnError)

	loader := NewLoader(db, nil, time.Minute, 10, logger.NewNoOpLogger())
	_, err = loader.Load(context.Background(), fixedNow())
	assert.ErrorIs(t, err, ErrCalendarLoadFailed)
}

func TestLoader_HasData(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	loader := NewLoader(db, nil, time.Minute, 10, logger.NewNoOpLogger())

	mock.ExpectQuery(`SELECT 1 FROM daily WHERE trade_date = \$1`).
		WithArgs("20240315").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM daily`).
		WithArgs("20240316").
		WillReturnRows(sqlmock.NewRows([]string{"one"}))
	mock.ExpectQuery(`SELECT 1 FROM daily`).
		WithArgs("20240317").
		WillReturnError(assert.AnError)

	ok, err := loader.HasData(context.Background(), "20240315")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = loader.HasData(context.Background(), "20240316")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = loader.HasData(context.Background(), "20240317")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_LatestReportEnd(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	loader := NewLoader(db, nil, time.Minute, 10, logger.NewNoOpLogger())

	mock.ExpectQuery(`SELECT MAX\(end_date\) FROM fina_indicator`).
		WithArgs("600519.SH", "%1231").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow("20231231"))
	mock.ExpectQuery(`FROM fina_indicator`).
		WithArgs("830799.BJ", "%").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	end, ok, err := loader.LatestReportEnd(context.Background(), "600519.SH", models.ReportAnnual)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20231231", end)

	_, ok, err = loader.LatestReportEnd(context.Background(), "830799.BJ", models.ReportAny)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Handler
// ==========================

func TestHandler_RefreshAndExecute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := logger.NewTestLogger(t)
	config := createTestConfig()
	loader := NewLoader(db, nil, time.Minute, config.HistoryDays, log)
	resolver := NewResolver(config, nil, loader, loader, log).WithClock(fixedNow)
	h := NewHandler(config, resolver, loader, log)

	mock.ExpectQuery(`SELECT DISTINCT trade_date FROM daily`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tradeDateRows(testTradingDates()...))
	require.NoError(t, h.Refresh(context.Background(), true))
	assert.Equal(t, "20240314", h.Resolver().Calendar().Last())

	tests := []struct {
		name           string
		setup          func()
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name: "latest probes today",
			setup: func() {
				mock.ExpectQuery(`SELECT 1 FROM daily`).
					WithArgs("20240315").
					WillReturnRows(sqlmock.NewRows([]string{"one"}))
			},
			input: &Input{},
			validateOutput: func(t *testing.T, output *Output) {
				require.Nil(t, output.Error)
				assert.Equal(t, "20240314", output.Period.Date)
				assert.True(t, output.Period.Latest)
			},
		},
		{
			name:  "explicit date",
			input: &Input{Anchor: "20240217"},
			validateOutput: func(t *testing.T, output *Output) {
				require.Nil(t, output.Error)
				assert.Equal(t, "20240208", output.Period.Date)
			},
		},
		{
			name:  "last month",
			input: &Input{Unit: UnitMonth, Count: 1, Anchor: "20240314"},
			validateOutput: func(t *testing.T, output *Output) {
				require.Nil(t, output.Error)
				assert.Equal(t, models.PeriodRange, output.Period.Kind)
				assert.Equal(t, "20240314", output.Period.End)
				assert.Equal(t, "20240208", output.Period.Start, "20 sessions across the holiday")
			},
		},
		{
			name:  "future anchor",
			input: &Input{Anchor: "20250101"},
			validateOutput: func(t *testing.T, output *Output) {
				require.NotNil(t, output.Error)
				assert.Equal(t, errors.ErrCodeFutureDate, output.Error.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_CancelledContext(t *testing.T) {
	log := logger.NewNoOpLogger()
	h := NewHandler(createTestConfig(), NewResolver(createTestConfig(), nil, nil, nil, log), nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Execute(ctx, &Input{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, h.Refresh(context.Background(), false))
}
